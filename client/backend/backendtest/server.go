// Package backendtest runs an in-process Flow Ledger backend for tests: it
// accepts import uploads, hands out task ids and replays scripted status
// sequences.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"flowLedger/client/dto"
	"flowLedger/client/middleware"
	"flowLedger/client/models"
)

const BasePath = "/api"

type Upload struct {
	Kind          models.ImportKind
	Filename      string
	Content       []byte
	TraceID       string
	Authorization string
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	nextID      int
	scripts     map[models.ImportKind][][]map[string]any
	tasks       map[string][]map[string]any
	statusCalls map[string]int
	uploads     []Upload
	rejectCode  string
	convertKeys []string

	Users      map[string]string
	Currencies []dto.Currency
	// Rates maps base to quote to a decimal rate string.
	Rates      map[string]map[string]string
	RateDate   string
}

func New(t testing.TB) *Server {
	s := &Server{
		scripts:     make(map[models.ImportKind][][]map[string]any),
		tasks:       make(map[string][]map[string]any),
		statusCalls: make(map[string]int),
		Users:       make(map[string]string),
		Rates:       make(map[string]map[string]string),
		RateDate:    "2024-01-31",
	}

	mux := http.NewServeMux()
	for _, kind := range []models.ImportKind{models.ImportReceipt, models.ImportDeposit, models.ImportExchangeRate} {
		kind := kind
		mux.HandleFunc(BasePath+kind.Path(), func(w http.ResponseWriter, r *http.Request) {
			s.upload(w, r, kind)
		})
	}
	mux.HandleFunc(BasePath+"/tasks/", s.status)
	mux.HandleFunc(BasePath+"/auth/login", s.login)
	mux.HandleFunc(BasePath+"/currencies", s.currencies)
	mux.HandleFunc(BasePath+"/exchange-rates", s.exchangeRates)
	mux.HandleFunc(BasePath+"/convert", s.convert)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

// BaseURL returns the API base URL clients should be configured with.
func (s *Server) BaseURL() string {
	return s.Server.URL + BasePath
}

// Script queues a status sequence for the next task created for kind. Each
// record is sent as is with task_id filled in; the last one repeats.
func (s *Server) Script(kind models.ImportKind, records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[kind] = append(s.scripts[kind], records)
}

// RejectTokens makes every authenticated call answer 401 with code.
func (s *Server) RejectTokens(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectCode = code
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) StatusCalls(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCalls[taskID]
}

// ConvertKeys returns the Idempotency-Key header of every convert call, in
// order. Calls without one record "".
func (s *Server) ConvertKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.convertKeys...)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request, kind models.ImportKind) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.rejected(w, r) {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "failed to parse form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "failed to get file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read_failed", "failed to read file")
		return
	}

	s.mu.Lock()
	s.nextID++
	taskID := fmt.Sprintf("t-%d", s.nextID)

	script := defaultScript()
	if queued := s.scripts[kind]; len(queued) > 0 {
		script = queued[0]
		s.scripts[kind] = queued[1:]
	}
	s.tasks[taskID] = script
	s.uploads = append(s.uploads, Upload{
		Kind:          kind,
		Filename:      header.Filename,
		Content:       content,
		TraceID:       r.Header.Get(middleware.TraceHeader),
		Authorization: r.Header.Get("Authorization"),
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusAccepted, dto.TaskHandle{TaskID: taskID})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.rejected(w, r) {
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, BasePath+"/tasks/")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "missing_task_id", "task id is required")
		return
	}

	s.mu.Lock()
	script, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "task_not_found", "task not found")
		return
	}
	idx := s.statusCalls[taskID]
	s.statusCalls[taskID]++
	s.mu.Unlock()

	if idx >= len(script) {
		idx = len(script) - 1
	}

	rec := make(map[string]any, len(script[idx])+1)
	for k, v := range script[idx] {
		rec[k] = v
	}
	rec["task_id"] = taskID

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	s.mu.Lock()
	password, ok := s.Users[req.Username]
	s.mu.Unlock()
	if !ok || password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		AccessToken: "token-" + req.Username,
		ExpiresIn:   3600,
		User:        map[string]any{"username": req.Username},
		Preferences: map[string]any{"base_currency": "USD"},
	})
}

func (s *Server) currencies(w http.ResponseWriter, r *http.Request) {
	if s.rejected(w, r) {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if size < 1 {
		size = 50
	}

	s.mu.Lock()
	all := append([]dto.Currency(nil), s.Currencies...)
	s.mu.Unlock()

	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}

	writeJSON(w, http.StatusOK, dto.CurrencyPage{
		Items:    all[start:end],
		Page:     page,
		PageSize: size,
		Total:    len(all),
		HasNext:  end < len(all),
	})
}

func (s *Server) exchangeRates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.rejected(w, r) {
		return
	}

	base := r.URL.Query().Get("base")
	if base == "" {
		writeError(w, http.StatusBadRequest, "missing_base", "base is required")
		return
	}
	date := r.URL.Query().Get("date")

	s.mu.Lock()
	quotes := s.Rates[base]
	effective := s.RateDate
	if date == "" {
		date = effective
	}
	if quote := r.URL.Query().Get("quote"); quote != "" {
		rate, ok := quotes[quote]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "rate_not_found", "exchange rate not found")
			return
		}
		writeJSON(w, http.StatusOK, dto.ExchangeRates{Base: base, Quote: quote, Date: date, Rate: rate, EffectiveDate: effective})
		return
	}

	rates := make(map[string]dto.RateEntry, len(quotes))
	for quote, rate := range quotes {
		rates[quote] = dto.RateEntry{Rate: rate, EffectiveDate: effective}
	}
	s.mu.Unlock()

	if len(rates) == 0 {
		writeError(w, http.StatusNotFound, "rate_not_found", "exchange rate not found")
		return
	}
	writeJSON(w, http.StatusOK, dto.ExchangeRates{Base: base, Date: date, Rates: rates})
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.rejected(w, r) {
		return
	}

	var req dto.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	amount, ok := new(big.Rat).SetString(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount must be a decimal string")
		return
	}

	s.mu.Lock()
	s.convertKeys = append(s.convertKeys, r.Header.Get("Idempotency-Key"))
	rateText, found := s.Rates[req.From][req.To]
	effective := s.RateDate
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "rate_not_found", "exchange rate not found")
		return
	}
	rate, ok := new(big.Rat).SetString(rateText)
	if !ok {
		writeError(w, http.StatusInternalServerError, "invalid_rate", "stored rate is not a decimal")
		return
	}

	writeJSON(w, http.StatusOK, dto.ConvertResponse{
		Amount:        req.Amount,
		FromCurrency:  req.From,
		ToCurrency:    req.To,
		Rate:          rateText,
		Converted:     new(big.Rat).Mul(amount, rate).FloatString(6),
		EffectiveDate: effective,
	})
}

func (s *Server) rejected(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	code := s.rejectCode
	s.mu.Unlock()

	if code == "" || r.Header.Get("Authorization") == "" {
		return false
	}
	writeError(w, http.StatusUnauthorized, code, "token rejected")
	return true
}

func defaultScript() []map[string]any {
	return []map[string]any{
		{"status": "queued"},
		{"status": "processing", "progress": 50},
		{"status": "succeeded", "progress": 100, "result": map[string]any{}},
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: dto.ErrorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
