package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"flowLedger/client/dto"
	"flowLedger/client/middleware"
	"flowLedger/client/models"
)

const DefaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token and is told when the backend
// rejects it.
type TokenSource interface {
	Token() string
	Invalidate()
}

// StaticToken is a TokenSource for a fixed token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }
func (t StaticToken) Invalidate()   {}

// Client talks to the Flow Ledger REST backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: middleware.Chain(http.DefaultTransport, logger),
		},
		tokens: tokens,
		logger: logger,
	}, nil
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.AuthResponse, error) {
	payload, err := json.Marshal(dto.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	var out dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint(nil, "auth", "login"), bytes.NewReader(payload), "application/json", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateImportTask uploads body as the multipart "file" field to the
// kind's import endpoint and returns the task handle.
func (c *Client) CreateImportTask(ctx context.Context, kind models.ImportKind, filename string, body io.Reader) (*dto.TaskHandle, error) {
	path := kind.Path()
	if path == "" {
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var handle dto.TaskHandle
	if err := c.do(ctx, http.MethodPost, c.endpoint(nil, path), &buf, writer.FormDataContentType(), nil, &handle); err != nil {
		return nil, err
	}
	if handle.TaskID == "" {
		return nil, fmt.Errorf("create %s task: %w", kind, ErrEmptyTaskID)
	}

	c.logger.Info("Import task created",
		zap.String("task_id", handle.TaskID),
		zap.String("kind", string(kind)),
		zap.String("filename", filename),
	)

	return &handle, nil
}

// GetTaskStatus calls GET /tasks/{task_id} and decodes the record into out.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string, out any) error {
	if err := checkTaskID(taskID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodGet, c.endpoint(nil, "tasks", taskID), nil, "", nil, out)
}

// ListCurrencies calls GET /currencies for one page.
func (c *Client) ListCurrencies(ctx context.Context, page, pageSize int) (*dto.CurrencyPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}

	var out dto.CurrencyPage
	if err := c.do(ctx, http.MethodGet, c.endpoint(q, "currencies"), nil, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// checkTaskID rejects ids that would change the request path once joined
// onto the base URL.
func checkTaskID(taskID string) error {
	if taskID == "" {
		return ErrEmptyTaskID
	}
	if taskID == "." || taskID == ".." || strings.ContainsAny(taskID, "/\\?#") {
		return fmt.Errorf("%q: %w", taskID, ErrInvalidTaskID)
	}
	return nil
}

func (c *Client) endpoint(query url.Values, elem ...string) string {
	u := c.baseURL.JoinPath(elem...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	for key, values := range header {
		req.Header[key] = values
	}
	c.applyHeaders(req, contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp.StatusCode, data)
		if apiErr.SessionExpired() && c.tokens != nil {
			c.logger.Warn("Session rejected by backend", zap.String("code", apiErr.Code))
			c.tokens.Invalidate()
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) applyHeaders(req *http.Request, contentType string) {
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens == nil {
		return
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(data)}

	var envelope dto.ErrorResponse
	if err := json.Unmarshal(data, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
