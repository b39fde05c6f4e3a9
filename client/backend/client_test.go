package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flowLedger/client/backend/backendtest"
	"flowLedger/client/dto"
	"flowLedger/client/middleware"
	"flowLedger/client/models"
	"flowLedger/client/poller"
)

type recordingTokens struct {
	token       string
	invalidated atomic.Int32
}

func (r *recordingTokens) Token() string { return r.token }
func (r *recordingTokens) Invalidate()   { r.invalidated.Add(1) }

func newTestClient(t *testing.T, baseURL string, tokens TokenSource) *Client {
	c, err := NewClient(baseURL, time.Second, tokens, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/api", time.Second, nil, nil)
	assert.Error(t, err)
}

func TestClient_CreateImportTask(t *testing.T) {
	srv := backendtest.New(t)
	c := newTestClient(t, srv.BaseURL(), StaticToken("secret"))

	ctx := middleware.WithTraceID(context.Background(), "trace-1")
	handle, err := c.CreateImportTask(ctx, models.ImportDeposit, "deposits.xlsx", strings.NewReader("PK\x03\x04rest"))
	require.NoError(t, err)
	assert.Equal(t, "t-1", handle.TaskID)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, models.ImportDeposit, uploads[0].Kind)
	assert.Equal(t, "deposits.xlsx", uploads[0].Filename)
	assert.Equal(t, []byte("PK\x03\x04rest"), uploads[0].Content)
	assert.Equal(t, "trace-1", uploads[0].TraceID)
	assert.Equal(t, "Bearer secret", uploads[0].Authorization)
}

func TestClient_CreateImportTask_UnknownKind(t *testing.T) {
	c := newTestClient(t, "http://localhost:1/api", nil)

	_, err := c.CreateImportTask(context.Background(), models.ImportKind("payroll"), "x.csv", strings.NewReader(""))
	assert.Error(t, err)
}

func TestClient_CreateImportTask_EmptyTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id":""}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	_, err := c.CreateImportTask(context.Background(), models.ImportReceipt, "r.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrEmptyTaskID)
}

func TestClient_GetTaskStatus_KeepsBasePath(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"task_id":"t-9","status":"processing","progress":40,"stage":"parsing","filename":"a.csv","size":12}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/", nil)

	var rec dto.TaskStatus[dto.ExchangeRateImportResult]
	require.NoError(t, c.GetTaskStatus(context.Background(), "t-9", &rec))

	assert.Equal(t, "/api/tasks/t-9", path)
	assert.Equal(t, models.StatusProcessing, rec.Status)
	assert.Equal(t, 40.0, rec.Progress)
	assert.Equal(t, "parsing", rec.Stage)
	assert.Equal(t, "a.csv", rec.Filename)
	assert.Equal(t, int64(12), rec.Size)
	assert.Nil(t, rec.Result)
}

func TestClient_GetTaskStatus_EmptyID(t *testing.T) {
	c := newTestClient(t, "http://localhost:1/api", nil)
	assert.ErrorIs(t, c.GetTaskStatus(context.Background(), "", &struct{}{}), ErrEmptyTaskID)
}

func TestClient_GetTaskStatus_RejectsPathLikeIDs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api", nil)

	for _, id := range []string{"../auth/login", "..", ".", "a/b", `a\b`, "t-1?x=1", "t-1#frag"} {
		t.Run(id, func(t *testing.T) {
			err := c.GetTaskStatus(context.Background(), id, &struct{}{})
			assert.ErrorIs(t, err, ErrInvalidTaskID)
		})
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_GetTaskStatus_NotFound(t *testing.T) {
	srv := backendtest.New(t)
	c := newTestClient(t, srv.BaseURL(), nil)

	err := c.GetTaskStatus(context.Background(), "missing", &dto.TaskStatus[json.RawMessage]{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "task_not_found", apiErr.Code)
	assert.Equal(t, "http 404: task not found (task_not_found)", apiErr.Error())
	assert.False(t, IsTransient(err))
}

func TestClient_InvalidatesSessionOnRejectedToken(t *testing.T) {
	tests := []struct {
		code           string
		wantInvalidate bool
	}{
		{"token_expired", true},
		{"invalid_token_signature", true},
		{"unauthorized", true},
		{"forbidden_scope", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			srv := backendtest.New(t)
			srv.RejectTokens(tt.code)

			tokens := &recordingTokens{token: "stale"}
			c := newTestClient(t, srv.BaseURL(), tokens)

			_, err := c.ListCurrencies(context.Background(), 1, 10)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

			want := int32(0)
			if tt.wantInvalidate {
				want = 1
			}
			assert.Equal(t, want, tokens.invalidated.Load())
		})
	}
}

func TestClient_Login(t *testing.T) {
	srv := backendtest.New(t)
	srv.Users["ada"] = "hunter2"

	c := newTestClient(t, srv.BaseURL(), nil)

	resp, err := c.Login(context.Background(), "ada", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "token-ada", resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	_, err = c.Login(context.Background(), "ada", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
}

func TestClient_ListCurrencies_Pages(t *testing.T) {
	srv := backendtest.New(t)
	srv.Currencies = []dto.Currency{
		{Code: "USD", Name: "US Dollar", Scale: 2},
		{Code: "EUR", Name: "Euro", Scale: 2},
		{Code: "JPY", Name: "Yen", Scale: 0},
	}

	c := newTestClient(t, srv.BaseURL(), nil)

	first, err := c.ListCurrencies(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.True(t, first.HasNext)

	second, err := c.ListCurrencies(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "JPY", second.Items[0].Code)
	assert.False(t, second.HasNext)
}

func TestAPIError_PlainBody(t *testing.T) {
	apiErr := decodeError(http.StatusBadGateway, []byte("upstream down"))
	assert.Equal(t, "http 502: upstream down", apiErr.Error())
	assert.True(t, IsTransient(apiErr))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &APIError{StatusCode: 503}, true},
		{"rate limited", fmt.Errorf("poll: %w", &APIError{StatusCode: 429}), true},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"truncated body", io.ErrUnexpectedEOF, true},
		{"decode", errors.New("decode response: invalid character"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestStatusFetcher_DrivesPoller(t *testing.T) {
	srv := backendtest.New(t)
	srv.Script(models.ImportExchangeRate,
		map[string]any{"status": "queued"},
		map[string]any{"status": "processing", "progress": 40},
		map[string]any{"status": "succeeded", "progress": 100, "result": map[string]any{
			"total": 10, "created": 8, "updated": 0, "failed": 2,
		}},
	)

	c := newTestClient(t, srv.BaseURL(), nil)
	handle, err := c.CreateImportTask(context.Background(), models.ImportExchangeRate, "rates.csv", strings.NewReader("base,quote\n"))
	require.NoError(t, err)

	p := poller.New[dto.ExchangeRateImportResult](poller.Config{PollInterval: time.Millisecond, Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	rec, err := p.Wait(context.Background(), handle.TaskID, StatusFetcher[dto.ExchangeRateImportResult](c))
	require.NoError(t, err)

	require.NotNil(t, rec.Result)
	assert.Equal(t, 10, rec.Result.Total)
	assert.Equal(t, 8, rec.Result.Created)
	assert.Equal(t, 2, rec.Result.Failed)
	assert.Equal(t, 3, srv.StatusCalls(handle.TaskID))
}
