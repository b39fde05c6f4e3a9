package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTraceID_GeneratesHeader(t *testing.T) {
	var seen string
	rt := TraceID(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Get(TraceHeader)
		assert.Equal(t, seen, GetTraceID(r.Context()))
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "http://backend/tasks/t-1", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)

	_, err = uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Empty(t, req.Header.Get(TraceHeader), "original request must not be mutated")
}

func TestTraceID_UsesContextValue(t *testing.T) {
	traceID := uuid.New().String()

	var seen string
	rt := TraceID(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Get(TraceHeader)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "http://backend/tasks/t-1", nil)
	req = req.WithContext(WithTraceID(req.Context(), traceID))

	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, traceID, seen)
}

func TestTraceID_KeepsExistingHeader(t *testing.T) {
	var seen string
	rt := TraceID(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Get(TraceHeader)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "http://backend/tasks/t-1", nil)
	req.Header.Set(TraceHeader, "fixed")

	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed", seen)
}

func TestEnsureTraceID(t *testing.T) {
	ctx, first := EnsureTraceID(context.Background())
	require.NotEmpty(t, first)

	_, second := EnsureTraceID(ctx)
	assert.Equal(t, first, second)
}

func TestLogging_PassesThroughErrors(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	rt := Logging(zaptest.NewLogger(t))(RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	}))

	req := httptest.NewRequest(http.MethodGet, "http://backend/tasks/t-1", nil)
	resp, err := rt.RoundTrip(req)
	assert.Nil(t, resp)
	assert.Equal(t, boom, err)
}

func TestChain_AgainstServer(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(TraceHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: Chain(srv.Client().Transport, zaptest.NewLogger(t))}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, seen)
}
