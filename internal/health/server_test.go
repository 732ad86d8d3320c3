package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	srv := New(":0", false, nil, nil)
	code, body := get(t, srv.Handler(), "/health")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OK", body)
}

func TestServer_Ready(t *testing.T) {
	t.Parallel()

	t.Run("no database", func(t *testing.T) {
		t.Parallel()
		code, _ := get(t, New(":0", false, nil, nil).Handler(), "/ready")
		require.Equal(t, http.StatusOK, code)
	})

	t.Run("database reachable", func(t *testing.T) {
		t.Parallel()
		db := pingerFunc(func(context.Context) error { return nil })
		code, body := get(t, New(":0", false, db, nil).Handler(), "/ready")
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "OK", body)
	})

	t.Run("database down", func(t *testing.T) {
		t.Parallel()
		db := pingerFunc(func(context.Context) error { return errors.New("connection refused") })
		code, body := get(t, New(":0", false, db, nil).Handler(), "/ready")
		require.Equal(t, http.StatusServiceUnavailable, code)
		require.Contains(t, body, "database unavailable")
	})
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		code, _ := get(t, New(":0", false, nil, nil).Handler(), "/metrics")
		require.Equal(t, http.StatusNotFound, code)
	})

	t.Run("custom registry", func(t *testing.T) {
		t.Parallel()
		reg := prometheus.NewRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "health_test_total", Help: "test"})
		reg.MustRegister(counter)
		counter.Inc()

		code, body := get(t, New(":0", true, nil, reg).Handler(), "/metrics")
		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, "health_test_total 1")
	})
}

func TestServer_StartShutdown(t *testing.T) {
	t.Parallel()

	srv := New("127.0.0.1:0", false, nil, nil)
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, <-done)
}
