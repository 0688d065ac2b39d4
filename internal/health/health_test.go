package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAllHealthy(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("store", true, func(context.Context) error { return nil })
	r.Register("redis", false, func(context.Context) error { return nil })

	report := r.Check(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Len(t, report.Components, 2)
}

func TestNonCriticalFailureDegrades(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("store", true, func(context.Context) error { return nil })
	r.Register("redis", false, func(context.Context) error { return errors.New("connection refused") })

	report := r.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusDegraded, report.Components["redis"].Status)
	assert.Equal(t, StatusHealthy, report.Components["store"].Status)
}

func TestCriticalFailureUnhealthy(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("store", true, func(context.Context) error { return errors.New("ping failed") })

	report := r.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "ping failed", report.Components["store"].Error)
}

func TestHandlerStatusCodes(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register("redis", false, func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "degraded still serves 200")

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)

	r.Register("store", true, func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
