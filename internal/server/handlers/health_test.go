package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okCheck(context.Context) error { return nil }

func failCheck(context.Context) error { return errors.New("database is closed") }

func TestHealthReportsEveryCheck(t *testing.T) {
	manager := NewHealthManager("0.4.0")
	manager.RegisterChecker("store", CheckFunc(okCheck))

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, "0.4.0", resp.Version)
	require.Equal(t, map[string]string{"store": "healthy"}, resp.Checks)
}

func TestHealthWithoutChecksIsHealthy(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthManager("dev").HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthFailingStoreReturnsEnvelope(t *testing.T) {
	manager := NewHealthManager("0.4.0")
	manager.RegisterChecker("store", CheckFunc(failCheck))
	manager.RegisterChecker("queue", CheckFunc(okCheck))

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)

	checks, ok := resp.Error.Details["checks"].(map[string]any)
	require.True(t, ok, "details should carry the per-check results")
	require.Equal(t, "unhealthy", checks["store"])
	require.Equal(t, "healthy", checks["queue"])
}

func TestTimedOutCheckDegrades(t *testing.T) {
	manager := NewHealthManager("dev")
	require.Equal(t, "degraded", manager.determineOverallStatus(map[string]string{"store": "timeout"}))
	require.Equal(t, "unhealthy", manager.determineOverallStatus(map[string]string{"store": "timeout", "queue": "unhealthy"}))
	require.Equal(t, "healthy", manager.determineOverallStatus(nil))
}

func TestReadinessAndLiveness(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("store", CheckFunc(failCheck))

	rec := httptest.NewRecorder()
	manager.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	manager.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDegradedCheckKeepsServing(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("queue", CheckFunc(func(context.Context) error { return ErrDegraded }))

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, StatusDegraded, resp.Status)
	require.Equal(t, StatusDegraded, resp.Checks["queue"])
}

func TestHungCheckReportsTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	manager := NewHealthManager("dev")
	manager.RegisterChecker("webhook", CheckFunc(func(context.Context) error {
		<-release
		return nil
	}))
	manager.RegisterChecker("store", CheckFunc(okCheck))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	checks := manager.runHealthChecks(ctx)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, StatusTimeout, checks["webhook"])
	require.Equal(t, StatusHealthy, checks["store"])
	require.Equal(t, StatusDegraded, manager.determineOverallStatus(checks))
}
