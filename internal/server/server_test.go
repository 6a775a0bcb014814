package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelkit/reelkit/internal/config"
	"github.com/reelkit/reelkit/internal/content"
	apperrors "github.com/reelkit/reelkit/internal/errors"
	"github.com/reelkit/reelkit/internal/queue"
	"github.com/reelkit/reelkit/internal/ratelimit"
	"github.com/reelkit/reelkit/internal/retry"
	"github.com/reelkit/reelkit/internal/scheduler"
	"github.com/reelkit/reelkit/internal/server/handlers"
)

type failingPoster struct{ status int }

func (p failingPoster) Name() string { return "failing" }

func (p failingPoster) Post(context.Context, content.Item) error {
	return &scheduler.WebhookError{Status: p.status, Body: "nope"}
}

func testItems() []content.Item {
	return []content.Item{
		{ID: "a", Product: "Desk", Hook: "first"},
		{ID: "b", Product: "Mug", Hook: "second"},
	}
}

func newTestServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	t.Cleanup(handlers.ResetHTTPErrorResponder)
	return New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, deps).Handler()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := do(t, h, http.MethodGet, "/does-not-exist")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)

	rec = do(t, h, http.MethodDelete, "/v1/queue")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, Deps{Version: "1.0.0"})

	rec := do(t, h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health handlers.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "1.0.0", health.Version)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/ready").Code)

	rec = do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "reelkit_http_requests_total")
}

func TestRateLimitsEndpoint(t *testing.T) {
	limiter := ratelimit.New()
	require.NoError(t, limiter.Configure("openai", ratelimit.Limit{MaxRequests: 3, Interval: time.Minute}))
	limiter.RecordCall("openai")

	h := newTestServer(t, Deps{Limiter: limiter})
	rec := do(t, h, http.MethodGet, "/v1/ratelimits")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []handlers.RateLimitStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 1)
	require.Equal(t, "openai", body[0].Service)
	require.Equal(t, 1, body[0].Stats.Used)
	require.Equal(t, 2, body[0].Stats.Available)
	require.Zero(t, body[0].WaitSeconds)
}

func TestQueueEndpoints(t *testing.T) {
	q := queue.New(testItems())
	var out bytes.Buffer
	sched := &scheduler.Scheduler{
		Queue:   q,
		Poster:  scheduler.NewLogPoster(&out),
		Retrier: &retry.Retrier{},
		Policy:  retry.DefaultPolicy(),
	}
	h := newTestServer(t, Deps{Queue: q, Scheduler: sched})

	rec := do(t, h, http.MethodGet, "/v1/queue")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed handlers.QueueResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Equal(t, 2, listed.Size)
	require.Zero(t, listed.Cursor)

	rec = do(t, h, http.MethodPost, "/v1/queue/next")
	require.Equal(t, http.StatusOK, rec.Code)
	var posted handlers.PostResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&posted))
	require.Equal(t, "a", posted.Item.ID)
	require.Equal(t, "posted", posted.Status)
	require.Equal(t, 1, posted.Attempts)
	require.Contains(t, out.String(), "first")
	require.Equal(t, 1, q.Cursor())
}

func TestPostNextFailures(t *testing.T) {
	empty := &scheduler.Scheduler{Queue: queue.New(nil), Poster: scheduler.NewLogPoster(&bytes.Buffer{})}
	rec := do(t, newTestServer(t, Deps{Scheduler: empty}), http.MethodPost, "/v1/queue/next")
	require.Equal(t, http.StatusNotFound, rec.Code)

	auth := &scheduler.Scheduler{Queue: queue.New(testItems()), Poster: failingPoster{status: http.StatusUnauthorized}}
	rec = do(t, newTestServer(t, Deps{Scheduler: auth}), http.MethodPost, "/v1/queue/next")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, apperrors.CodeUnauthorized, decodeError(t, rec).Error.Code)
}

func TestMissingDependenciesAreUnavailable(t *testing.T) {
	h := newTestServer(t, Deps{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/ratelimits"},
		{http.MethodGet, "/v1/queue"},
		{http.MethodPost, "/v1/queue/next"},
		{http.MethodGet, "/v1/posts"},
	} {
		rec := do(t, h, tc.method, tc.path)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)
		require.Equal(t, apperrors.CodeServiceUnavail, decodeError(t, rec).Error.Code)
	}
}

func TestHealthDegradesWhenLimiterExhausted(t *testing.T) {
	limiter := ratelimit.New()
	require.NoError(t, limiter.Configure("poster", ratelimit.Limit{MaxRequests: 1, Interval: time.Hour}))
	limiter.RecordCall("poster")

	h := newTestServer(t, Deps{Limiter: limiter, Queue: queue.New(testItems())})
	rec := do(t, h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health handlers.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.Equal(t, handlers.StatusDegraded, health.Status)
	require.Equal(t, handlers.StatusDegraded, health.Checks["ratelimits"])
	require.Equal(t, handlers.StatusHealthy, health.Checks["queue"])
}
