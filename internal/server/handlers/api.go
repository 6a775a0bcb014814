package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/reelkit/reelkit/internal/content"
	"github.com/reelkit/reelkit/internal/errclass"
	apperrors "github.com/reelkit/reelkit/internal/errors"
	"github.com/reelkit/reelkit/internal/queue"
	"github.com/reelkit/reelkit/internal/ratelimit"
	"github.com/reelkit/reelkit/internal/scheduler"
	"github.com/reelkit/reelkit/internal/store"
)

const (
	defaultPostLimit = 50
	maxPostLimit     = 500
)

// API serves the /v1 endpoints. Nil dependencies make their endpoints
// answer SERVICE_UNAVAILABLE.
type API struct {
	Limiter   *ratelimit.Registry
	Queue     *queue.Queue
	Scheduler *scheduler.Scheduler
	Store     *store.Store
}

// RateLimitStatus is one configured service in the /v1/ratelimits response.
type RateLimitStatus struct {
	Service     string          `json:"service"`
	Limit       ratelimit.Limit `json:"limit"`
	Stats       ratelimit.Stats `json:"stats"`
	WaitSeconds float64         `json:"wait_seconds"`
}

// QueueResponse lists queued items in rotation order.
type QueueResponse struct {
	Size   int            `json:"size"`
	Cursor int            `json:"cursor"`
	Items  []content.Item `json:"items"`
}

// PostResult is the outcome of POST /v1/queue/next.
type PostResult struct {
	Item     content.Item `json:"item"`
	Status   string       `json:"status"`
	Attempts int          `json:"attempts"`
	Category string       `json:"category,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// PostsResponse wraps the post log listing.
type PostsResponse struct {
	Posts []store.Post `json:"posts"`
	Count int          `json:"count"`
}

// RateLimits reports usage for every configured service.
func (a *API) RateLimits(w http.ResponseWriter, r *http.Request) {
	if a.Limiter == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("rate limiter not configured"))
		return
	}

	services := a.Limiter.Services()
	out := make([]RateLimitStatus, 0, len(services))
	for _, name := range services {
		limit, _ := a.Limiter.Limit(name)
		stats, _ := a.Limiter.Statistics(name)
		out = append(out, RateLimitStatus{
			Service:     name,
			Limit:       limit,
			Stats:       stats,
			WaitSeconds: a.Limiter.WaitTime(name).Seconds(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListQueue returns the queue contents.
func (a *API) ListQueue(w http.ResponseWriter, r *http.Request) {
	if a.Queue == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("content queue not loaded"))
		return
	}
	items := a.Queue.Items()
	if items == nil {
		items = []content.Item{}
	}
	writeJSON(w, http.StatusOK, QueueResponse{Size: len(items), Cursor: a.Queue.Cursor(), Items: items})
}

// PostNext posts the next queued item through the scheduler. A failed post
// answers with the classified error envelope.
func (a *API) PostNext(w http.ResponseWriter, r *http.Request) {
	if a.Scheduler == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("scheduler not configured"))
		return
	}

	result, err := a.Scheduler.Tick(r.Context())
	if errors.Is(err, scheduler.ErrQueueEmpty) {
		respondWithError(w, r, apperrors.NewNotFoundError("content queue is empty"))
		return
	}
	if err != nil {
		envelope := apperrors.FromCategory(errclass.Categorize(err), err)
		if updated, updateErr := envelope.WithContext(map[string]interface{}{
			"category": string(result.Category),
			"attempts": result.Attempts,
			"item_id":  result.Item.ID,
		}); updateErr == nil {
			envelope = updated
		}
		respondWithError(w, r, envelope)
		return
	}

	writeJSON(w, http.StatusOK, PostResult{
		Item:     result.Item,
		Status:   result.Status,
		Attempts: result.Attempts,
	})
}

// ListPosts returns recent post log rows. Query params: limit, status, product.
func (a *API) ListPosts(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("post log store not configured"))
		return
	}

	limit := defaultPostLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxPostLimit {
			respondWithError(w, r, apperrors.NewInvalidInputError("limit must be between 1 and "+strconv.Itoa(maxPostLimit)))
			return
		}
		limit = parsed
	}

	query := store.PostQuery{
		Status:  strings.TrimSpace(r.URL.Query().Get("status")),
		Product: strings.TrimSpace(r.URL.Query().Get("product")),
	}
	query.All = query.Status == "" && query.Product == ""

	posts, err := a.Store.ListPosts(r.Context(), query, limit)
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.NewDatabaseError("failed to list posts"), err))
		return
	}
	if posts == nil {
		posts = []store.Post{}
	}
	writeJSON(w, http.StatusOK, PostsResponse{Posts: posts, Count: len(posts)})
}
