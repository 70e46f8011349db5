// Package api exposes the scrape pipeline over HTTP: synchronous search
// runs, async job intake, listing details and the price-range probe.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stayradar/stayradar/internal/database"
	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/proxy"
	"github.com/stayradar/stayradar/internal/query"
	"github.com/stayradar/stayradar/internal/scraper"
)

// ScrapeService is the surface of scraper.Service the handlers use.
type ScrapeService interface {
	Search(ctx context.Context, criteria models.SearchCriteria, sink scraper.ListingSink, progress scraper.ProgressFunc) scraper.Report
	ListingDetail(ctx context.Context, roomID string) (*models.ListingDetail, error)
	PriceRange(ctx context.Context, criteria models.SearchCriteria) (int, int)
}

// JobQueue is the intake side of jobs.Queue.
type JobQueue interface {
	Enqueue(ctx context.Context, job models.ScrapeJob) (string, error)
	Size(ctx context.Context) (int64, error)
}

// PoolInfo reports proxy pool health. Satisfied by proxy.Pool.
type PoolInfo interface {
	Status() proxy.Status
}

// ListingStore reads and enriches persisted listings. Satisfied by
// database.ListingRepository.
type ListingStore interface {
	ByGroup(ctx context.Context, groupID int64) ([]database.Listing, error)
	SaveDetail(ctx context.Context, groupID int64, airbnbID string, detail *models.ListingDetail) error
}

type Handlers struct {
	scraper ScrapeService
	queue   JobQueue
	store   ListingStore
	pool    PoolInfo
	logger  *slog.Logger

	// maxPages caps synchronous runs so a request cannot hold an HTTP
	// connection open for an unbounded crawl.
	maxPages int
}

func NewHandlers(scraper ScrapeService, queue JobQueue, store ListingStore, pool PoolInfo, maxPages int, logger *slog.Logger) *Handlers {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Handlers{
		scraper:  scraper,
		queue:    queue,
		store:    store,
		pool:     pool,
		logger:   logger.With("component", "api"),
		maxPages: maxPages,
	}
}

// SearchRequest is the body of a synchronous search call.
type SearchRequest struct {
	models.Criteria
	MaxPages int `json:"max_pages"`
}

// SearchResponse carries the collected listings together with the run
// report, so partial successes remain visible to the caller.
type SearchResponse struct {
	Listings        []models.ListingSummary `json:"listings"`
	PagesCompleted  int                     `json:"pages_completed"`
	ListingsEmitted int                     `json:"listings_emitted"`
	Reason          string                  `json:"reason"`
	MorePages       bool                    `json:"more_pages"`
}

// Search runs a scrape inline and returns everything it gathered.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	maxPages := req.MaxPages
	if maxPages < 1 || maxPages > h.maxPages {
		maxPages = h.maxPages
	}
	criteria, err := query.CriteriaFromWire(req.Criteria, maxPages)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var collected []models.ListingSummary
	sink := scraper.SinkFunc(func(_ context.Context, page []models.ListingSummary) error {
		collected = append(collected, page...)
		return nil
	})

	report := h.scraper.Search(r.Context(), criteria, sink, nil)

	h.respondJSON(w, http.StatusOK, SearchResponse{
		Listings:        collected,
		PagesCompleted:  report.PagesCompleted,
		ListingsEmitted: report.ListingsEmitted,
		Reason:          report.TerminalReason(),
		MorePages:       report.MorePages,
	})
}

// AsyncSearchRequest is the body of a job submission.
type AsyncSearchRequest struct {
	GroupID   int64           `json:"group_id"`
	Criteria  models.Criteria `json:"criteria"`
	PageStart int             `json:"page_start"`
	PageEnd   int             `json:"page_end"`
}

// AsyncSearchResponse acknowledges a queued job.
type AsyncSearchResponse struct {
	JobID     string `json:"job_id"`
	QueueSize int64  `json:"queue_size"`
}

// SearchAsync queues a scrape job for the worker instead of running it
// inline.
func (h *Handlers) SearchAsync(w http.ResponseWriter, r *http.Request) {
	var req AsyncSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.queue.Enqueue(r.Context(), models.ScrapeJob{
		GroupID:   req.GroupID,
		Criteria:  req.Criteria,
		PageStart: req.PageStart,
		PageEnd:   req.PageEnd,
	})
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	size, err := h.queue.Size(r.Context())
	if err != nil {
		h.logger.Warn("queue size unavailable", "error", err)
	}
	h.respondJSON(w, http.StatusAccepted, AsyncSearchResponse{JobID: id, QueueSize: size})
}

// GetListing fetches and parses a single detail page.
func (h *Handlers) GetListing(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		h.respondError(w, http.StatusBadRequest, "room id is required")
		return
	}

	detail, err := h.scraper.ListingDetail(r.Context(), roomID)
	if err != nil {
		h.logger.Error("listing detail failed", "room_id", roomID, "error", err)
		h.respondError(w, http.StatusBadGateway, "failed to fetch listing")
		return
	}
	h.respondJSON(w, http.StatusOK, detail)
}

// PriceRangeResponse reports the observed price histogram bounds.
type PriceRangeResponse struct {
	MinPrice int `json:"min_price"`
	MaxPrice int `json:"max_price"`
}

// GetPriceRange probes the price histogram for a location and stay window.
func (h *Handlers) GetPriceRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	adults, _ := strconv.Atoi(q.Get("adults"))
	criteria, err := query.CriteriaFromWire(models.Criteria{
		Location: q.Get("location"),
		Checkin:  q.Get("checkin"),
		Checkout: q.Get("checkout"),
		Adults:   adults,
	}, 1)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	min, max := h.scraper.PriceRange(r.Context(), criteria)
	h.respondJSON(w, http.StatusOK, PriceRangeResponse{MinPrice: min, MaxPrice: max})
}

// GetGroupListings returns everything persisted for a group, cheapest
// first.
func (h *Handlers) GetGroupListings(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	listings, err := h.store.ByGroup(r.Context(), groupID)
	if err != nil {
		h.logger.Error("group lookup failed", "group_id", groupID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load listings")
		return
	}
	h.respondJSON(w, http.StatusOK, listings)
}

// RefreshListingDetail scrapes the detail page for a stored listing and
// persists the result on its row.
func (h *Handlers) RefreshListingDetail(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	airbnbID := chi.URLParam(r, "airbnbID")

	detail, err := h.scraper.ListingDetail(r.Context(), airbnbID)
	if err != nil {
		h.logger.Error("listing detail failed", "room_id", airbnbID, "error", err)
		h.respondError(w, http.StatusBadGateway, "failed to fetch listing")
		return
	}
	if err := h.store.SaveDetail(r.Context(), groupID, airbnbID, detail); err != nil {
		h.logger.Error("detail save failed", "group_id", groupID, "room_id", airbnbID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to save detail")
		return
	}
	h.respondJSON(w, http.StatusOK, detail)
}

// GetProxies reports pool health for operators.
func (h *Handlers) GetProxies(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.pool.Status())
}

// Health is the liveness endpoint; it also surfaces queue depth.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "ok",
		"proxy":  h.pool.Status(),
	}
	if h.queue != nil {
		if size, err := h.queue.Size(r.Context()); err == nil {
			health["queued_jobs"] = size
		}
	}
	h.respondJSON(w, http.StatusOK, health)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
