package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stayradar/stayradar/internal/events"
	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/query"
	"github.com/stayradar/stayradar/internal/scraper"
)

// Searcher runs one paginated scrape. Satisfied by scraper.Service.
type Searcher interface {
	Search(ctx context.Context, criteria models.SearchCriteria, sink scraper.ListingSink, progress scraper.ProgressFunc) scraper.Report
}

// ListingStore persists one page of results for a group. Satisfied by
// database.ListingRepository.
type ListingStore interface {
	UpsertPage(ctx context.Context, groupID int64, page []models.ListingSummary) error
}

// ProgressSink publishes per-page progress. Satisfied by
// events.ProgressPublisher.
type ProgressSink interface {
	Publish(ctx context.Context, update events.ProgressUpdate)
}

// Worker consumes scrape jobs and runs them to completion, one at a time.
// Multiple workers may run concurrently against the same queue; they share
// the process-wide proxy pool through the scrape service.
type Worker struct {
	queue    *Queue
	searcher Searcher
	store    ListingStore
	progress ProgressSink
	logger   *slog.Logger
}

func NewWorker(queue *Queue, searcher Searcher, store ListingStore, progress ProgressSink, logger *slog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		searcher: searcher,
		store:    store,
		progress: progress,
		logger:   logger.With("component", "worker"),
	}
}

// Run consumes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopping")
			return
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrNoJob) || ctx.Err() != nil {
				continue
			}
			w.logger.Error("dequeue failed", "error", err)
			continue
		}

		w.Process(ctx, job)
	}
}

// Process runs one scrape job. A job never fails the worker loop: every
// outcome, including a fatal stop, is reported through the run report.
func (w *Worker) Process(ctx context.Context, job *models.ScrapeJob) scraper.Report {
	logger := w.logger.With("job_id", job.ID, "group_id", job.GroupID)

	budget := job.PageEnd - job.PageStart + 1
	criteria, err := query.CriteriaFromWire(job.Criteria, budget)
	if err != nil {
		logger.Error("invalid job payload", "error", err)
		return scraper.Report{Reason: scraper.ReasonFatal, Detail: err.Error()}
	}

	logger.Info("processing job", "location", criteria.Location, "pages", criteria.MaxPages)

	sink := scraper.SinkFunc(func(ctx context.Context, page []models.ListingSummary) error {
		return w.store.UpsertPage(ctx, job.GroupID, page)
	})

	report := w.searcher.Search(ctx, criteria, sink, func(fetched, total int) {
		w.progress.Publish(ctx, events.ProgressUpdate{
			JobID:        job.ID,
			GroupID:      job.GroupID,
			PagesFetched: fetched,
			PagesTotal:   total,
		})
	})

	logger.Info("job finished",
		"pages", report.PagesCompleted,
		"listings", report.ListingsEmitted,
		"reason", report.TerminalReason(),
		"more_pages", report.MorePages)
	return report
}
