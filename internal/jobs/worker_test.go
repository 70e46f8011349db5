package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayradar/stayradar/internal/events"
	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/scraper"
)

// stubSearcher simulates a run by pushing scripted pages through the sink.
type stubSearcher struct {
	pages    [][]models.ListingSummary
	report   scraper.Report
	criteria models.SearchCriteria
}

func (s *stubSearcher) Search(ctx context.Context, criteria models.SearchCriteria, sink scraper.ListingSink, progress scraper.ProgressFunc) scraper.Report {
	s.criteria = criteria
	for i, page := range s.pages {
		_ = sink.EmitPage(ctx, page)
		if progress != nil {
			progress(i+1, criteria.MaxPages)
		}
	}
	return s.report
}

type stubStore struct {
	groups []int64
	pages  [][]models.ListingSummary
	err    error
}

func (s *stubStore) UpsertPage(_ context.Context, groupID int64, page []models.ListingSummary) error {
	s.groups = append(s.groups, groupID)
	s.pages = append(s.pages, page)
	return s.err
}

type stubProgress struct {
	updates []events.ProgressUpdate
}

func (s *stubProgress) Publish(_ context.Context, update events.ProgressUpdate) {
	s.updates = append(s.updates, update)
}

func TestProcessRunsJobThroughPipeline(t *testing.T) {
	searcher := &stubSearcher{
		pages: [][]models.ListingSummary{
			{{AirbnbID: "1"}, {AirbnbID: "2"}},
			{{AirbnbID: "3"}},
		},
		report: scraper.Report{PagesCompleted: 2, ListingsEmitted: 3, Reason: scraper.ReasonExhaustedCursor},
	}
	store := &stubStore{}
	progress := &stubProgress{}
	w := NewWorker(nil, searcher, store, progress, slog.Default())

	job := validJob()
	job.ID = "job-1"
	job.PageEnd = 3
	report := w.Process(context.Background(), &job)

	assert.Equal(t, scraper.ReasonExhaustedCursor, report.Reason)
	assert.Equal(t, 3, searcher.criteria.MaxPages, "budget must be page_end - page_start + 1")
	assert.Equal(t, "Zürich", searcher.criteria.Location)

	require.Len(t, store.pages, 2)
	assert.Equal(t, []int64{42, 42}, store.groups)

	require.Len(t, progress.updates, 2)
	assert.Equal(t, "job-1", progress.updates[0].JobID)
	assert.Equal(t, int64(42), progress.updates[0].GroupID)
	assert.Equal(t, 1, progress.updates[0].PagesFetched)
	assert.Equal(t, 3, progress.updates[0].PagesTotal)
}

func TestProcessInvalidPayloadIsFatalNotPanic(t *testing.T) {
	w := NewWorker(nil, &stubSearcher{}, &stubStore{}, &stubProgress{}, slog.Default())

	job := validJob()
	job.Criteria.Checkin = ""
	report := w.Process(context.Background(), &job)

	assert.Equal(t, scraper.ReasonFatal, report.Reason)
	assert.NotEmpty(t, report.Detail)
}

func TestProcessStoreErrorDoesNotStopRun(t *testing.T) {
	searcher := &stubSearcher{
		pages:  [][]models.ListingSummary{{{AirbnbID: "1"}}},
		report: scraper.Report{PagesCompleted: 1, ListingsEmitted: 1, Reason: scraper.ReasonExhaustedCursor},
	}
	store := &stubStore{err: errors.New("db down")}
	w := NewWorker(nil, searcher, store, &stubProgress{}, slog.Default())

	job := validJob()
	report := w.Process(context.Background(), &job)
	assert.Equal(t, scraper.ReasonExhaustedCursor, report.Reason)
}
