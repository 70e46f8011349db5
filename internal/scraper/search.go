package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/stayradar/stayradar/internal/fetch"
	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/parser"
	"github.com/stayradar/stayradar/internal/proxy"
	"github.com/stayradar/stayradar/internal/query"
)

// Reason states why a run terminated.
type Reason string

const (
	// ReasonExhaustedCursor: the site returned no continuation cursor,
	// the natural end of the result set.
	ReasonExhaustedCursor Reason = "exhausted-cursor"
	// ReasonBudgetReached: the page budget ran out while a cursor was
	// still present; the caller may schedule a continuation.
	ReasonBudgetReached Reason = "budget-reached"
	// ReasonFatal: the run stopped early. Everything gathered before the
	// stop is still returned as a partial success.
	ReasonFatal Reason = "fatal-error"
)

// Report is the outcome of one search run. A run never fails outright:
// whatever was emitted before a terminal condition still counts.
type Report struct {
	PagesCompleted  int
	ListingsEmitted int
	Reason          Reason
	Detail          string
	MorePages       bool
}

// TerminalReason renders the reason in its operator-facing form,
// "fatal-error:<detail>" for fatal stops.
func (r Report) TerminalReason() string {
	if r.Reason == ReasonFatal && r.Detail != "" {
		return string(ReasonFatal) + ":" + r.Detail
	}
	return string(r.Reason)
}

// Search runs the paginated search loop: build URL, fetch, parse, emit,
// follow the cursor. One header profile and one initially selected proxy
// are held for the whole run so a multi-page session looks like a single
// client; the proxy is swapped only after it fails.
func (s *Service) Search(ctx context.Context, criteria models.SearchCriteria, sink ListingSink, progress ProgressFunc) Report {
	budget := criteria.MaxPages
	if budget < 1 {
		budget = 1
	}

	profile := s.headers.RandomProfile()
	hdrs := profile.Header()
	current := s.pool.HealthyProxy(s.cfg.Strategy)

	path, params := query.Build(criteria)

	s.logger.Info("search run starting",
		"location", criteria.Location,
		"checkin", criteria.Checkin,
		"checkout", criteria.Checkout,
		"page_budget", budget,
		"proxy", proxyName(current))

	var report Report
	cursor := ""

	for page := 1; page <= budget; page++ {
		if err := ctx.Err(); err != nil {
			return s.finish(report, ReasonFatal, err.Error())
		}

		pageParams := params
		if cursor != "" {
			pageParams = query.WithCursor(params, cursor)
		}

		out, dropped := s.fetchWithFallback(ctx, path, pageParams, hdrs, current)
		if dropped {
			current = nil
		}

		switch out.Kind {
		case fetch.KindRetryable:
			// Proxy and direct both failed for this page.
			return s.finish(report, ReasonFatal, fmt.Sprintf("network failure: %v", out.Err))
		case fetch.KindFatal:
			return s.finish(report, ReasonFatal, fmt.Sprintf("http failure: %v", out.Err))
		}

		listings, nextCursor, err := s.parser.ParseSearch(out.Body)
		if err != nil {
			detail := "parse failure"
			if errors.Is(err, parser.ErrUpstreamFormat) {
				detail = "upstream format changed"
			}
			return s.finish(report, ReasonFatal, fmt.Sprintf("%s: %v", detail, err))
		}

		if len(listings) > 0 {
			if err := sink.EmitPage(ctx, listings); err != nil {
				s.logger.Error("listing sink failed", "page", page, "error", err)
			}
		}

		report.PagesCompleted = page
		report.ListingsEmitted += len(listings)
		if progress != nil {
			progress(page, budget)
		}

		s.logger.Info("page complete", "page", page, "listings", len(listings), "has_cursor", nextCursor != "")

		if nextCursor == "" {
			return s.finish(report, ReasonExhaustedCursor, "")
		}
		cursor = nextCursor

		if page == budget {
			report.MorePages = true
			return s.finish(report, ReasonBudgetReached, "")
		}

		// A proxy lost mid-run is replaced for the following pages.
		if current == nil {
			current = s.pool.HealthyProxy(s.cfg.Strategy)
		}

		if err := sleep(ctx, s.headers.RandomDelay(s.cfg.DelayMin, s.cfg.DelayMax)); err != nil {
			return s.finish(report, ReasonFatal, err.Error())
		}
	}

	// Unreachable: the loop always exits through a terminal branch.
	return s.finish(report, ReasonBudgetReached, "")
}

func (s *Service) finish(report Report, reason Reason, detail string) Report {
	report.Reason = reason
	report.Detail = detail
	s.logger.Info("search run finished",
		"pages", report.PagesCompleted,
		"listings", report.ListingsEmitted,
		"reason", report.TerminalReason())
	return report
}

func proxyName(ep *proxy.Endpoint) string {
	if ep == nil {
		return "direct"
	}
	return ep.Host()
}
