// Package scraper drives the fetch/parse/retry pipeline: the paginated
// search run, the single-listing detail fetch and the price-range probe.
package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/stayradar/stayradar/internal/fetch"
	"github.com/stayradar/stayradar/internal/headers"
	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/parser"
	"github.com/stayradar/stayradar/internal/proxy"
)

// Fetcher issues one upstream request. Satisfied by fetch.Executor;
// narrowed to an interface so runs can be tested without a network.
type Fetcher interface {
	Do(ctx context.Context, rawURL string, params url.Values, hdrs map[string]string, ep *proxy.Endpoint) fetch.Outcome
}

// ListingSink receives one page of listings at a time, which bounds memory
// for long runs. Emission is fire-and-forget: a sink error is logged, not
// propagated.
type ListingSink interface {
	EmitPage(ctx context.Context, listings []models.ListingSummary) error
}

// SinkFunc adapts a function to the ListingSink interface.
type SinkFunc func(ctx context.Context, listings []models.ListingSummary) error

func (f SinkFunc) EmitPage(ctx context.Context, listings []models.ListingSummary) error {
	return f(ctx, listings)
}

// ProgressFunc is called after every completed page.
type ProgressFunc func(pagesFetched, pagesTotal int)

// Config tunes a scrape service.
type Config struct {
	Strategy proxy.Strategy
	DelayMin time.Duration
	DelayMax time.Duration
}

// Service is the shared substrate for all scrape operations. It is safe
// for concurrent use; each run keeps its own per-run state.
type Service struct {
	pool    *proxy.Pool
	headers *headers.Generator
	fetcher Fetcher
	parser  *parser.Parser
	logger  *slog.Logger
	cfg     Config
}

func NewService(pool *proxy.Pool, gen *headers.Generator, fetcher Fetcher, p *parser.Parser, cfg Config, logger *slog.Logger) *Service {
	if cfg.Strategy == "" {
		cfg.Strategy = proxy.StrategyRoundRobin
	}
	if cfg.DelayMin <= 0 {
		cfg.DelayMin = time.Second
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = 4 * time.Second
	}
	return &Service{
		pool:    pool,
		headers: gen,
		fetcher: fetcher,
		parser:  p,
		logger:  logger.With("component", "scraper"),
		cfg:     cfg,
	}
}

// fetchWithFallback tries the given proxy first and retries exactly once
// over a direct connection when the proxy path fails at the network layer.
// The failed proxy is put on cooldown. It reports the outcome and whether
// the proxy was dropped.
func (s *Service) fetchWithFallback(ctx context.Context, rawURL string, params url.Values, hdrs map[string]string, ep *proxy.Endpoint) (fetch.Outcome, bool) {
	out := s.fetcher.Do(ctx, rawURL, params, hdrs, ep)
	if out.Kind != fetch.KindRetryable || ep == nil {
		return out, false
	}

	s.pool.MarkFailed(ep)
	s.logger.Warn("proxy request failed, retrying direct", "proxy", ep.Host(), "error", out.Err)
	return s.fetcher.Do(ctx, rawURL, params, hdrs, nil), true
}

// sleep waits for d unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
