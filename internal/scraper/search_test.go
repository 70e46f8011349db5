package scraper

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayradar/stayradar/internal/fetch"
	"github.com/stayradar/stayradar/internal/headers"
	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/parser"
	"github.com/stayradar/stayradar/internal/proxy"
)

type call struct {
	url    string
	params url.Values
	proxy  *proxy.Endpoint
}

// stubFetcher pops one scripted outcome per request and records the call.
type stubFetcher struct {
	outcomes []fetch.Outcome
	calls    []call
}

func (f *stubFetcher) Do(_ context.Context, rawURL string, params url.Values, _ map[string]string, ep *proxy.Endpoint) fetch.Outcome {
	f.calls = append(f.calls, call{url: rawURL, params: params, proxy: ep})
	if len(f.outcomes) == 0 {
		return fetch.Outcome{Kind: fetch.KindFatal, Err: errors.New("stub exhausted")}
	}
	out := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return out
}

type captureSink struct {
	pages [][]models.ListingSummary
	err   error
}

func (s *captureSink) EmitPage(_ context.Context, listings []models.ListingSummary) error {
	s.pages = append(s.pages, listings)
	return s.err
}

func (s *captureSink) total() int {
	n := 0
	for _, p := range s.pages {
		n += len(p)
	}
	return n
}

// searchPageHTML builds a fixture search page with n listings and an
// optional cursor.
func searchPageHTML(n int, cursor string) string {
	var results []string
	for i := 0; i < n; i++ {
		id := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("StayListing:%d", 1000+i)))
		results = append(results, fmt.Sprintf(`{
			"__typename": "StaySearchResult",
			"demandStayListing": {"id": %q},
			"nameLocalized": {"localizedStringWithTranslationPreference": "Listing %d"},
			"structuredDisplayPrice": {"primaryLine": {"price": "%d CHF", "accessibilityLabel": "%d CHF per night"}},
			"avgRatingLocalized": "4.8 (12)",
			"contextualPictures": [{"picture": "https://img.example.com/%d.jpg"}]
		}`, id, i, 100+i, 100+i, i))
	}

	pagination := ""
	if cursor != "" {
		pagination = fmt.Sprintf(`, "paginationInfo": {"nextPageCursor": %q}`, cursor)
	}

	state := fmt.Sprintf(`{"niobeClientData": [["StaysSearchQuery", {"data": {"presentation": {"staysSearch": {"results": {"searchResults": [%s]%s}}}}}]]}`,
		strings.Join(results, ","), pagination)

	return `<html><body><script id="data-deferred-state-0">` + state + `</script></body></html>`
}

func success(body string) fetch.Outcome {
	return fetch.Outcome{Kind: fetch.KindSuccess, Body: body, StatusCode: 200}
}

func newTestService(t *testing.T, fetcher Fetcher, proxyURLs []string) (*Service, *proxy.Pool) {
	t.Helper()
	logger := slog.Default()
	pool := proxy.NewPool(proxyURLs, time.Minute, logger)
	svc := NewService(pool, headers.NewGeneratorWithSeed(1), fetcher, parser.New(logger), Config{
		DelayMin: time.Millisecond,
		DelayMax: 2 * time.Millisecond,
	}, logger)
	return svc, pool
}

func testCriteria(maxPages int) models.SearchCriteria {
	return models.SearchCriteria{
		Location: "Zürich",
		Checkin:  "2025-11-28",
		Checkout: "2025-11-30",
		Adults:   2,
		MaxPages: maxPages,
	}
}

func TestSearchTwoPagesExhaustedCursor(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		success(searchPageHTML(18, "cursor-2")),
		success(searchPageHTML(5, "")),
	}}
	svc, _ := newTestService(t, fetcher, nil)
	sink := &captureSink{}

	var progress []int
	report := svc.Search(context.Background(), testCriteria(2), sink, func(fetched, total int) {
		progress = append(progress, fetched)
		assert.Equal(t, 2, total)
	})

	assert.Equal(t, 2, report.PagesCompleted)
	assert.Equal(t, 23, report.ListingsEmitted)
	assert.Equal(t, ReasonExhaustedCursor, report.Reason)
	assert.Equal(t, "exhausted-cursor", report.TerminalReason())
	assert.False(t, report.MorePages)

	require.Len(t, sink.pages, 2, "sink must be fed once per page")
	assert.Equal(t, 23, sink.total())
	assert.Equal(t, []int{1, 2}, progress)

	// Page 2 must carry the cursor from page 1.
	require.Len(t, fetcher.calls, 2)
	assert.Empty(t, fetcher.calls[0].params.Get("cursor"))
	assert.Equal(t, "cursor-2", fetcher.calls[1].params.Get("cursor"))
	assert.Equal(t, "true", fetcher.calls[1].params.Get("pagination_search"))
}

func TestSearchBudgetReachedWithCursorLeft(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		success(searchPageHTML(18, "cursor-2")),
		success(searchPageHTML(18, "cursor-3")),
	}}
	svc, _ := newTestService(t, fetcher, nil)
	sink := &captureSink{}

	report := svc.Search(context.Background(), testCriteria(2), sink, nil)

	assert.Equal(t, 2, report.PagesCompleted)
	assert.Equal(t, 36, report.ListingsEmitted)
	assert.Equal(t, ReasonBudgetReached, report.Reason)
	assert.True(t, report.MorePages)
	assert.Len(t, fetcher.calls, 2, "the leftover cursor must not trigger a third fetch")
}

func TestSearchProxyFailureFallsBackToDirect(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		success(searchPageHTML(10, "cursor-2")),                          // page 1 via proxy
		{Kind: fetch.KindRetryable, Err: errors.New("connection reset")}, // page 2 via proxy
		success(searchPageHTML(7, "")),                                   // page 2 direct retry
	}}
	svc, pool := newTestService(t, fetcher, []string{"http://proxy-a:3128"})
	sink := &captureSink{}

	report := svc.Search(context.Background(), testCriteria(3), sink, nil)

	assert.Equal(t, 2, report.PagesCompleted)
	assert.Equal(t, 17, report.ListingsEmitted, "page 2 results must survive the proxy failure")
	assert.Equal(t, ReasonExhaustedCursor, report.Reason)

	require.Len(t, fetcher.calls, 3)
	require.NotNil(t, fetcher.calls[0].proxy)
	assert.Equal(t, "http://proxy-a:3128", fetcher.calls[0].proxy.URL)
	require.NotNil(t, fetcher.calls[1].proxy)
	assert.Nil(t, fetcher.calls[2].proxy, "retry must go direct")

	st := pool.Status()
	assert.Equal(t, 1, st.Cooling, "the proxy must be marked failed exactly once")
}

func TestSearchDirectRetryFailureIsPartialSuccess(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		success(searchPageHTML(10, "cursor-2")),
		{Kind: fetch.KindRetryable, Err: errors.New("proxy timeout")},
		{Kind: fetch.KindRetryable, Err: errors.New("direct timeout")},
	}}
	svc, _ := newTestService(t, fetcher, []string{"http://proxy-a:3128"})
	sink := &captureSink{}

	report := svc.Search(context.Background(), testCriteria(3), sink, nil)

	assert.Equal(t, 1, report.PagesCompleted)
	assert.Equal(t, 10, report.ListingsEmitted, "page 1 must be kept as a partial success")
	assert.Equal(t, ReasonFatal, report.Reason)
	assert.Contains(t, report.TerminalReason(), "fatal-error:network failure")
}

func TestSearchHTTPFailureStopsWithoutRetry(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		{Kind: fetch.KindFatal, StatusCode: 403, Err: errors.New("unexpected status 403")},
	}}
	svc, pool := newTestService(t, fetcher, []string{"http://proxy-a:3128"})

	report := svc.Search(context.Background(), testCriteria(2), &captureSink{}, nil)

	assert.Equal(t, 0, report.PagesCompleted)
	assert.Equal(t, ReasonFatal, report.Reason)
	assert.Contains(t, report.Detail, "http failure")
	assert.Len(t, fetcher.calls, 1, "a bad status must not be retried")
	assert.Equal(t, 0, pool.Status().Cooling, "an HTTP failure is not the proxy's fault")
}

func TestSearchUpstreamFormatChangeIsFatal(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		success("<html><body>redesigned page without state</body></html>"),
	}}
	svc, _ := newTestService(t, fetcher, nil)

	report := svc.Search(context.Background(), testCriteria(2), &captureSink{}, nil)

	assert.Equal(t, ReasonFatal, report.Reason)
	assert.Contains(t, report.Detail, "upstream format changed")
}

func TestSearchSinkErrorDoesNotAbortRun(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		success(searchPageHTML(3, "")),
	}}
	svc, _ := newTestService(t, fetcher, nil)
	sink := &captureSink{err: errors.New("store unavailable")}

	report := svc.Search(context.Background(), testCriteria(1), sink, nil)

	assert.Equal(t, ReasonExhaustedCursor, report.Reason)
	assert.Equal(t, 3, report.ListingsEmitted)
}

func TestSearchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &stubFetcher{}
	svc, _ := newTestService(t, fetcher, nil)

	report := svc.Search(ctx, testCriteria(5), &captureSink{}, nil)

	assert.Equal(t, ReasonFatal, report.Reason)
	assert.Equal(t, 0, report.PagesCompleted)
	assert.Empty(t, fetcher.calls, "no request may be issued after cancellation")
}
