package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayradar/stayradar/internal/fetch"
	"github.com/stayradar/stayradar/internal/parser"
)

func detailPageHTML(title string) string {
	state := `{"niobeClientData": [["StaysPdpQuery", {"data": {"presentation": {"stayProductDetailPage": {"sections": {"sections": [
		{"sectionId": "TITLE_DEFAULT", "section": {"title": "` + title + `", "sharingConfig": {"propertyType": "Entire loft"}, "embedData": {"personCapacity": 3}}}
	]}}}}}]]}`
	return `<html><body><script id="data-deferred-state-0">` + state + `</script></body></html>`
}

func TestListingDetailSuccess(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{success(detailPageHTML("Old town flat"))}}
	svc, _ := newTestService(t, fetcher, nil)

	detail, err := svc.ListingDetail(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "Old town flat", detail.BasicInfo.Title)
	assert.Equal(t, "Entire loft", detail.BasicInfo.PropertyType)
	assert.Equal(t, 3, detail.BasicInfo.PersonCapacity)

	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, "https://www.airbnb.ch/rooms/12345", fetcher.calls[0].url)
}

func TestListingDetailProxyFailureRetriesDirect(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		{Kind: fetch.KindRetryable, Err: errors.New("proxy refused")},
		success(detailPageHTML("Reached directly")),
	}}
	svc, pool := newTestService(t, fetcher, []string{"http://proxy-a:3128"})

	detail, err := svc.ListingDetail(context.Background(), "777")
	require.NoError(t, err)
	assert.Equal(t, "Reached directly", detail.BasicInfo.Title)

	require.Len(t, fetcher.calls, 2)
	assert.NotNil(t, fetcher.calls[0].proxy)
	assert.Nil(t, fetcher.calls[1].proxy)
	assert.Equal(t, 1, pool.Status().Cooling)
}

func TestListingDetailFormatErrorDoesNotPunishProxy(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		success("<html><body>no embedded state</body></html>"),
	}}
	svc, pool := newTestService(t, fetcher, []string{"http://proxy-a:3128"})

	_, err := svc.ListingDetail(context.Background(), "777")
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrUpstreamFormat)
	assert.Equal(t, 0, pool.Status().Cooling, "a markup change is not the proxy's fault")
}

func TestListingDetailEmptyRoomID(t *testing.T) {
	svc, _ := newTestService(t, &stubFetcher{}, nil)
	_, err := svc.ListingDetail(context.Background(), "")
	assert.Error(t, err)
}

func TestPriceRangeParsesHistogram(t *testing.T) {
	state := `{"niobeClientData": [["StaysSearchQuery", {"data": {"presentation": {"staysSearch": {"results": {
		"searchResults": [],
		"filters": {"filterPanel": {"filterPanelSections": {"sections": [
			{"sectionData": {"discreteFilterItems": [
				{"priceHistogram": [1,2,3], "minValue": 30, "maxValue": 720}
			]}}
		]}}}
	}}}}}]]}`
	html := `<html><body><script id="data-deferred-state-0">` + state + `</script></body></html>`

	fetcher := &stubFetcher{outcomes: []fetch.Outcome{success(html)}}
	svc, _ := newTestService(t, fetcher, nil)

	min, max := svc.PriceRange(context.Background(), testCriteria(1))
	assert.Equal(t, 30, min)
	assert.Equal(t, 720, max)

	// The probe must search unfiltered; filters break the histogram.
	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, "search_query", fetcher.calls[0].params.Get("search_type"))
	assert.Empty(t, fetcher.calls[0].params.Get("price_min"))
}

func TestPriceRangeSentinelOnFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{
		{Kind: fetch.KindRetryable, Err: errors.New("down")},
		{Kind: fetch.KindRetryable, Err: errors.New("still down")},
	}}
	svc, _ := newTestService(t, fetcher, []string{"http://proxy-a:3128"})

	min, max := svc.PriceRange(context.Background(), testCriteria(1))
	assert.Equal(t, parser.DefaultMinPrice, min)
	assert.Equal(t, parser.DefaultMaxPrice, max)
}

func TestPriceRangeSentinelWhenHistogramMissing(t *testing.T) {
	fetcher := &stubFetcher{outcomes: []fetch.Outcome{success(searchPageHTML(2, ""))}}
	svc, _ := newTestService(t, fetcher, nil)

	min, max := svc.PriceRange(context.Background(), testCriteria(1))
	assert.Equal(t, parser.DefaultMinPrice, min)
	assert.Equal(t, parser.DefaultMaxPrice, max)
}
