package scraper

import (
	"context"

	"github.com/stayradar/stayradar/internal/fetch"
	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/parser"
	"github.com/stayradar/stayradar/internal/proxy"
	"github.com/stayradar/stayradar/internal/query"
)

// PriceRange probes the price-histogram bounds for a location and date
// range. It never fails the caller's workflow: any fetch or parse problem,
// and a page without a histogram, yield the documented sentinel range.
func (s *Service) PriceRange(ctx context.Context, criteria models.SearchCriteria) (min, max int) {
	// Filters break the histogram, so the probe always searches bare.
	bare := models.SearchCriteria{
		Location: criteria.Location,
		Checkin:  criteria.Checkin,
		Checkout: criteria.Checkout,
		Adults:   criteria.Adults,
		Children: criteria.Children,
		Infants:  criteria.Infants,
		Pets:     criteria.Pets,
	}
	path, params := query.Build(bare)

	hdrs := s.headers.RandomProfile().Header()
	current := s.pool.HealthyProxy(proxy.StrategyRandom)

	out, _ := s.fetchWithFallback(ctx, path, params, hdrs, current)
	if out.Kind != fetch.KindSuccess {
		s.logger.Warn("price range probe failed, using sentinel range", "location", bare.Location, "error", out.Err)
		return parser.DefaultMinPrice, parser.DefaultMaxPrice
	}

	min, max, found, err := s.parser.ParsePriceRange(out.Body)
	if err != nil {
		s.logger.Warn("price range parse failed, using sentinel range", "location", bare.Location, "error", err)
		return parser.DefaultMinPrice, parser.DefaultMaxPrice
	}
	if !found {
		s.logger.Info("no price histogram for location, using sentinel range", "location", bare.Location)
	}
	return min, max
}
