package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/stayradar/stayradar/internal/fetch"
	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/query"
)

// ListingDetail fetches and parses the detail page for one room ID, with
// the same proxy-then-direct retry shape as a search page.
func (s *Service) ListingDetail(ctx context.Context, roomID string) (*models.ListingDetail, error) {
	if roomID == "" {
		return nil, errors.New("room id is required")
	}

	hdrs := s.headers.RandomProfile().Header()
	current := s.pool.HealthyProxy(s.cfg.Strategy)

	s.logger.Info("fetching listing detail", "room_id", roomID, "proxy", proxyName(current))

	out, _ := s.fetchWithFallback(ctx, query.RoomURL(roomID), nil, hdrs, current)
	switch out.Kind {
	case fetch.KindRetryable:
		return nil, fmt.Errorf("fetch listing %s: %w", roomID, out.Err)
	case fetch.KindFatal:
		return nil, fmt.Errorf("fetch listing %s: %w", roomID, out.Err)
	}

	detail, err := s.parser.ParseDetail(out.Body)
	if err != nil {
		// A format error is the page's fault, not the proxy's; the proxy
		// that served it stays healthy.
		return nil, fmt.Errorf("parse listing %s: %w", roomID, err)
	}
	return detail, nil
}
