package parser

import (
	"encoding/base64"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/query"
)

// Parser projects embedded page state into normalized records.
type Parser struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger.With("component", "parser")}
}

var digitRun = regexp.MustCompile(`\d+`)

// ParseSearch extracts the listings and the next-page cursor from a search
// results page. An empty listing slice with an empty cursor is a legitimate
// last page; format breaks return an error instead so callers can tell the
// two apart.
func (p *Parser) ParseSearch(html string) ([]models.ListingSummary, string, error) {
	state, err := extractState(html)
	if err != nil {
		return nil, "", err
	}

	var results []any
	var cursor string

	// The exact niobe entry holding the results varies per response; the
	// first branch that carries searchResults wins.
	for _, entry := range niobeEntries(state) {
		staysSearch := dig(entry, "data", "presentation", "staysSearch", "results")
		if staysSearch == nil {
			continue
		}
		results = digSlice(staysSearch, "searchResults")
		cursor = digString(staysSearch, "paginationInfo", "nextPageCursor")
		if len(results) > 0 {
			break
		}
	}

	listings := make([]models.ListingSummary, 0, len(results))
	for _, raw := range results {
		// The results array mixes listings with injected ads and map
		// metadata; only stay results are wanted.
		if digString(raw, "__typename") != "StaySearchResult" {
			continue
		}
		listings = append(listings, p.parseSearchResult(raw))
	}

	return listings, cursor, nil
}

func (p *Parser) parseSearchResult(raw any) models.ListingSummary {
	id := decodeListingID(digString(raw, "demandStayListing", "id"))

	title := digString(raw, "nameLocalized", "localizedStringWithTranslationPreference")
	if title == "" {
		title = digString(raw, "listing", "name")
	}

	priceLine := dig(raw, "structuredDisplayPrice", "primaryLine")
	priceText := digString(priceLine, "price")
	if priceText == "" || priceText == "N/A" {
		if discounted := digString(priceLine, "discountedPrice"); discounted != "" {
			priceText = discounted
		}
	}

	priceInt, ok := ParsePrice(priceText)
	if !ok && priceText != "" {
		p.logger.Warn("unparseable listing price, defaulting to 0", "listing_id", id, "price_text", priceText)
	}

	var images []string
	for _, pic := range digSlice(raw, "contextualPictures") {
		if u := digString(pic, "picture"); u != "" {
			images = append(images, u)
		}
	}

	detailURL := ""
	if id != "" {
		detailURL = query.RoomURL(id)
	}

	return models.ListingSummary{
		AirbnbID:      id,
		Title:         title,
		PriceText:     priceText,
		PricePerNight: priceInt,
		PriceDetails:  digString(priceLine, "accessibilityLabel"),
		RatingText:    digString(raw, "avgRatingLocalized"),
		Images:        images,
		URL:           detailURL,
	}
}

// decodeListingID decodes the base64 composite token of a search result
// (e.g. "StayListing:12345" encoded) and keeps the trailing identifier
// segment. Undecodable tokens are returned as-is rather than dropped.
func decodeListingID(encoded string) string {
	if encoded == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return encoded
	}
	parts := strings.Split(string(decoded), ":")
	return parts[len(parts)-1]
}

// ParsePrice extracts the integer price from display text like "263 CHF"
// or "1'263 CHF". It never fails hard: unparseable text yields (0, false).
func ParsePrice(text string) (int, bool) {
	cleaned := strings.ReplaceAll(text, "'", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	m := digitRun.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

var ratingPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:\((\d+)\))?`)

// ParseRating parses a rating label like "4.85 (20)" into a value and
// review count. Placeholder labels ("N/A", "Neu", "New") yield (zero,
// false).
func ParseRating(text string) (models.Rating, bool) {
	text = strings.TrimSpace(text)
	switch text {
	case "", "N/A", "Neu", "New":
		return models.Rating{}, false
	}

	m := ratingPattern.FindStringSubmatch(text)
	if m == nil {
		return models.Rating{}, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return models.Rating{}, false
	}
	count := 0
	if m[2] != "" {
		count, _ = strconv.Atoi(m[2])
	}
	return models.Rating{Value: value, ReviewCount: count}, true
}
