package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stayradar/stayradar/internal/models"
	"github.com/stayradar/stayradar/internal/parser"
)

// Listing is the persisted form of a scraped search result, bound to the
// group whose search produced it.
type Listing struct {
	ID            int64           `db:"id" json:"id"`
	GroupID       int64           `db:"group_id" json:"group_id"`
	AirbnbID      string          `db:"airbnb_id" json:"airbnb_id"`
	Title         string          `db:"title" json:"title"`
	PricePerNight int             `db:"price_per_night" json:"price_per_night"`
	Rating        *float64        `db:"rating" json:"rating,omitempty"`
	ReviewCount   int             `db:"review_count" json:"review_count"`
	MainImageURL  string          `db:"main_image_url" json:"main_image_url"`
	Images        json.RawMessage `db:"images" json:"images"`
	URL           string          `db:"url" json:"url"`
	Detail        json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// ListingRepository persists scraped listings. Re-emission of an already
// seen listing is expected (continuation runs, overlapping searches) and
// handled by upsert.
type ListingRepository struct {
	db *DB
}

func NewListingRepository(db *DB) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingsSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id              BIGSERIAL PRIMARY KEY,
	group_id        BIGINT NOT NULL,
	airbnb_id       TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	price_per_night INTEGER NOT NULL DEFAULT 0,
	rating          NUMERIC(3,2),
	review_count    INTEGER NOT NULL DEFAULT 0,
	main_image_url  TEXT NOT NULL DEFAULT '',
	images          JSONB NOT NULL DEFAULT '[]',
	url             TEXT NOT NULL DEFAULT '',
	detail          JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (group_id, airbnb_id)
)`

// EnsureSchema creates the listings table when it does not exist yet.
func (r *ListingRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, listingsSchema); err != nil {
		return fmt.Errorf("ensure listings schema: %w", err)
	}
	return nil
}

// UpsertPage stores one page of search results for a group. The page is
// written in a single transaction so a re-run never leaves half a page
// behind.
func (r *ListingRepository) UpsertPage(ctx context.Context, groupID int64, page []models.ListingSummary) error {
	query := `
		INSERT INTO listings (group_id, airbnb_id, title, price_per_night, rating, review_count, main_image_url, images, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (group_id, airbnb_id) DO UPDATE SET
			title = EXCLUDED.title,
			price_per_night = EXCLUDED.price_per_night,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			main_image_url = EXCLUDED.main_image_url,
			images = EXCLUDED.images,
			url = EXCLUDED.url,
			updated_at = now()`

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, l := range page {
			if l.AirbnbID == "" {
				continue
			}

			var ratingValue *float64
			reviewCount := 0
			if rating, ok := parser.ParseRating(l.RatingText); ok {
				ratingValue = &rating.Value
				reviewCount = rating.ReviewCount
			}

			mainImage := ""
			if len(l.Images) > 0 {
				mainImage = l.Images[0]
			}
			images, err := json.Marshal(l.Images)
			if err != nil {
				return fmt.Errorf("marshal images for %s: %w", l.AirbnbID, err)
			}

			if _, err := tx.Exec(ctx, query,
				groupID, l.AirbnbID, l.Title, l.PricePerNight,
				ratingValue, reviewCount, mainImage, images, l.URL,
			); err != nil {
				return fmt.Errorf("upsert listing %s: %w", l.AirbnbID, err)
			}
		}
		return nil
	})
}

// SaveDetail attaches a fetched detail record to an existing listing row.
func (r *ListingRepository) SaveDetail(ctx context.Context, groupID int64, airbnbID string, detail *models.ListingDetail) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal detail for %s: %w", airbnbID, err)
	}

	query := `
		UPDATE listings SET detail = $3, updated_at = now()
		WHERE group_id = $1 AND airbnb_id = $2`
	tag, err := r.db.Exec(ctx, query, groupID, airbnbID, raw)
	if err != nil {
		return fmt.Errorf("save detail for %s: %w", airbnbID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %s not found for group %d", airbnbID, groupID)
	}
	return nil
}

// ByGroup returns the stored listings of a group, cheapest first.
func (r *ListingRepository) ByGroup(ctx context.Context, groupID int64) ([]Listing, error) {
	query := `
		SELECT id, group_id, airbnb_id, title, price_per_night, rating, review_count,
		       main_image_url, images, url, detail, created_at, updated_at
		FROM listings
		WHERE group_id = $1
		ORDER BY price_per_night, airbnb_id`

	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query listings for group %d: %w", groupID, err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(
			&l.ID, &l.GroupID, &l.AirbnbID, &l.Title, &l.PricePerNight,
			&l.Rating, &l.ReviewCount, &l.MainImageURL, &l.Images,
			&l.URL, &l.Detail, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
