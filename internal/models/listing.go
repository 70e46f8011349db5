package models

import "time"

// ListingSummary is one search result row as it appears on a search page.
type ListingSummary struct {
	AirbnbID      string   `json:"id"`
	Title         string   `json:"title"`
	PriceText     string   `json:"price_text"`
	PricePerNight int      `json:"price_per_night"`
	PriceDetails  string   `json:"total_price_details,omitempty"`
	RatingText    string   `json:"rating"`
	Images        []string `json:"images"`
	URL           string   `json:"url"`
}

// Rating is the parsed form of a rating label like "4.85 (20)".
type Rating struct {
	Value       float64
	ReviewCount int
}

// ListingDetail is the normalized detail-page record for a single room.
type ListingDetail struct {
	BasicInfo   BasicInfo      `json:"basic_info"`
	Host        HostInfo       `json:"host"`
	Description string         `json:"description,omitempty"`
	Amenities   []AmenityGroup `json:"amenities"`
	HouseRules  []string       `json:"house_rules"`
	Reviews     ReviewSummary  `json:"reviews"`
	Location    Location       `json:"location"`
	Photos      []Photo        `json:"photos"`
}

type BasicInfo struct {
	Title          string `json:"title,omitempty"`
	PropertyType   string `json:"property_type,omitempty"`
	PersonCapacity int    `json:"person_capacity,omitempty"`
}

type HostInfo struct {
	Name        string `json:"name,omitempty"`
	IsSuperhost bool   `json:"is_superhost"`
	IsVerified  bool   `json:"is_verified"`
	Joined      string `json:"joined,omitempty"`
	About       string `json:"about,omitempty"`
}

type AmenityGroup struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

type ReviewSummary struct {
	OverallRating float64          `json:"overall_rating,omitempty"`
	TotalCount    int              `json:"total_count"`
	Categories    []CategoryRating `json:"category_breakdown,omitempty"`
}

type CategoryRating struct {
	Category string `json:"category"`
	Rating   string `json:"rating"`
}

type Location struct {
	Name       string  `json:"name,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
	IsVerified bool    `json:"is_verified"`
}

type Photo struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// SearchCriteria is the immutable input to one search run.
type SearchCriteria struct {
	Location string
	Checkin  string // YYYY-MM-DD
	Checkout string // YYYY-MM-DD

	Adults   int
	Children int
	Infants  int
	Pets     int

	MinPrice     *int
	MaxPrice     *int
	MinBedrooms  *int
	MinBeds      *int
	MinBathrooms *int
	RoomType     string // query.RoomType value, empty for any
	AmenityIDs   []int

	MaxPages int
}

// ScrapeJob is the unit of work handed to the worker by the queue.
type ScrapeJob struct {
	ID        string    `json:"id"`
	GroupID   int64     `json:"group_id"`
	Criteria  Criteria  `json:"criteria"`
	PageStart int       `json:"page_start"`
	PageEnd   int       `json:"page_end"`
	CreatedAt time.Time `json:"created_at"`
}

// Criteria is the wire form of SearchCriteria carried in job payloads.
type Criteria struct {
	Location     string   `json:"location"`
	Checkin      string   `json:"checkin"`
	Checkout     string   `json:"checkout"`
	Adults       int      `json:"adults"`
	Children     int      `json:"children"`
	Infants      int      `json:"infants"`
	Pets         int      `json:"pets"`
	MinPrice     *int     `json:"min_price,omitempty"`
	MaxPrice     *int     `json:"max_price,omitempty"`
	MinBedrooms  *int     `json:"min_bedrooms,omitempty"`
	MinBeds      *int     `json:"min_beds,omitempty"`
	MinBathrooms *int     `json:"min_bathrooms,omitempty"`
	RoomType     string   `json:"room_type,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
}
