// Package query builds Airbnb search URLs. The filter-related parameters
// (search_type/search_mode/update_selected_filters/selected_filter_order)
// follow the format observed in real browser traffic; the site is picky
// about them, so they are reproduced exactly rather than semantically.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stayradar/stayradar/internal/models"
)

// BaseURL is the upstream site root.
const BaseURL = "https://www.airbnb.ch"

// SearchPath is the search endpoint under BaseURL.
const SearchPath = "/s/homes"

// Airbnb amenity IDs usable in the amenities[] filter.
const (
	AmenityWiFi                = 4
	AmenityPool                = 7
	AmenityKitchen             = 8
	AmenityFreeParking         = 9
	AmenitySmokingAllowed      = 11
	AmenityGym                 = 15
	AmenityBreakfast           = 16
	AmenityHotTub              = 25
	AmenityIndoorFireplace     = 27
	AmenityWasher              = 33
	AmenitySmokeAlarm          = 35
	AmenityCarbonMonoxideAlarm = 36
	AmenityDedicatedWorkspace  = 47
	AmenityTV                  = 58
	AmenityEVCharger           = 97
	AmenityBBQGrill            = 99
	AmenityCrib                = 286
	AmenityKingBed             = 1000
)

// Room type values for the room_types[] filter.
const (
	RoomTypeEntireHome  = "Entire home/apt"
	RoomTypePrivateRoom = "Private room"
)

// AmenityByKey maps API-facing amenity keys to Airbnb amenity IDs.
var AmenityByKey = map[string]int{
	"wifi":                  AmenityWiFi,
	"kitchen":               AmenityKitchen,
	"washer":                AmenityWasher,
	"dedicated_workspace":   AmenityDedicatedWorkspace,
	"tv":                    AmenityTV,
	"pool":                  AmenityPool,
	"hot_tub":               AmenityHotTub,
	"free_parking":          AmenityFreeParking,
	"ev_charger":            AmenityEVCharger,
	"crib":                  AmenityCrib,
	"king_bed":              AmenityKingBed,
	"gym":                   AmenityGym,
	"bbq_grill":             AmenityBBQGrill,
	"breakfast":             AmenityBreakfast,
	"indoor_fireplace":      AmenityIndoorFireplace,
	"smoking_allowed":       AmenitySmokingAllowed,
	"smoke_alarm":           AmenitySmokeAlarm,
	"carbon_monoxide_alarm": AmenityCarbonMonoxideAlarm,
}

// RoomTypeByKey maps API-facing room type keys to Airbnb values.
var RoomTypeByKey = map[string]string{
	"entire_home":  RoomTypeEntireHome,
	"private_room": RoomTypePrivateRoom,
}

// The upstream search silently fails on some percent-encoded characters, so
// umlauts are transliterated instead of encoded.
var locationReplacer = strings.NewReplacer(
	"ä", "a", "Ä", "A",
	"ö", "o", "Ö", "O",
	"ü", "u", "Ü", "U",
	"ß", "ss",
)

// Build turns search criteria into the search path and query parameters.
func Build(c models.SearchCriteria) (string, url.Values) {
	params := url.Values{}
	params.Set("refinement_paths[]", "/homes")
	params.Set("date_picker_type", "calendar")
	params.Set("checkin", c.Checkin)
	params.Set("checkout", c.Checkout)
	params.Set("adults", strconv.Itoa(c.Adults))
	params.Set("children", strconv.Itoa(c.Children))
	params.Set("infants", strconv.Itoa(c.Infants))
	params.Set("pets", strconv.Itoa(c.Pets))
	params.Set("search_type", "search_query")
	params.Set("query", locationReplacer.Replace(c.Location))

	// selected_filter_order[] must mirror the filters in the order they
	// are applied below.
	var filterOrder []string

	if c.MinPrice != nil || c.MaxPrice != nil {
		params.Set("price_filter_input_type", "2")
		params.Set("channel", "EXPLORE")
		if nights := nightCount(c.Checkin, c.Checkout); nights > 0 {
			params.Set("price_filter_num_nights", strconv.Itoa(nights))
		}
		if c.MinPrice != nil {
			params.Set("price_min", strconv.Itoa(*c.MinPrice))
			filterOrder = append(filterOrder, "price_min:"+strconv.Itoa(*c.MinPrice))
		}
		if c.MaxPrice != nil {
			params.Set("price_max", strconv.Itoa(*c.MaxPrice))
			filterOrder = append(filterOrder, "price_max:"+strconv.Itoa(*c.MaxPrice))
		}
	}

	for _, id := range c.AmenityIDs {
		params.Add("amenities[]", strconv.Itoa(id))
		filterOrder = append(filterOrder, "amenities:"+strconv.Itoa(id))
	}

	if c.RoomType != "" {
		params.Set("room_types[]", c.RoomType)
		filterOrder = append(filterOrder, "room_types:"+c.RoomType)
	}

	if c.MinBedrooms != nil {
		params.Set("min_bedrooms", strconv.Itoa(*c.MinBedrooms))
		filterOrder = append(filterOrder, "min_bedrooms:"+strconv.Itoa(*c.MinBedrooms))
	}
	if c.MinBeds != nil {
		params.Set("min_beds", strconv.Itoa(*c.MinBeds))
		filterOrder = append(filterOrder, "min_beds:"+strconv.Itoa(*c.MinBeds))
	}
	if c.MinBathrooms != nil {
		params.Set("min_bathrooms", strconv.Itoa(*c.MinBathrooms))
		filterOrder = append(filterOrder, "min_bathrooms:"+strconv.Itoa(*c.MinBathrooms))
	}

	if len(filterOrder) > 0 {
		params.Set("search_type", "filter_change")
		params.Set("search_mode", "regular_search")
		// Observed behavior, not a documented contract: the flag flips to
		// true only when more than one filter key is selected.
		if len(filterOrder) > 1 {
			params.Set("update_selected_filters", "true")
		} else {
			params.Set("update_selected_filters", "false")
		}
		for _, f := range filterOrder {
			params.Add("selected_filter_order[]", f)
		}
	}

	return BaseURL + SearchPath, params
}

// WithCursor returns a copy of params addressing the page behind cursor.
func WithCursor(params url.Values, cursor string) url.Values {
	out := url.Values{}
	for k, vs := range params {
		out[k] = append([]string(nil), vs...)
	}
	out.Set("pagination_search", "true")
	out.Set("cursor", cursor)
	return out
}

// RoomURL returns the detail page URL for a room ID.
func RoomURL(roomID string) string {
	return BaseURL + "/rooms/" + roomID
}

func nightCount(checkin, checkout string) int {
	in, err := time.Parse("2006-01-02", checkin)
	if err != nil {
		return 0
	}
	out, err := time.Parse("2006-01-02", checkout)
	if err != nil {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}
