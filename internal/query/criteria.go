package query

import (
	"fmt"

	"github.com/stayradar/stayradar/internal/models"
)

// CriteriaFromWire converts the wire form carried in job payloads and API
// requests into search criteria, resolving amenity keys and room type
// names. Unknown amenity keys and room types are rejected rather than
// silently dropped.
func CriteriaFromWire(c models.Criteria, maxPages int) (models.SearchCriteria, error) {
	if c.Location == "" || c.Checkin == "" || c.Checkout == "" {
		return models.SearchCriteria{}, fmt.Errorf("location, checkin and checkout are required")
	}

	adults := c.Adults
	if adults < 1 {
		adults = 1
	}
	if maxPages < 1 {
		maxPages = 1
	}

	criteria := models.SearchCriteria{
		Location:     c.Location,
		Checkin:      c.Checkin,
		Checkout:     c.Checkout,
		Adults:       adults,
		Children:     c.Children,
		Infants:      c.Infants,
		Pets:         c.Pets,
		MinPrice:     c.MinPrice,
		MaxPrice:     c.MaxPrice,
		MinBedrooms:  c.MinBedrooms,
		MinBeds:      c.MinBeds,
		MinBathrooms: c.MinBathrooms,
		MaxPages:     maxPages,
	}

	if c.RoomType != "" {
		value, ok := RoomTypeByKey[c.RoomType]
		if !ok {
			return models.SearchCriteria{}, fmt.Errorf("unknown room type %q", c.RoomType)
		}
		criteria.RoomType = value
	}

	for _, key := range c.Amenities {
		id, ok := AmenityByKey[key]
		if !ok {
			return models.SearchCriteria{}, fmt.Errorf("unknown amenity %q", key)
		}
		criteria.AmenityIDs = append(criteria.AmenityIDs, id)
	}

	return criteria, nil
}
