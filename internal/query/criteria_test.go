package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayradar/stayradar/internal/models"
)

func TestCriteriaFromWire(t *testing.T) {
	wire := models.Criteria{
		Location:  "Zürich",
		Checkin:   "2025-11-28",
		Checkout:  "2025-11-30",
		Adults:    3,
		MaxPrice:  intPtr(300),
		RoomType:  "entire_home",
		Amenities: []string{"wifi", "kitchen"},
	}

	criteria, err := CriteriaFromWire(wire, 4)
	require.NoError(t, err)
	assert.Equal(t, "Zürich", criteria.Location)
	assert.Equal(t, 3, criteria.Adults)
	assert.Equal(t, RoomTypeEntireHome, criteria.RoomType)
	assert.Equal(t, []int{AmenityWiFi, AmenityKitchen}, criteria.AmenityIDs)
	assert.Equal(t, 4, criteria.MaxPages)
}

func TestCriteriaFromWireDefaults(t *testing.T) {
	criteria, err := CriteriaFromWire(models.Criteria{
		Location: "Basel",
		Checkin:  "2025-11-28",
		Checkout: "2025-11-30",
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, criteria.Adults)
	assert.Equal(t, 1, criteria.MaxPages)
}

func TestCriteriaFromWireValidation(t *testing.T) {
	_, err := CriteriaFromWire(models.Criteria{Checkin: "2025-11-28", Checkout: "2025-11-30"}, 1)
	assert.Error(t, err, "missing location must be rejected")

	_, err = CriteriaFromWire(models.Criteria{
		Location: "Bern", Checkin: "2025-11-28", Checkout: "2025-11-30",
		RoomType: "castle",
	}, 1)
	assert.Error(t, err)

	_, err = CriteriaFromWire(models.Criteria{
		Location: "Bern", Checkin: "2025-11-28", Checkout: "2025-11-30",
		Amenities: []string{"teleporter"},
	}, 1)
	assert.Error(t, err)
}
