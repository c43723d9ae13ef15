package types

import (
	"time"

	"github.com/google/uuid"
)

// CountryUnknown is stored when a caller omits the country attribute.
const CountryUnknown = "Unknown"

// Location matches the locations table structure. A location is keyed by
// exact (lat, lon) identity; no coordinate tolerance is applied here.
type Location struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	State     *string   `json:"state,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Favorite matches the favorite_locations table structure. At most one row
// exists per (location, identity) pair.
type Favorite struct {
	ID         uuid.UUID `json:"id"`
	LocationID uuid.UUID `json:"location_id"`
	UserID     Identity  `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryEntry matches the location_history table structure. Repeat visits
// increment VisitCount and refresh LastVisited instead of adding rows.
type HistoryEntry struct {
	ID          uuid.UUID `json:"id"`
	LocationID  uuid.UUID `json:"location_id"`
	UserID      Identity  `json:"user_id"`
	VisitCount  int       `json:"visit_count"`
	LastVisited time.Time `json:"last_visited"`
}

// LocationParams carries the raw attributes a caller supplies when
// resolving or creating a location.
type LocationParams struct {
	Name      string  `json:"name" validate:"required"`
	Country   string  `json:"country"`
	State     *string `json:"state"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}
