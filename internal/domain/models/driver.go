package models

import (
	"time"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// DriverProfile is the registry view of a driver: identity plus durable
// availability. Eligible for offers only while Status is ONLINE.
type DriverProfile struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Status      types.DriverStatus `json:"status"`
	VehicleType string             `json:"vehicle_type"`
	PlateNumber string             `json:"plate_number"`
}

// DriverLocation is the volatile last-known position of a driver,
// mirrored into the geo index and into durable storage. Last write wins.
type DriverLocation struct {
	DriverID  uuid.UUID `json:"driver_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Candidate is a driver eligible to receive an offer at the time the
// candidate list was built, ordered by distance from pickup.
type Candidate struct {
	Profile DriverProfile
	Lat     float64
	Lng     float64
}
