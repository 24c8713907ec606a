package models

import (
	"time"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Trip is the central entity of the system. It is owned exclusively by the
// trip state machine: DriverID goes from nil to a concrete driver exactly
// once; terminal rows are retained for history, never deleted.
type Trip struct {
	ID          uuid.UUID        `json:"id"`
	PassengerID uuid.UUID        `json:"passenger_id"`
	DriverID    *uuid.UUID       `json:"driver_id,omitempty"`
	Pickup      LatLng           `json:"pickup"`
	Dropoff     LatLng           `json:"dropoff"`
	DistanceKm  float64          `json:"distance_km"`
	DurationMin float64          `json:"duration_min"`
	Status      types.TripStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Active reports whether the trip still occupies its driver and passenger.
func (t *Trip) Active() bool {
	return !t.Status.Terminal()
}

// TripEvent is an append-only audit record of a lifecycle transition.
type TripEvent struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	EventType string    `json:"event_type"`
	EventData []byte    `json:"event_data"`
	CreatedAt time.Time `json:"created_at"`
}

// TripStatusMessage is published to the trip event stream on every
// transition. Best effort; consumers are analytics/audit, not the core.
type TripStatusMessage struct {
	TripID        uuid.UUID        `json:"trip_id"`
	Status        types.TripStatus `json:"status"`
	DriverID      *uuid.UUID       `json:"driver_id,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
	CorrelationID string           `json:"correlation_id,omitempty"`
}
