package dispatch

import (
	"context"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// GeoIndex is the external geospatial store holding live driver positions.
type GeoIndex interface {
	QueryRadius(ctx context.Context, lat, lng, radiusKm float64) ([]uuid.UUID, error)
	Position(ctx context.Context, driverID uuid.UUID) (lat, lng float64, ok bool, err error)
}

// DriverRegistry is the durable availability store for drivers.
type DriverRegistry interface {
	Get(ctx context.Context, driverID uuid.UUID) (*models.DriverProfile, error)
	SetStatus(ctx context.Context, driverID uuid.UUID, status types.DriverStatus) (types.DriverStatus, error)
}

// TripRepo is the subset of the trip repository the engine needs.
type TripRepo interface {
	GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
	UpdateStatus(ctx context.Context, tripID uuid.UUID, from, to types.TripStatus) error
	AssignAndAccept(ctx context.Context, tripID, driverID uuid.UUID) error
}

// Sessions delivers events to live connections. Delivery is fire-and-forget:
// an absent session is reported, never queued.
type Sessions interface {
	HasSession(accountID uuid.UUID, role types.Role) bool
	Send(ctx context.Context, accountID uuid.UUID, role types.Role, event string, payload any) error
}

// EventLog appends trip lifecycle audit rows. Best effort.
type EventLog interface {
	CreateEvent(ctx context.Context, tripID uuid.UUID, eventType string, eventData []byte) error
}

// EventPublisher pushes trip status transitions to the event stream.
// Best effort.
type EventPublisher interface {
	PublishTripStatus(ctx context.Context, msg models.TripStatusMessage) error
}
