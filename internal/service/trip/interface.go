package trip

import (
	"context"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

type TripRepo interface {
	Create(ctx context.Context, trip *models.Trip) (*models.Trip, error)
	GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
	UpdateStatus(ctx context.Context, tripID uuid.UUID, from, to types.TripStatus) error
	ActiveForPassenger(ctx context.Context, passengerID uuid.UUID) (*models.Trip, error)
	ActiveForDriver(ctx context.Context, driverID uuid.UUID) (*models.Trip, error)
	HistoryFor(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Trip, error)
}

type DriverRegistry interface {
	SetStatus(ctx context.Context, driverID uuid.UUID, status types.DriverStatus) (types.DriverStatus, error)
}

// Dispatcher is the cascade engine as seen by the trip lifecycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, trip *models.Trip) error
	Abort(tripID uuid.UUID) bool
}

type Sessions interface {
	Send(ctx context.Context, accountID uuid.UUID, role types.Role, event string, payload any) error
}

type GeoIndex interface {
	Position(ctx context.Context, driverID uuid.UUID) (lat, lng float64, ok bool, err error)
}

type EventLog interface {
	CreateEvent(ctx context.Context, tripID uuid.UUID, eventType string, eventData []byte) error
}

type EventPublisher interface {
	PublishTripStatus(ctx context.Context, msg models.TripStatusMessage) error
}
