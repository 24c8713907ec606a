package driver

import (
	"context"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

type DriverRegistry interface {
	Get(ctx context.Context, driverID uuid.UUID) (*models.DriverProfile, error)
	SetStatus(ctx context.Context, driverID uuid.UUID, status types.DriverStatus) (types.DriverStatus, error)
	UpsertLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error
}

type GeoIndex interface {
	Upsert(ctx context.Context, driverID uuid.UUID, lat, lng float64) error
	Remove(ctx context.Context, driverID uuid.UUID) error
}

type TripRepo interface {
	ActiveForDriver(ctx context.Context, driverID uuid.UUID) (*models.Trip, error)
}

type Sessions interface {
	Send(ctx context.Context, accountID uuid.UUID, role types.Role, event string, payload any) error
}
