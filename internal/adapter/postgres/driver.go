package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/metrics"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{db: db}
}

func (r *DriverRepo) Get(ctx context.Context, driverID uuid.UUID) (*models.DriverProfile, error) {
	const op = "DriverRepo.Get"
	start := time.Now()

	query := `
        SELECT a.id, a.name, dp.status, dp.vehicle_type, dp.plate_number
        FROM accounts a
        JOIN drivers_profile dp ON a.id = dp.account_id
        WHERE a.id = $1;`

	var profile models.DriverProfile
	err := TxorDB(ctx, r.db).QueryRow(ctx, query, driverID).Scan(
		&profile.ID, &profile.Name, &profile.Status, &profile.VehicleType, &profile.PlateNumber,
	)
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDriverNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &profile, nil
}

// SetStatus updates driver availability and returns the previous status.
func (r *DriverRepo) SetStatus(ctx context.Context, driverID uuid.UUID, status types.DriverStatus) (types.DriverStatus, error) {
	const op = "DriverRepo.SetStatus"
	start := time.Now()

	query := `
        UPDATE drivers_profile dp
        SET status = $2, updated_at = now()
        FROM (SELECT account_id, status FROM drivers_profile WHERE account_id = $1 FOR UPDATE) old
        WHERE dp.account_id = old.account_id
        RETURNING old.status;`

	var oldStatus types.DriverStatus
	err := TxorDB(ctx, r.db).QueryRow(ctx, query, driverID, status).Scan(&oldStatus)
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", types.ErrDriverNotFound
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return oldStatus, nil
}

// UpsertLocation mirrors the driver's last known position into durable
// storage. Last write wins; no history is kept.
func (r *DriverRepo) UpsertLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	const op = "DriverRepo.UpsertLocation"
	start := time.Now()

	query := `
        INSERT INTO driver_locations (driver_id, latitude, longitude, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (driver_id)
        DO UPDATE SET latitude = $2, longitude = $3, updated_at = now();`

	_, err := TxorDB(ctx, r.db).Exec(ctx, query, driverID, lat, lng)
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
