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

const serviceName = "booking-vehicle"

var activeStatuses = []string{
	types.StatusRequested.String(),
	types.StatusDriverAssigned.String(),
	types.StatusAccepted.String(),
	types.StatusArrived.String(),
	types.StatusOnTrip.String(),
}

type TripRepo struct {
	db *pgxpool.Pool
}

func NewTripRepo(db *pgxpool.Pool) *TripRepo {
	return &TripRepo{db: db}
}

const tripColumns = `
    id, passenger_id, driver_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
    distance_km, duration_min, status, created_at, updated_at`

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var trip models.Trip
	err := row.Scan(
		&trip.ID, &trip.PassengerID, &trip.DriverID,
		&trip.Pickup.Lat, &trip.Pickup.Lng, &trip.Dropoff.Lat, &trip.Dropoff.Lng,
		&trip.DistanceKm, &trip.DurationMin, &trip.Status,
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *TripRepo) Create(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	const op = "TripRepo.Create"
	start := time.Now()

	query := `
        INSERT INTO trips (passenger_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
                           distance_km, duration_min, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at;`

	err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		trip.PassengerID,
		trip.Pickup.Lat, trip.Pickup.Lng,
		trip.Dropoff.Lat, trip.Dropoff.Lng,
		trip.DistanceKm, trip.DurationMin,
		trip.Status,
	).Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)

	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return trip, nil
}

func (r *TripRepo) GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	const op = "TripRepo.GetByID"
	start := time.Now()

	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1;`

	trip, err := scanTrip(TxorDB(ctx, r.db).QueryRow(ctx, query, tripID))
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrTripNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return trip, nil
}

// UpdateStatus moves the trip from one status to another in a single
// conditional write. A stale `from` loses the race and reports
// ErrInvalidTransition instead of overwriting a newer state.
func (r *TripRepo) UpdateStatus(ctx context.Context, tripID uuid.UUID, from, to types.TripStatus) error {
	const op = "TripRepo.UpdateStatus"
	start := time.Now()

	query := `
        UPDATE trips SET status = $2, updated_at = now()
        WHERE id = $1 AND status = $3;`

	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, query, tripID, to, from)
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Either the trip vanished or someone transitioned it first.
		var current types.TripStatus
		checkErr := TxorDB(ctx, r.db).QueryRow(ctx, `SELECT status FROM trips WHERE id = $1`, tripID).Scan(&current)
		if errors.Is(checkErr, pgx.ErrNoRows) {
			return types.ErrTripNotFound
		}
		return types.ErrInvalidTransition
	}

	return nil
}

// AssignAndAccept folds DRIVER_ASSIGNED and ACCEPTED into one atomic write:
// only the responding driver can accept, so the intermediate state is never
// observable. The driver_id IS NULL guard makes assignment once-only.
func (r *TripRepo) AssignAndAccept(ctx context.Context, tripID, driverID uuid.UUID) error {
	const op = "TripRepo.AssignAndAccept"
	start := time.Now()

	query := `
        UPDATE trips SET driver_id = $2, status = $3, updated_at = now()
        WHERE id = $1 AND status = $4 AND driver_id IS NULL;`

	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, query, tripID, driverID, types.StatusAccepted, types.StatusRequested)
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return types.ErrInvalidTransition
	}

	return nil
}

func (r *TripRepo) activeTrip(ctx context.Context, op, column string, accountID uuid.UUID) (*models.Trip, error) {
	start := time.Now()

	query := `SELECT ` + tripColumns + `
        FROM trips
        WHERE ` + column + ` = $1 AND status = ANY($2)
        ORDER BY created_at DESC
        LIMIT 1;`

	trip, err := scanTrip(TxorDB(ctx, r.db).QueryRow(ctx, query, accountID, activeStatuses))
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrTripNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return trip, nil
}

// ActiveForPassenger returns the passenger's current non-terminal trip.
func (r *TripRepo) ActiveForPassenger(ctx context.Context, passengerID uuid.UUID) (*models.Trip, error) {
	return r.activeTrip(ctx, "TripRepo.ActiveForPassenger", "passenger_id", passengerID)
}

// ActiveForDriver returns the driver's current non-terminal trip.
func (r *TripRepo) ActiveForDriver(ctx context.Context, driverID uuid.UUID) (*models.Trip, error) {
	return r.activeTrip(ctx, "TripRepo.ActiveForDriver", "driver_id", driverID)
}

// SweepRequested cancels every trip still sitting in REQUESTED. Dispatch
// state is process local, so after a restart those trips have no cascade
// behind them and can never resolve on their own. Returns the affected ids.
func (r *TripRepo) SweepRequested(ctx context.Context) ([]uuid.UUID, error) {
	const op = "TripRepo.SweepRequested"
	start := time.Now()

	query := `
        UPDATE trips SET status = $1, updated_at = now()
        WHERE status = $2
        RETURNING id;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, types.StatusCancelled, types.StatusRequested)
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

// HistoryFor returns terminal trips for an account in either role, newest
// first.
func (r *TripRepo) HistoryFor(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Trip, error) {
	const op = "TripRepo.HistoryFor"
	start := time.Now()

	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + tripColumns + `
        FROM trips
        WHERE (passenger_id = $1 OR driver_id = $1) AND status = ANY($2)
        ORDER BY created_at DESC
        LIMIT $3;`

	terminal := []string{types.StatusCompleted.String(), types.StatusCancelled.String()}

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, accountID, terminal, limit)
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return trips, nil
}
