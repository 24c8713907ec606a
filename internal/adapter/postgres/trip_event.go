package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/metrics"
	"github.com/NgTrQuang/booking-vehicle/pkg/postgres"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// TripEventRepo appends audit rows for trip lifecycle transitions.
type TripEventRepo struct {
	db *pgxpool.Pool
}

func NewTripEventRepo(db *pgxpool.Pool) *TripEventRepo {
	return &TripEventRepo{db: db}
}

func (r *TripEventRepo) CreateEvent(ctx context.Context, tripID uuid.UUID, eventType string, eventData []byte) error {
	const op = "TripEventRepo.CreateEvent"
	start := time.Now()

	query := `
        INSERT INTO trip_events (trip_id, event_type, event_data)
        VALUES ($1, $2, $3);`

	_, err := TxorDB(ctx, r.db).Exec(ctx, query, tripID, eventType, eventData)
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return types.ErrTripNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
