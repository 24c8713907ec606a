package redisgeo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// GeoIndex wraps the external Redis GEO set holding live driver positions.
// Every call is a synchronous round-trip that may fail; errors propagate to
// the caller, which must not assume partial success.
type GeoIndex struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, key string) *GeoIndex {
	return &GeoIndex{
		client: client,
		key:    key,
	}
}

// Upsert stores or moves a driver's position in the index.
func (g *GeoIndex) Upsert(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	const op = "GeoIndex.Upsert"

	err := g.client.GeoAdd(ctx, g.key, &redis.GeoLocation{
		Name:      driverID.String(),
		Latitude:  lat,
		Longitude: lng,
	}).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Remove drops a driver from the index. Removing an absent member is not an
// error.
func (g *GeoIndex) Remove(ctx context.Context, driverID uuid.UUID) error {
	const op = "GeoIndex.Remove"

	if err := g.client.ZRem(ctx, g.key, driverID.String()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// QueryRadius returns driver ids within radiusKm of the given point,
// ascending by distance (the index's native ordering is preserved).
func (g *GeoIndex) QueryRadius(ctx context.Context, lat, lng, radiusKm float64) ([]uuid.UUID, error) {
	const op = "GeoIndex.QueryRadius"

	locations, err := g.client.GeoSearchLocation(ctx, g.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lng,
			Latitude:   lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]uuid.UUID, 0, len(locations))
	for _, loc := range locations {
		id, err := uuid.Parse(loc.Name)
		if err != nil {
			// Foreign members in the set are not ours to interpret.
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Position resolves a driver's current coordinates. The second return is
// false when the driver is not in the index.
func (g *GeoIndex) Position(ctx context.Context, driverID uuid.UUID) (lat, lng float64, ok bool, err error) {
	const op = "GeoIndex.Position"

	positions, err := g.client.GeoPos(ctx, g.key, driverID.String()).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("%s: %w", op, err)
	}
	if len(positions) == 0 || positions[0] == nil {
		return 0, 0, false, nil
	}

	return positions[0].Latitude, positions[0].Longitude, true, nil
}
