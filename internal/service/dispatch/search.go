package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// FindNearestAvailable searches expanding rings around the pickup point and
// returns the first non-empty set of eligible candidates, nearest first.
// Eligible means present in the geo index, ONLINE in the registry and not in
// excludeIDs. A geo member without a registry row is a stale index entry and
// is silently skipped; infrastructure failures are returned, never swallowed.
func (e *Engine) FindNearestAvailable(ctx context.Context, pickup models.LatLng, excludeIDs []uuid.UUID) ([]models.Candidate, error) {
	exclude := make(map[uuid.UUID]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	for _, radius := range e.radiiKm {
		ids, err := e.geo.QueryRadius(ctx, pickup.Lat, pickup.Lng, radius)
		if err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%w: radius %.1f km: %w", types.ErrGeoIndexFailed, radius, err))
		}
		if len(ids) == 0 {
			continue
		}

		candidates := make([]models.Candidate, 0, len(ids))
		for _, id := range ids {
			if _, skip := exclude[id]; skip {
				continue
			}
			profile, err := e.drivers.Get(ctx, id)
			if err != nil {
				if errors.Is(err, types.ErrDriverNotFound) {
					continue
				}
				return nil, wrap.Error(ctx, fmt.Errorf("%w: driver %s: %w", types.ErrDatabaseFailed, id, err))
			}
			if profile.Status != types.StatusDriverOnline {
				continue
			}
			lat, lng, found, err := e.geo.Position(ctx, id)
			if err != nil {
				return nil, wrap.Error(ctx, fmt.Errorf("%w: position %s: %w", types.ErrGeoIndexFailed, id, err))
			}
			if !found {
				continue
			}
			candidates = append(candidates, models.Candidate{Profile: *profile, Lat: lat, Lng: lng})
		}
		if len(candidates) > 0 {
			e.log.Debug(ctx, "candidates found", "radius_km", radius, "count", len(candidates))
			return candidates, nil
		}
	}
	return nil, nil
}
