package driver

import (
	"context"
	"errors"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/metrics"
	"github.com/NgTrQuang/booking-vehicle/pkg/trm"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

const serviceName = "booking-vehicle"

// Service owns driver availability and location. Durable state lives in the
// registry; the geo index mirrors the position of every non-OFFLINE driver.
type Service struct {
	drivers  DriverRegistry
	geo      GeoIndex
	trips    TripRepo
	sessions Sessions
	trm      trm.TxManager
	log      logger.Logger
}

func NewService(
	drivers DriverRegistry,
	geo GeoIndex,
	trips TripRepo,
	sessions Sessions,
	txManager trm.TxManager,
	log logger.Logger,
) *Service {
	return &Service{
		drivers:  drivers,
		geo:      geo,
		trips:    trips,
		sessions: sessions,
		trm:      txManager,
		log:      log,
	}
}

// GoOnline marks the driver ONLINE at the given position and makes them
// discoverable. Refused while the driver still holds an active trip; that
// driver belongs in BUSY until the trip resolves.
func (s *Service) GoOnline(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionDriverStatus), driverID.String())

	if err := s.requireNoActiveTrip(ctx, driverID); err != nil {
		return err
	}

	var old types.DriverStatus
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		old, err = s.drivers.SetStatus(ctx, driverID, types.StatusDriverOnline)
		if err != nil {
			return err
		}
		return s.drivers.UpsertLocation(ctx, driverID, lat, lng)
	})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	if err := s.geo.Upsert(ctx, driverID, lat, lng); err != nil {
		// The registry says ONLINE but the index missed the position. Roll
		// the status back so the driver is not half discoverable.
		s.log.Error(ctx, "geo upsert failed on go_online, reverting status", err)
		if _, rerr := s.drivers.SetStatus(ctx, driverID, old); rerr != nil {
			s.log.Error(ctx, "failed to revert driver status", rerr)
		}
		return wrap.Error(ctx, err)
	}

	if old != types.StatusDriverOnline {
		metrics.DriversOnlineGauge.WithLabelValues(serviceName).Inc()
	}
	s.log.Info(ctx, "driver online")
	s.echoStatus(ctx, driverID, types.StatusDriverOnline)
	return nil
}

// GoOffline removes the driver from dispatch entirely. Refused while an
// active trip is in progress.
func (s *Service) GoOffline(ctx context.Context, driverID uuid.UUID) error {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionDriverStatus), driverID.String())

	if err := s.requireNoActiveTrip(ctx, driverID); err != nil {
		return err
	}

	old, err := s.drivers.SetStatus(ctx, driverID, types.StatusDriverOffline)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if err := s.geo.Remove(ctx, driverID); err != nil {
		// Stale index entries are filtered out on search, so log and move on.
		s.log.Warn(ctx, "geo remove failed on go_offline", "error", err.Error())
	}

	if old == types.StatusDriverOnline {
		metrics.DriversOnlineGauge.WithLabelValues(serviceName).Dec()
	}
	s.log.Info(ctx, "driver offline")
	s.echoStatus(ctx, driverID, types.StatusDriverOffline)
	return nil
}

// UpdateLocation overwrites the driver's position in the index and in
// durable storage. While the driver is on an active trip the position is
// also streamed to that trip's passenger.
func (s *Service) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionDriverLocation), driverID.String())

	if err := s.geo.Upsert(ctx, driverID, lat, lng); err != nil {
		return wrap.Error(ctx, err)
	}
	if err := s.drivers.UpsertLocation(ctx, driverID, lat, lng); err != nil {
		return wrap.Error(ctx, err)
	}

	trip, err := s.trips.ActiveForDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, types.ErrTripNotFound) {
			return nil
		}
		return wrap.Error(ctx, err)
	}
	if trip.DriverID == nil {
		return nil
	}

	payload := models.DriverLocationPayload{
		TripID:   trip.ID,
		DriverID: driverID,
		Lat:      lat,
		Lng:      lng,
	}
	if serr := s.sessions.Send(ctx, trip.PassengerID, types.RolePassenger, types.EventDriverLocation, payload); serr != nil {
		s.log.Debug(ctx, "passenger offline for location update", "passenger_id", trip.PassengerID)
	}
	return nil
}

func (s *Service) requireNoActiveTrip(ctx context.Context, driverID uuid.UUID) error {
	_, err := s.trips.ActiveForDriver(ctx, driverID)
	if err == nil {
		return types.ErrDriverHasActiveTrip
	}
	if errors.Is(err, types.ErrTripNotFound) {
		return nil
	}
	return wrap.Error(ctx, err)
}

func (s *Service) echoStatus(ctx context.Context, driverID uuid.UUID, status types.DriverStatus) {
	if err := s.sessions.Send(ctx, driverID, types.RoleDriver, types.EventStatusChanged,
		models.StatusChangedPayload{Status: status.String()}); err != nil {
		s.log.Debug(ctx, "driver offline for status echo", "driver_id", driverID)
	}
}
