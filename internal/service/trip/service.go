package trip

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/metrics"
	"github.com/NgTrQuang/booking-vehicle/pkg/trm"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

const serviceName = "booking-vehicle"

// Service owns the trip lifecycle outside of the dispatch window: request
// intake, passenger cancellation, the driver-side forward transitions and
// state replay after reconnects.
type Service struct {
	trips      TripRepo
	drivers    DriverRegistry
	dispatcher Dispatcher
	sessions   Sessions
	geo        GeoIndex
	events     EventLog
	publisher  EventPublisher
	trm        trm.TxManager
	log        logger.Logger
}

func NewService(
	trips TripRepo,
	drivers DriverRegistry,
	dispatcher Dispatcher,
	sessions Sessions,
	geo GeoIndex,
	events EventLog,
	publisher EventPublisher,
	txManager trm.TxManager,
	log logger.Logger,
) *Service {
	return &Service{
		trips:      trips,
		drivers:    drivers,
		dispatcher: dispatcher,
		sessions:   sessions,
		geo:        geo,
		events:     events,
		publisher:  publisher,
		trm:        txManager,
		log:        log,
	}
}

// RequestInput is a validated trip request from a passenger.
type RequestInput struct {
	Pickup      models.LatLng
	Dropoff     models.LatLng
	DistanceKm  float64
	DurationMin float64
}

// Request creates a REQUESTED trip and hands it to the dispatcher. A
// passenger with a trip still in flight cannot open a second one.
func (s *Service) Request(ctx context.Context, passengerID uuid.UUID, in RequestInput) (*models.Trip, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionTripRequest), passengerID.String())

	existing, err := s.trips.ActiveForPassenger(ctx, passengerID)
	if err != nil && !errors.Is(err, types.ErrTripNotFound) {
		return nil, wrap.Error(ctx, err)
	}
	if existing != nil {
		return nil, types.ErrPassengerHasActiveTrip
	}

	trip := &models.Trip{
		PassengerID: passengerID,
		Pickup:      in.Pickup,
		Dropoff:     in.Dropoff,
		DistanceKm:  in.DistanceKm,
		DurationMin: in.DurationMin,
		Status:      types.StatusRequested,
	}
	created, err := s.trips.Create(ctx, trip)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	ctx = wrap.WithTripID(ctx, created.ID.String())

	s.recordStatus(ctx, created.ID, types.StatusRequested, nil)
	s.log.Info(ctx, "trip requested")

	if err := s.dispatcher.Dispatch(ctx, created); err != nil {
		// The dispatcher already cancelled the trip and told the passenger.
		return created, wrap.Error(ctx, err)
	}
	return created, nil
}

// Cancel is the passenger-initiated cancellation. Allowed until the trip
// goes ON_TRIP. An assigned driver is released back to ONLINE and told.
func (s *Service) Cancel(ctx context.Context, passengerID, tripID uuid.UUID) error {
	ctx = wrap.WithTripID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionTripCancel), passengerID.String()), tripID.String())

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if trip.PassengerID != passengerID {
		return types.ErrNotTripParticipant
	}
	if !types.CancellableBy(trip.Status) {
		return types.ErrTripCannotBeCancelled
	}

	s.dispatcher.Abort(tripID)

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.trips.UpdateStatus(ctx, tripID, trip.Status, types.StatusCancelled); err != nil {
			return err
		}
		if trip.DriverID != nil {
			if _, err := s.drivers.SetStatus(ctx, *trip.DriverID, types.StatusDriverOnline); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	metrics.TripsTotal.WithLabelValues(serviceName, types.StatusCancelled.String()).Inc()
	s.recordStatus(ctx, tripID, types.StatusCancelled, trip.DriverID)
	s.log.Info(ctx, "trip cancelled by passenger")

	if trip.DriverID != nil {
		if serr := s.sessions.Send(ctx, *trip.DriverID, types.RoleDriver, types.EventTripCancelled,
			models.TripCancelledPayload{TripID: tripID}); serr != nil {
			s.log.Debug(ctx, "driver offline for trip:cancelled", "driver_id", *trip.DriverID)
		}
	}
	return nil
}

// Arrived moves ACCEPTED -> ARRIVED and notifies the passenger.
func (s *Service) Arrived(ctx context.Context, driverID, tripID uuid.UUID) error {
	return s.driverTransition(ctx, driverID, tripID, types.StatusArrived, types.EventTripDriverArrived)
}

// Start moves ARRIVED -> ON_TRIP and notifies the passenger.
func (s *Service) Start(ctx context.Context, driverID, tripID uuid.UUID) error {
	return s.driverTransition(ctx, driverID, tripID, types.StatusOnTrip, types.EventTripStarted)
}

// Finish moves ON_TRIP -> COMPLETED, releases the driver back to ONLINE and
// notifies the passenger.
func (s *Service) Finish(ctx context.Context, driverID, tripID uuid.UUID) error {
	ctx = wrap.WithTripID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionTripTransition), driverID.String()), tripID.String())

	trip, err := s.authorizeDriver(ctx, driverID, tripID, types.StatusCompleted)
	if err != nil {
		return err
	}

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.trips.UpdateStatus(ctx, tripID, trip.Status, types.StatusCompleted); err != nil {
			return err
		}
		if _, err := s.drivers.SetStatus(ctx, driverID, types.StatusDriverOnline); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	metrics.TripsTotal.WithLabelValues(serviceName, types.StatusCompleted.String()).Inc()
	s.recordStatus(ctx, tripID, types.StatusCompleted, &driverID)
	s.log.Info(ctx, "trip completed")

	trip.Status = types.StatusCompleted
	s.notifyPassenger(ctx, trip, types.EventTripFinished)
	return nil
}

// History returns the most recent trips for an account, newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Trip, error) {
	trips, err := s.trips.HistoryFor(ctx, accountID, limit)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return trips, nil
}

// Restore returns the replay payload for a freshly connected account, or
// nil when it has no active trip. Passengers with an assigned driver also
// get the driver's last known position.
func (s *Service) Restore(ctx context.Context, accountID uuid.UUID, role types.Role) (*models.TripRestoredPayload, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionTripRestore), accountID.String())

	var (
		trip *models.Trip
		err  error
	)
	switch role {
	case types.RoleDriver:
		trip, err = s.trips.ActiveForDriver(ctx, accountID)
	default:
		trip, err = s.trips.ActiveForPassenger(ctx, accountID)
	}
	if err != nil {
		if errors.Is(err, types.ErrTripNotFound) {
			return nil, nil
		}
		return nil, wrap.Error(ctx, err)
	}

	payload := &models.TripRestoredPayload{Trip: trip}
	if role == types.RolePassenger && trip.DriverID != nil {
		if lat, lng, found, perr := s.geo.Position(ctx, *trip.DriverID); perr == nil && found {
			payload.DriverLocation = &models.DriverLocation{
				DriverID:  *trip.DriverID,
				Lat:       lat,
				Lng:       lng,
				UpdatedAt: time.Now().UTC(),
			}
		}
	}
	return payload, nil
}

func (s *Service) driverTransition(ctx context.Context, driverID, tripID uuid.UUID, to types.TripStatus, event string) error {
	ctx = wrap.WithTripID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionTripTransition), driverID.String()), tripID.String())

	trip, err := s.authorizeDriver(ctx, driverID, tripID, to)
	if err != nil {
		return err
	}

	if err := s.trips.UpdateStatus(ctx, tripID, trip.Status, to); err != nil {
		return wrap.Error(ctx, err)
	}

	s.recordStatus(ctx, tripID, to, &driverID)
	s.log.Info(ctx, "trip status advanced", "to", to.String())

	trip.Status = to
	s.notifyPassenger(ctx, trip, event)
	return nil
}

// authorizeDriver loads the trip and checks that driverID holds it and that
// the requested edge is legal from the trip's current status.
func (s *Service) authorizeDriver(ctx context.Context, driverID, tripID uuid.UUID, to types.TripStatus) (*models.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if trip.DriverID == nil || *trip.DriverID != driverID {
		return nil, types.ErrNotTripParticipant
	}
	if !types.CanTransition(trip.Status, to) {
		return nil, types.ErrInvalidTransition
	}
	return trip, nil
}

func (s *Service) notifyPassenger(ctx context.Context, trip *models.Trip, event string) {
	payload := models.TripStatusPayload{TripID: trip.ID, Trip: trip}
	if err := s.sessions.Send(ctx, trip.PassengerID, types.RolePassenger, event, payload); err != nil {
		s.log.Debug(ctx, "passenger offline for trip status event", "event", event, "passenger_id", trip.PassengerID)
	}
}

// recordStatus appends the audit row and publishes to the event stream.
// Best effort on both counts.
func (s *Service) recordStatus(ctx context.Context, tripID uuid.UUID, status types.TripStatus, driverID *uuid.UUID) {
	data, _ := json.Marshal(map[string]string{"status": status.String()})
	if err := s.events.CreateEvent(ctx, tripID, status.String(), data); err != nil {
		s.log.Warn(ctx, "failed to record trip event", "error", err.Error())
	}

	msg := models.TripStatusMessage{
		TripID:        tripID,
		Status:        status,
		DriverID:      driverID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: wrap.GetRequestID(ctx),
	}
	if err := s.publisher.PublishTripStatus(ctx, msg); err != nil {
		s.log.Warn(ctx, "failed to publish trip status", "error", err.Error())
	}
}
