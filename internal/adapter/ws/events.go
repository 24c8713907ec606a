package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/NgTrQuang/booking-vehicle/internal/adapter/ws/dto"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/internal/service/trip"
)

// inbound is the client-side envelope. Data stays raw until the event name
// selects a concrete payload shape.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// route dispatches one inbound frame. Malformed frames, unknown events and
// events outside the connection's role are dropped without a reply; the
// session itself is never torn down over bad input.
func (h *Handler) route(ctx context.Context, identity *models.Identity, msg []byte) {
	var in inbound
	if err := json.Unmarshal(msg, &in); err != nil || in.Event == "" {
		h.log.Debug(ctx, "malformed frame dropped")
		return
	}

	switch identity.Role {
	case types.RoleDriver:
		h.routeDriver(ctx, identity, in)
	case types.RolePassenger:
		h.routePassenger(ctx, identity, in)
	}
}

func (h *Handler) routeDriver(ctx context.Context, identity *models.Identity, in inbound) {
	driverID := identity.AccountID

	switch in.Event {
	case types.EventGoOnline:
		var loc dto.Location
		if !dto.Decode(in.Data, &loc) {
			h.log.Debug(ctx, "invalid go_online payload dropped")
			return
		}
		h.report(ctx, in.Event, h.drivers.GoOnline(ctx, driverID, loc.Lat, loc.Lng))

	case types.EventGoOffline:
		h.report(ctx, in.Event, h.drivers.GoOffline(ctx, driverID))

	case types.EventUpdateLocation:
		var loc dto.Location
		if !dto.Decode(in.Data, &loc) {
			h.log.Debug(ctx, "invalid update_location payload dropped")
			return
		}
		h.report(ctx, in.Event, h.drivers.UpdateLocation(ctx, driverID, loc.Lat, loc.Lng))

	case types.EventAcceptTrip:
		var action dto.TripAction
		if !dto.Decode(in.Data, &action) {
			h.log.Debug(ctx, "invalid accept_trip payload dropped")
			return
		}
		h.report(ctx, in.Event, h.dispatch.Accept(ctx, action.TripID, driverID))

	case types.EventRejectTrip:
		var action dto.TripAction
		if !dto.Decode(in.Data, &action) {
			h.log.Debug(ctx, "invalid reject_trip payload dropped")
			return
		}
		h.report(ctx, in.Event, h.dispatch.Reject(ctx, action.TripID, driverID))

	case types.EventArrived:
		var action dto.TripAction
		if !dto.Decode(in.Data, &action) {
			return
		}
		h.report(ctx, in.Event, h.trips.Arrived(ctx, driverID, action.TripID))

	case types.EventStartTrip:
		var action dto.TripAction
		if !dto.Decode(in.Data, &action) {
			return
		}
		h.report(ctx, in.Event, h.trips.Start(ctx, driverID, action.TripID))

	case types.EventFinishTrip:
		var action dto.TripAction
		if !dto.Decode(in.Data, &action) {
			return
		}
		h.report(ctx, in.Event, h.trips.Finish(ctx, driverID, action.TripID))

	default:
		h.log.Debug(ctx, "event not allowed for driver, dropped", "event", in.Event)
	}
}

func (h *Handler) routePassenger(ctx context.Context, identity *models.Identity, in inbound) {
	passengerID := identity.AccountID

	switch in.Event {
	case types.EventRequestTrip:
		var req dto.RequestTrip
		if !dto.Decode(in.Data, &req) {
			h.log.Debug(ctx, "invalid request_trip payload dropped")
			return
		}
		_, err := h.trips.Request(ctx, passengerID, trip.RequestInput{
			Pickup:      req.Pickup(),
			Dropoff:     req.Dropoff(),
			DistanceKm:  req.Distance,
			DurationMin: req.Duration,
		})
		h.report(ctx, in.Event, err)

	case types.EventCancelTrip:
		var action dto.TripAction
		if !dto.Decode(in.Data, &action) {
			h.log.Debug(ctx, "invalid cancel_trip payload dropped")
			return
		}
		h.report(ctx, in.Event, h.trips.Cancel(ctx, passengerID, action.TripID))

	default:
		h.log.Debug(ctx, "event not allowed for passenger, dropped", "event", in.Event)
	}
}

// report logs the outcome of one event. Client-caused failures (stale
// offers, illegal transitions, double requests) are ordinary traffic and
// log quietly; anything else is an infrastructure problem.
func (h *Handler) report(ctx context.Context, event string, err error) {
	if err == nil {
		return
	}
	if isClientFault(err) {
		h.log.Debug(ctx, "event refused", "event", event, "reason", err.Error())
		return
	}
	h.log.Error(ctx, "event handling failed", err, "event", event)
}

func isClientFault(err error) bool {
	return errors.Is(err, types.ErrNoPendingDispatch) ||
		errors.Is(err, types.ErrOfferNotCurrent) ||
		errors.Is(err, types.ErrInvalidTransition) ||
		errors.Is(err, types.ErrNotTripParticipant) ||
		errors.Is(err, types.ErrTripCannotBeCancelled) ||
		errors.Is(err, types.ErrDriverHasActiveTrip) ||
		errors.Is(err, types.ErrPassengerHasActiveTrip) ||
		errors.Is(err, types.ErrTripNotFound)
}
