package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/metrics"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

const (
	msgNoDrivers    = "No available drivers found near you."
	msgAllDeclined  = "All drivers declined or did not respond."
	msgSearchFailed = "Could not search for nearby drivers. Please try again."
)

func activeCascades() prometheus.Gauge {
	return metrics.ActiveCascadesGauge.WithLabelValues(serviceName)
}

// Dispatch starts a cascade for a freshly created REQUESTED trip. It never
// leaves the trip hanging: if no candidates are found or the search itself
// fails, the trip is cancelled and the passenger is told immediately.
func (e *Engine) Dispatch(ctx context.Context, trip *models.Trip) error {
	ctx = wrap.WithTripID(wrap.WithAction(ctx, types.ActionDispatchCascade), trip.ID.String())

	candidates, err := e.FindNearestAvailable(ctx, trip.Pickup, nil)
	if err != nil {
		e.log.Error(ctx, "candidate search failed", err)
		e.terminate(ctx, trip, msgSearchFailed)
		return wrap.Error(ctx, err)
	}
	if len(candidates) == 0 {
		e.log.Info(ctx, "no candidates near pickup")
		e.terminate(ctx, trip, msgNoDrivers)
		return nil
	}

	if err := e.sessions.Send(ctx, trip.PassengerID, types.RolePassenger, types.EventTripSearching,
		models.TripSearchingPayload{TripID: trip.ID, DriversCount: len(candidates)}); err != nil {
		e.log.Debug(ctx, "passenger offline, searching notice dropped", "passenger_id", trip.PassengerID)
	}

	e.mu.Lock()
	e.pending[trip.ID] = &pendingDispatch{
		trip:       *trip,
		candidates: candidates,
		rejected:   make(map[uuid.UUID]struct{}, len(candidates)),
	}
	e.mu.Unlock()
	activeCascades().Inc()

	e.log.Info(ctx, "cascade started", "candidates", len(candidates))
	e.advance(ctx, trip.ID)
	return nil
}

// Accept resolves the cascade in favor of driverID. Only the holder of the
// current offer can accept; anyone else gets ErrOfferNotCurrent and the
// cascade is untouched.
func (e *Engine) Accept(ctx context.Context, tripID, driverID uuid.UUID) error {
	ctx = wrap.WithTripID(ctx, tripID.String())

	e.mu.Lock()
	p, ok := e.pending[tripID]
	if !ok {
		e.mu.Unlock()
		return types.ErrNoPendingDispatch
	}
	if p.cursor >= len(p.candidates) || p.candidates[p.cursor].Profile.ID != driverID {
		e.mu.Unlock()
		return types.ErrOfferNotCurrent
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.generation++
	winner := p.candidates[p.cursor]
	trip := p.trip
	delete(e.pending, tripID)
	e.mu.Unlock()

	activeCascades().Dec()
	metrics.RecordOffer(serviceName, "accepted")

	err := e.trm.Do(ctx, func(ctx context.Context) error {
		if err := e.trips.AssignAndAccept(ctx, tripID, driverID); err != nil {
			return err
		}
		if _, err := e.drivers.SetStatus(ctx, driverID, types.StatusDriverBusy); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		// The cascade is already gone, so the trip cannot recover. Close it
		// out rather than stranding the passenger in REQUESTED.
		e.log.Error(ctx, "accept persistence failed", err, "driver_id", driverID)
		e.terminate(ctx, &trip, msgAllDeclined)
		return wrap.Error(ctx, err)
	}

	updated, gerr := e.trips.GetByID(ctx, tripID)
	if gerr != nil {
		e.log.Warn(ctx, "reload after accept failed, using snapshot", "error", gerr.Error())
		updated = &trip
		updated.DriverID = &driverID
		updated.Status = types.StatusAccepted
	}

	e.recordEvent(ctx, tripID, types.StatusAccepted, updated.DriverID)

	accepted := models.TripAcceptedPayload{
		Trip: updated,
		Driver: models.AcceptedDriver{
			ID:          winner.Profile.ID,
			Name:        winner.Profile.Name,
			VehicleType: winner.Profile.VehicleType,
			PlateNumber: winner.Profile.PlateNumber,
		},
	}
	if lat, lng, found, perr := e.geo.Position(ctx, driverID); perr == nil && found {
		accepted.Driver.Lat = &lat
		accepted.Driver.Lng = &lng
	}

	if serr := e.sessions.Send(ctx, trip.PassengerID, types.RolePassenger, types.EventTripAccepted, accepted); serr != nil {
		e.log.Warn(ctx, "passenger offline for trip:accepted", "passenger_id", trip.PassengerID)
	}
	if serr := e.sessions.Send(ctx, driverID, types.RoleDriver, types.EventTripConfirmed,
		models.TripConfirmedPayload{Trip: updated}); serr != nil {
		e.log.Warn(ctx, "driver offline for trip:confirmed", "driver_id", driverID)
	}

	e.log.Info(ctx, "trip accepted", "driver_id", driverID)
	return nil
}

// Reject is an explicit decline from the holder of the current offer.
func (e *Engine) Reject(ctx context.Context, tripID, driverID uuid.UUID) error {
	ctx = wrap.WithTripID(ctx, tripID.String())

	e.mu.Lock()
	p, ok := e.pending[tripID]
	if !ok {
		e.mu.Unlock()
		return types.ErrNoPendingDispatch
	}
	if p.cursor >= len(p.candidates) || p.candidates[p.cursor].Profile.ID != driverID {
		e.mu.Unlock()
		return types.ErrOfferNotCurrent
	}
	gen := p.generation
	e.mu.Unlock()

	metrics.RecordOffer(serviceName, "rejected")
	e.log.Info(ctx, "offer rejected", "driver_id", driverID)

	if e.passOver(tripID, gen, driverID) {
		e.advance(ctx, tripID)
	}
	return nil
}

// passOver marks the current candidate as exhausted and moves the cursor,
// but only if the cascade is still at generation gen. Returns whether the
// caller won the race and should keep advancing.
func (e *Engine) passOver(tripID uuid.UUID, gen uint64, driverID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pending[tripID]
	if !ok || p.generation != gen {
		return false
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.rejected[driverID] = struct{}{}
	p.cursor++
	p.generation++
	return true
}

// advance walks the candidate list from the current cursor until an offer
// is delivered and its timer armed, or the list is exhausted. Candidates
// without a live session are skipped without consuming the offer window.
func (e *Engine) advance(ctx context.Context, tripID uuid.UUID) {
	for {
		e.mu.Lock()
		p, ok := e.pending[tripID]
		if !ok {
			e.mu.Unlock()
			return
		}
		if p.cursor >= len(p.candidates) {
			p.generation++
			trip := p.trip
			delete(e.pending, tripID)
			e.mu.Unlock()

			activeCascades().Dec()
			e.log.Info(ctx, "cascade exhausted")
			e.terminate(ctx, &trip, msgAllDeclined)
			return
		}
		candidate := p.candidates[p.cursor]
		gen := p.generation
		trip := p.trip
		e.mu.Unlock()

		driverID := candidate.Profile.ID
		if !e.sessions.HasSession(driverID, types.RoleDriver) {
			e.log.Debug(ctx, "candidate has no session, skipping", "driver_id", driverID)
			metrics.RecordOffer(serviceName, "skipped")
			if !e.passOver(tripID, gen, driverID) {
				return
			}
			continue
		}

		offer := models.TripOfferPayload{
			TripID:      trip.ID,
			PassengerID: trip.PassengerID,
			Pickup:      trip.Pickup,
			Dropoff:     trip.Dropoff,
			Distance:    trip.DistanceKm,
			Duration:    trip.DurationMin,
		}
		if err := e.sessions.Send(ctx, driverID, types.RoleDriver, types.EventTripRequest, offer); err != nil {
			e.log.Warn(ctx, "offer delivery failed, skipping candidate", "driver_id", driverID, "error", err.Error())
			metrics.RecordOffer(serviceName, "skipped")
			if !e.passOver(tripID, gen, driverID) {
				return
			}
			continue
		}

		e.mu.Lock()
		p, ok = e.pending[tripID]
		if !ok || p.generation != gen {
			// Resolved between delivery and arming; the winner already
			// took over.
			e.mu.Unlock()
			return
		}
		p.timer = time.AfterFunc(e.offerTimeout, func() {
			e.onOfferTimeout(tripID, gen)
		})
		e.mu.Unlock()

		e.log.Info(ctx, "offer sent", "driver_id", driverID)
		return
	}
}

func (e *Engine) onOfferTimeout(tripID uuid.UUID, gen uint64) {
	ctx := wrap.WithTripID(wrap.WithAction(context.Background(), types.ActionOfferTimeout), tripID.String())

	e.mu.Lock()
	p, ok := e.pending[tripID]
	if !ok || p.generation != gen {
		e.mu.Unlock()
		return
	}
	driverID := p.candidates[p.cursor].Profile.ID
	e.mu.Unlock()

	metrics.RecordOffer(serviceName, "timeout")
	e.log.Info(ctx, "offer timed out", "driver_id", driverID)

	if e.passOver(tripID, gen, driverID) {
		e.advance(ctx, tripID)
	}
}

// terminate closes out a trip that found no driver: REQUESTED -> CANCELLED,
// audit row, stream publish and a trip:no_driver notice to the passenger.
func (e *Engine) terminate(ctx context.Context, trip *models.Trip, message string) {
	if err := e.trips.UpdateStatus(ctx, trip.ID, types.StatusRequested, types.StatusCancelled); err != nil {
		e.log.Error(ctx, "failed to cancel undispatched trip", err)
	} else {
		metrics.TripsTotal.WithLabelValues(serviceName, types.StatusCancelled.String()).Inc()
	}

	e.recordEvent(ctx, trip.ID, types.StatusCancelled, nil)

	if err := e.sessions.Send(ctx, trip.PassengerID, types.RolePassenger, types.EventTripNoDriver,
		models.TripNoDriverPayload{TripID: trip.ID, Message: message}); err != nil {
		e.log.Debug(ctx, "passenger offline for trip:no_driver", "passenger_id", trip.PassengerID)
	}
}

// recordEvent writes the audit row and publishes the status change. Both
// are best effort and never fail the caller.
func (e *Engine) recordEvent(ctx context.Context, tripID uuid.UUID, status types.TripStatus, driverID *uuid.UUID) {
	data, _ := json.Marshal(map[string]string{"status": status.String()})
	if err := e.events.CreateEvent(ctx, tripID, status.String(), data); err != nil {
		e.log.Warn(ctx, "failed to record trip event", "error", err.Error())
	}

	msg := models.TripStatusMessage{
		TripID:        tripID,
		Status:        status,
		DriverID:      driverID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: wrap.GetRequestID(ctx),
	}
	if err := e.publisher.PublishTripStatus(ctx, msg); err != nil {
		e.log.Warn(ctx, "failed to publish trip status", "error", err.Error())
	}
}
