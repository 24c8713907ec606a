package trip

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

/* ======================= fakes ======================= */

type fakeTrips struct {
	mu    sync.Mutex
	trips map[uuid.UUID]*models.Trip
}

func newFakeTrips() *fakeTrips {
	return &fakeTrips{trips: make(map[uuid.UUID]*models.Trip)}
}

func (f *fakeTrips) put(trip *models.Trip) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *trip
	f.trips[trip.ID] = &cp
}

func (f *fakeTrips) Create(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	trip.ID = uuid.MustNew()
	f.put(trip)
	cp := *trip
	return &cp, nil
}

func (f *fakeTrips) GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok {
		return nil, types.ErrTripNotFound
	}
	cp := *trip
	return &cp, nil
}

func (f *fakeTrips) UpdateStatus(ctx context.Context, tripID uuid.UUID, from, to types.TripStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok {
		return types.ErrTripNotFound
	}
	if trip.Status != from {
		return types.ErrInvalidTransition
	}
	trip.Status = to
	return nil
}

func (f *fakeTrips) activeFor(match func(*models.Trip) bool) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, trip := range f.trips {
		if trip.Active() && match(trip) {
			cp := *trip
			return &cp, nil
		}
	}
	return nil, types.ErrTripNotFound
}

func (f *fakeTrips) ActiveForPassenger(ctx context.Context, passengerID uuid.UUID) (*models.Trip, error) {
	return f.activeFor(func(t *models.Trip) bool { return t.PassengerID == passengerID })
}

func (f *fakeTrips) ActiveForDriver(ctx context.Context, driverID uuid.UUID) (*models.Trip, error) {
	return f.activeFor(func(t *models.Trip) bool { return t.DriverID != nil && *t.DriverID == driverID })
}

func (f *fakeTrips) HistoryFor(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Trip
	for _, trip := range f.trips {
		if trip.Status.Terminal() && (trip.PassengerID == accountID || (trip.DriverID != nil && *trip.DriverID == accountID)) {
			cp := *trip
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTrips) status(tripID uuid.UUID) types.TripStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trips[tripID].Status
}

type fakeRegistry struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]types.DriverStatus
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{statuses: make(map[uuid.UUID]types.DriverStatus)}
}

func (r *fakeRegistry) SetStatus(ctx context.Context, driverID uuid.UUID, status types.DriverStatus) (types.DriverStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.statuses[driverID]
	r.statuses[driverID] = status
	return old, nil
}

func (r *fakeRegistry) status(driverID uuid.UUID) types.DriverStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[driverID]
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []uuid.UUID
	aborted    []uuid.UUID
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, trip *models.Trip) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, trip.ID)
	return nil
}

func (d *fakeDispatcher) Abort(tripID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aborted = append(d.aborted, tripID)
	return true
}

type sentEvent struct {
	to    uuid.UUID
	role  types.Role
	event string
	data  any
}

type fakeSessions struct {
	mu     sync.Mutex
	events []sentEvent
}

func (s *fakeSessions) Send(ctx context.Context, accountID uuid.UUID, role types.Role, event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sentEvent{to: accountID, role: role, event: event, data: payload})
	return nil
}

func (s *fakeSessions) count(to uuid.UUID, event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.to == to && e.event == event {
			n++
		}
	}
	return n
}

type fakeGeo struct {
	positions map[uuid.UUID][2]float64
}

func (g *fakeGeo) Position(ctx context.Context, driverID uuid.UUID) (float64, float64, bool, error) {
	pos, ok := g.positions[driverID]
	if !ok {
		return 0, 0, false, nil
	}
	return pos[0], pos[1], true, nil
}

type fakeEvents struct{}

func (fakeEvents) CreateEvent(ctx context.Context, tripID uuid.UUID, eventType string, eventData []byte) error {
	return nil
}

type fakePublisher struct{}

func (fakePublisher) PublishTripStatus(ctx context.Context, msg models.TripStatusMessage) error {
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

/* ======================= harness ======================= */

type fixture struct {
	svc        *Service
	trips      *fakeTrips
	registry   *fakeRegistry
	dispatcher *fakeDispatcher
	sessions   *fakeSessions
	geo        *fakeGeo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		trips:      newFakeTrips(),
		registry:   newFakeRegistry(),
		dispatcher: &fakeDispatcher{},
		sessions:   &fakeSessions{},
		geo:        &fakeGeo{positions: make(map[uuid.UUID][2]float64)},
	}
	f.svc = NewService(
		f.trips, f.registry, f.dispatcher, f.sessions, f.geo,
		fakeEvents{}, fakePublisher{}, fakeTxManager{},
		logger.InitLogger("test", logger.LevelError),
	)
	return f
}

func (f *fixture) seedTrip(passengerID uuid.UUID, driverID *uuid.UUID, status types.TripStatus) *models.Trip {
	trip := &models.Trip{
		ID:          uuid.MustNew(),
		PassengerID: passengerID,
		DriverID:    driverID,
		Pickup:      models.LatLng{Lat: 43.2, Lng: 76.9},
		Dropoff:     models.LatLng{Lat: 43.3, Lng: 77.0},
		Status:      status,
	}
	f.trips.put(trip)
	return trip
}

var testInput = RequestInput{
	Pickup:      models.LatLng{Lat: 43.2, Lng: 76.9},
	Dropoff:     models.LatLng{Lat: 43.3, Lng: 77.0},
	DistanceKm:  5.5,
	DurationMin: 14,
}

/* ======================= tests ======================= */

func TestRequest_CreatesAndDispatches(t *testing.T) {
	f := newFixture(t)
	passengerID := uuid.MustNew()

	trip, err := f.svc.Request(context.Background(), passengerID, testInput)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if trip.Status != types.StatusRequested {
		t.Fatalf("new trip must start REQUESTED, got %s", trip.Status)
	}
	if len(f.dispatcher.dispatched) != 1 || f.dispatcher.dispatched[0] != trip.ID {
		t.Fatalf("trip should be handed to the dispatcher")
	}
}

func TestRequest_RefusedWhileActiveTripExists(t *testing.T) {
	f := newFixture(t)
	passengerID := uuid.MustNew()
	f.seedTrip(passengerID, nil, types.StatusRequested)

	_, err := f.svc.Request(context.Background(), passengerID, testInput)
	if !errors.Is(err, types.ErrPassengerHasActiveTrip) {
		t.Fatalf("expected ErrPassengerHasActiveTrip, got %v", err)
	}
	if len(f.dispatcher.dispatched) != 0 {
		t.Fatalf("refused request must not dispatch")
	}
}

func TestCancel_OnlyOwningPassenger(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(uuid.MustNew(), nil, types.StatusRequested)

	err := f.svc.Cancel(context.Background(), uuid.MustNew(), trip.ID)
	if !errors.Is(err, types.ErrNotTripParticipant) {
		t.Fatalf("expected ErrNotTripParticipant, got %v", err)
	}
}

func TestCancel_RefusedMidTrip(t *testing.T) {
	f := newFixture(t)
	passengerID := uuid.MustNew()
	driverID := uuid.MustNew()
	trip := f.seedTrip(passengerID, &driverID, types.StatusOnTrip)

	err := f.svc.Cancel(context.Background(), passengerID, trip.ID)
	if !errors.Is(err, types.ErrTripCannotBeCancelled) {
		t.Fatalf("expected ErrTripCannotBeCancelled, got %v", err)
	}
	if got := f.trips.status(trip.ID); got != types.StatusOnTrip {
		t.Fatalf("refused cancel must not change state, got %s", got)
	}
}

func TestCancel_ReleasesAssignedDriver(t *testing.T) {
	f := newFixture(t)
	passengerID := uuid.MustNew()
	driverID := uuid.MustNew()
	f.registry.statuses[driverID] = types.StatusDriverBusy
	trip := f.seedTrip(passengerID, &driverID, types.StatusAccepted)

	if err := f.svc.Cancel(context.Background(), passengerID, trip.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if got := f.trips.status(trip.ID); got != types.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", got)
	}
	if got := f.registry.status(driverID); got != types.StatusDriverOnline {
		t.Fatalf("assigned driver must be released back to ONLINE, got %s", got)
	}
	if f.sessions.count(driverID, types.EventTripCancelled) != 1 {
		t.Fatalf("assigned driver should be told about the cancellation")
	}
	if len(f.dispatcher.aborted) != 1 {
		t.Fatalf("pending cascade should be aborted")
	}
}

func TestDriverTransitions_WalkForward(t *testing.T) {
	f := newFixture(t)
	passengerID := uuid.MustNew()
	driverID := uuid.MustNew()
	trip := f.seedTrip(passengerID, &driverID, types.StatusAccepted)

	if err := f.svc.Arrived(context.Background(), driverID, trip.ID); err != nil {
		t.Fatalf("arrived failed: %v", err)
	}
	if f.sessions.count(passengerID, types.EventTripDriverArrived) != 1 {
		t.Fatalf("passenger should get trip:driver_arrived")
	}

	if err := f.svc.Start(context.Background(), driverID, trip.ID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if got := f.trips.status(trip.ID); got != types.StatusOnTrip {
		t.Fatalf("expected ON_TRIP, got %s", got)
	}

	if err := f.svc.Finish(context.Background(), driverID, trip.ID); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if got := f.trips.status(trip.ID); got != types.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}
	if got := f.registry.status(driverID); got != types.StatusDriverOnline {
		t.Fatalf("completed trip must release the driver, got %s", got)
	}
	if f.sessions.count(passengerID, types.EventTripFinished) != 1 {
		t.Fatalf("passenger should get trip:finished")
	}
}

func TestDriverTransitions_RejectWrongDriver(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	trip := f.seedTrip(uuid.MustNew(), &driverID, types.StatusAccepted)

	err := f.svc.Arrived(context.Background(), uuid.MustNew(), trip.ID)
	if !errors.Is(err, types.ErrNotTripParticipant) {
		t.Fatalf("expected ErrNotTripParticipant, got %v", err)
	}
}

func TestDriverTransitions_RejectIllegalEdge(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	trip := f.seedTrip(uuid.MustNew(), &driverID, types.StatusAccepted)

	// ACCEPTED -> ON_TRIP skips ARRIVED
	err := f.svc.Start(context.Background(), driverID, trip.ID)
	if !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRestore_NoActiveTrip(t *testing.T) {
	f := newFixture(t)

	payload, err := f.svc.Restore(context.Background(), uuid.MustNew(), types.RolePassenger)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if payload != nil {
		t.Fatalf("no active trip should yield a nil payload")
	}
}

func TestRestore_PassengerGetsDriverLocation(t *testing.T) {
	f := newFixture(t)
	passengerID := uuid.MustNew()
	driverID := uuid.MustNew()
	f.geo.positions[driverID] = [2]float64{43.26, 76.91}
	f.seedTrip(passengerID, &driverID, types.StatusOnTrip)

	payload, err := f.svc.Restore(context.Background(), passengerID, types.RolePassenger)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if payload == nil || payload.Trip == nil {
		t.Fatalf("expected restored trip")
	}
	if payload.DriverLocation == nil || payload.DriverLocation.DriverID != driverID {
		t.Fatalf("passenger restore should carry the driver's position")
	}
}

func TestRestore_DriverGetsTripOnly(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	f.seedTrip(uuid.MustNew(), &driverID, types.StatusArrived)

	payload, err := f.svc.Restore(context.Background(), driverID, types.RoleDriver)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if payload == nil || payload.Trip == nil {
		t.Fatalf("expected restored trip for driver")
	}
	if payload.DriverLocation != nil {
		t.Fatalf("driver restore must not embed their own location")
	}
}
