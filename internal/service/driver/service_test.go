package driver

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

type fakeRegistry struct {
	mu        sync.Mutex
	statuses  map[uuid.UUID]types.DriverStatus
	locations map[uuid.UUID][2]float64
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		statuses:  make(map[uuid.UUID]types.DriverStatus),
		locations: make(map[uuid.UUID][2]float64),
	}
}

func (r *fakeRegistry) Get(ctx context.Context, driverID uuid.UUID) (*models.DriverProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.statuses[driverID]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	return &models.DriverProfile{ID: driverID, Status: status}, nil
}

func (r *fakeRegistry) SetStatus(ctx context.Context, driverID uuid.UUID, status types.DriverStatus) (types.DriverStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.statuses[driverID]
	if !ok {
		old = types.StatusDriverOffline
	}
	r.statuses[driverID] = status
	return old, nil
}

func (r *fakeRegistry) UpsertLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[driverID] = [2]float64{lat, lng}
	return nil
}

func (r *fakeRegistry) status(driverID uuid.UUID) types.DriverStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[driverID]
}

type fakeGeo struct {
	mu        sync.Mutex
	members   map[uuid.UUID][2]float64
	upsertErr error
}

func newFakeGeo() *fakeGeo {
	return &fakeGeo{members: make(map[uuid.UUID][2]float64)}
}

func (g *fakeGeo) Upsert(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.upsertErr != nil {
		return g.upsertErr
	}
	g.members[driverID] = [2]float64{lat, lng}
	return nil
}

func (g *fakeGeo) Remove(ctx context.Context, driverID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, driverID)
	return nil
}

func (g *fakeGeo) has(driverID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.members[driverID]
	return ok
}

type fakeTrips struct {
	mu     sync.Mutex
	active map[uuid.UUID]*models.Trip // keyed by driver
}

func newFakeTrips() *fakeTrips {
	return &fakeTrips{active: make(map[uuid.UUID]*models.Trip)}
}

func (f *fakeTrips) ActiveForDriver(ctx context.Context, driverID uuid.UUID) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.active[driverID]
	if !ok {
		return nil, types.ErrTripNotFound
	}
	cp := *trip
	return &cp, nil
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

type fakeTxManager struct{}

func (fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

/* ======================= harness ======================= */

type fixture struct {
	svc      *Service
	registry *fakeRegistry
	geo      *fakeGeo
	trips    *fakeTrips
	sessions *fakeSessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry: newFakeRegistry(),
		geo:      newFakeGeo(),
		trips:    newFakeTrips(),
		sessions: &fakeSessions{},
	}
	f.svc = NewService(
		f.registry, f.geo, f.trips, f.sessions, fakeTxManager{},
		logger.InitLogger("test", logger.LevelError),
	)
	return f
}

/* ======================= tests ======================= */

func TestGoOnline_MakesDriverDiscoverable(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()

	if err := f.svc.GoOnline(context.Background(), driverID, 43.25, 76.95); err != nil {
		t.Fatalf("go online failed: %v", err)
	}

	if got := f.registry.status(driverID); got != types.StatusDriverOnline {
		t.Fatalf("expected ONLINE, got %s", got)
	}
	if !f.geo.has(driverID) {
		t.Fatalf("driver should be in the geo index")
	}
	if f.sessions.count(driverID, types.EventStatusChanged) != 1 {
		t.Fatalf("driver should get a status_changed echo")
	}
}

func TestGoOnline_RefusedWithActiveTrip(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	f.trips.active[driverID] = &models.Trip{ID: uuid.MustNew(), Status: types.StatusOnTrip}

	err := f.svc.GoOnline(context.Background(), driverID, 43.25, 76.95)
	if !errors.Is(err, types.ErrDriverHasActiveTrip) {
		t.Fatalf("expected ErrDriverHasActiveTrip, got %v", err)
	}
}

func TestGoOnline_GeoFailureRevertsStatus(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	f.registry.statuses[driverID] = types.StatusDriverOffline
	f.geo.upsertErr = errors.New("redis down")

	if err := f.svc.GoOnline(context.Background(), driverID, 43.25, 76.95); err == nil {
		t.Fatalf("expected go online to fail")
	}
	if got := f.registry.status(driverID); got != types.StatusDriverOffline {
		t.Fatalf("status must be rolled back when the index write fails, got %s", got)
	}
}

func TestGoOffline_RemovesFromIndex(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	if err := f.svc.GoOnline(context.Background(), driverID, 43.25, 76.95); err != nil {
		t.Fatalf("go online failed: %v", err)
	}

	if err := f.svc.GoOffline(context.Background(), driverID); err != nil {
		t.Fatalf("go offline failed: %v", err)
	}

	if got := f.registry.status(driverID); got != types.StatusDriverOffline {
		t.Fatalf("expected OFFLINE, got %s", got)
	}
	if f.geo.has(driverID) {
		t.Fatalf("offline driver must leave the geo index")
	}
}

func TestGoOffline_RefusedWithActiveTrip(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	f.registry.statuses[driverID] = types.StatusDriverBusy
	f.trips.active[driverID] = &models.Trip{ID: uuid.MustNew(), Status: types.StatusAccepted}

	err := f.svc.GoOffline(context.Background(), driverID)
	if !errors.Is(err, types.ErrDriverHasActiveTrip) {
		t.Fatalf("expected ErrDriverHasActiveTrip, got %v", err)
	}
	if got := f.registry.status(driverID); got != types.StatusDriverBusy {
		t.Fatalf("refused go offline must not change status, got %s", got)
	}
}

func TestUpdateLocation_StreamsToTripPassenger(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()
	passengerID := uuid.MustNew()
	did := driverID
	f.trips.active[driverID] = &models.Trip{
		ID:          uuid.MustNew(),
		PassengerID: passengerID,
		DriverID:    &did,
		Status:      types.StatusOnTrip,
	}

	if err := f.svc.UpdateLocation(context.Background(), driverID, 43.26, 76.96); err != nil {
		t.Fatalf("update location failed: %v", err)
	}

	if !f.geo.has(driverID) {
		t.Fatalf("position must land in the geo index")
	}
	if f.sessions.count(passengerID, types.EventDriverLocation) != 1 {
		t.Fatalf("passenger of the active trip should get the position")
	}
}

func TestUpdateLocation_NoTripNoBroadcast(t *testing.T) {
	f := newFixture(t)
	driverID := uuid.MustNew()

	if err := f.svc.UpdateLocation(context.Background(), driverID, 43.26, 76.96); err != nil {
		t.Fatalf("update location failed: %v", err)
	}

	f.sessions.mu.Lock()
	defer f.sessions.mu.Unlock()
	if len(f.sessions.events) != 0 {
		t.Fatalf("no trip, no broadcast; got %d events", len(f.sessions.events))
	}
}
