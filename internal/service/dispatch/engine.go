package dispatch

import (
	"sync"
	"time"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	"github.com/NgTrQuang/booking-vehicle/pkg/trm"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

const serviceName = "booking-vehicle"

// DefaultOfferTimeout is how long a single driver holds an exclusive offer
// before the cascade moves on.
const DefaultOfferTimeout = 15 * time.Second

var defaultRadiiKm = []float64{1, 3, 5}

// pendingDispatch is the in-flight cascade state for one trip. All fields
// are guarded by Engine.mu. generation increments on every cursor move and
// on resolution, so a stale timer callback can detect it lost the race
// with a single integer comparison.
type pendingDispatch struct {
	trip       models.Trip
	candidates []models.Candidate
	cursor     int
	generation uint64
	rejected   map[uuid.UUID]struct{}
	timer      *time.Timer
}

// Engine runs the cascading offer protocol: one exclusive offer at a time,
// nearest candidate first, advancing on rejection, timeout or disconnect.
// All pending state is process local and lost on restart; trips stuck in
// REQUESTED are swept by the app on boot.
type Engine struct {
	geo       GeoIndex
	drivers   DriverRegistry
	trips     TripRepo
	sessions  Sessions
	events    EventLog
	publisher EventPublisher
	trm       trm.TxManager
	log       logger.Logger

	offerTimeout time.Duration
	radiiKm      []float64

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingDispatch
}

type Option func(*Engine)

// WithOfferTimeout overrides the per-offer response window.
func WithOfferTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.offerTimeout = d
		}
	}
}

// WithSearchRadii overrides the expanding search rings, in kilometers.
func WithSearchRadii(radiiKm []float64) Option {
	return func(e *Engine) {
		if len(radiiKm) > 0 {
			e.radiiKm = radiiKm
		}
	}
}

func NewEngine(
	geo GeoIndex,
	drivers DriverRegistry,
	trips TripRepo,
	sessions Sessions,
	events EventLog,
	publisher EventPublisher,
	txManager trm.TxManager,
	log logger.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		geo:          geo,
		drivers:      drivers,
		trips:        trips,
		sessions:     sessions,
		events:       events,
		publisher:    publisher,
		trm:          txManager,
		log:          log,
		offerTimeout: DefaultOfferTimeout,
		radiiKm:      defaultRadiiKm,
		pending:      make(map[uuid.UUID]*pendingDispatch),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasPending reports whether a cascade for the trip is still in flight.
func (e *Engine) HasPending(tripID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[tripID]
	return ok
}

// Abort drops the pending cascade for the trip, if any. The caller owns
// persisting the trip's terminal state; Abort only stops timers and frees
// the in-memory entry. Returns whether a cascade existed.
func (e *Engine) Abort(tripID uuid.UUID) bool {
	e.mu.Lock()
	p, ok := e.pending[tripID]
	if ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.generation++
		delete(e.pending, tripID)
	}
	e.mu.Unlock()

	if ok {
		activeCascades().Dec()
	}
	return ok
}
