package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

var testPickup = models.LatLng{Lat: 43.24, Lng: 76.94}

func TestFindNearestAvailable_ExpandsRings(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	far := f.addDriver("far", 5)

	candidates, err := f.engine.FindNearestAvailable(context.Background(), testPickup, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Profile.ID != far {
		t.Fatalf("expected the 5km driver after expanding, got %d candidates", len(candidates))
	}
}

func TestFindNearestAvailable_InnerRingWins(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	near := f.addDriver("near", 1)
	f.addDriver("far", 5)

	candidates, err := f.engine.FindNearestAvailable(context.Background(), testPickup, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Profile.ID != near {
		t.Fatalf("search must stop at the first non-empty ring")
	}
}

func TestFindNearestAvailable_FiltersIneligible(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	busy := f.addDriver("busy", 1)
	offline := f.addDriver("offline", 1)
	eligible := f.addDriver("eligible", 1)

	f.registry.mu.Lock()
	f.registry.profiles[busy].Status = types.StatusDriverBusy
	f.registry.profiles[offline].Status = types.StatusDriverOffline
	f.registry.mu.Unlock()

	candidates, err := f.engine.FindNearestAvailable(context.Background(), testPickup, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Profile.ID != eligible {
		t.Fatalf("only ONLINE drivers are eligible, got %d candidates", len(candidates))
	}
}

func TestFindNearestAvailable_Excludes(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	excluded := f.addDriver("excluded", 1)
	kept := f.addDriver("kept", 1)

	candidates, err := f.engine.FindNearestAvailable(context.Background(), testPickup, []uuid.UUID{excluded})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Profile.ID != kept {
		t.Fatalf("excluded driver must not come back")
	}
}

func TestFindNearestAvailable_SkipsStaleIndexEntries(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	kept := f.addDriver("kept", 1)

	// geo member without a registry row
	stale := uuid.MustNew()
	f.geo.mu.Lock()
	f.geo.rings[1] = append([]uuid.UUID{stale}, f.geo.rings[1]...)
	f.geo.positions[stale] = [2]float64{43.2, 76.9}
	f.geo.mu.Unlock()

	candidates, err := f.engine.FindNearestAvailable(context.Background(), testPickup, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Profile.ID != kept {
		t.Fatalf("stale index entries must be skipped silently")
	}
}

func TestFindNearestAvailable_PreservesProximityOrder(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	first := f.addDriver("first", 3)
	second := f.addDriver("second", 3)
	third := f.addDriver("third", 3)

	candidates, err := f.engine.FindNearestAvailable(context.Background(), testPickup, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	want := []uuid.UUID{first, second, third}
	for i, id := range want {
		if candidates[i].Profile.ID != id {
			t.Fatalf("candidate order must follow index order, mismatch at %d", i)
		}
	}
}
