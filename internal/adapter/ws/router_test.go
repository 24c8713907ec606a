package ws

import (
	"context"
	"testing"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
	wshub "github.com/NgTrQuang/booking-vehicle/pkg/wsHub"
)

func newTestRouter() *SessionRouter {
	return NewSessionRouter(logger.InitLogger("test", logger.LevelError))
}

func TestRegister_TracksSessionPerRole(t *testing.T) {
	r := newTestRouter()
	accountID := uuid.MustNew()
	conn := wshub.NewConn(context.Background(), accountID, nil)

	if err := r.Register(types.RoleDriver, conn); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if !r.HasSession(accountID, types.RoleDriver) {
		t.Fatalf("driver session should be tracked")
	}
	if r.HasSession(accountID, types.RolePassenger) {
		t.Fatalf("roles must not share sessions")
	}
}

func TestRegister_LastConnectWins(t *testing.T) {
	r := newTestRouter()
	accountID := uuid.MustNew()
	old := wshub.NewConn(context.Background(), accountID, nil)
	if err := r.Register(types.RoleDriver, old); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	newer := wshub.NewConn(context.Background(), accountID, nil)
	if err := r.Register(types.RoleDriver, newer); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}

	got, err := r.SessionFor(accountID, types.RoleDriver)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if got != newer {
		t.Fatalf("the newer connection must replace the old one")
	}
}

func TestUnregister_StaleConnLeavesNewerSession(t *testing.T) {
	r := newTestRouter()
	accountID := uuid.MustNew()
	old := wshub.NewConn(context.Background(), accountID, nil)
	if err := r.Register(types.RoleDriver, old); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	newer := wshub.NewConn(context.Background(), accountID, nil)
	if err := r.Register(types.RoleDriver, newer); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}

	// The old connection's read loop exits after the replacement; its
	// deferred unregister must not tear down the live session.
	r.Unregister(types.RoleDriver, accountID, old)

	if !r.HasSession(accountID, types.RoleDriver) {
		t.Fatalf("newer session must survive the stale unregister")
	}

	r.Unregister(types.RoleDriver, accountID, newer)
	if r.HasSession(accountID, types.RoleDriver) {
		t.Fatalf("session should be gone after its own unregister")
	}
}

func TestSend_NoSession(t *testing.T) {
	r := newTestRouter()

	err := r.Send(context.Background(), uuid.MustNew(), types.RolePassenger, types.EventTripSearching, nil)
	if err == nil {
		t.Fatalf("send without a session must fail")
	}
}
