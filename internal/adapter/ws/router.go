package ws

import (
	"context"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	"github.com/NgTrQuang/booking-vehicle/pkg/metrics"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
	wshub "github.com/NgTrQuang/booking-vehicle/pkg/wsHub"
)

const serviceName = "booking-vehicle"

// SessionRouter tracks at most one live connection per (account, role) and
// delivers event envelopes to them. A passenger and a driver may share an
// account id without colliding; the two roles live in separate hubs.
type SessionRouter struct {
	passengers *wshub.ConnectionHub
	drivers    *wshub.ConnectionHub
	log        logger.Logger
}

func NewSessionRouter(log logger.Logger) *SessionRouter {
	return &SessionRouter{
		passengers: wshub.NewConnHub(log),
		drivers:    wshub.NewConnHub(log),
		log:        log,
	}
}

func (r *SessionRouter) hub(role types.Role) *wshub.ConnectionHub {
	if role == types.RoleDriver {
		return r.drivers
	}
	return r.passengers
}

// Register tracks conn as the live session for the account. A previous
// session for the same account is closed and replaced.
func (r *SessionRouter) Register(role types.Role, conn *wshub.Conn) error {
	h := r.hub(role)

	_, err := h.GetConn(conn.EntityID())
	replacing := err == nil

	if err := h.Add(conn); err != nil {
		return err
	}
	if !replacing {
		metrics.WebSocketConnectionsGauge.WithLabelValues(serviceName, role.String()).Inc()
	}
	return nil
}

// Unregister drops conn. When the account has already reconnected the newer
// session stays tracked and only conn is closed.
func (r *SessionRouter) Unregister(role types.Role, accountID uuid.UUID, conn *wshub.Conn) {
	h := r.hub(role)

	current, err := h.GetConn(accountID)
	if err != nil {
		return
	}
	stale := conn != nil && current != conn

	if err := h.Delete(accountID, conn); err != nil {
		return
	}
	if !stale {
		metrics.WebSocketConnectionsGauge.WithLabelValues(serviceName, role.String()).Dec()
	}
}

// HasSession reports whether the account has a live connection in the role.
func (r *SessionRouter) HasSession(accountID uuid.UUID, role types.Role) bool {
	_, err := r.hub(role).GetConn(accountID)
	return err == nil
}

// SessionFor returns the live connection for the account, if any.
func (r *SessionRouter) SessionFor(accountID uuid.UUID, role types.Role) (*wshub.Conn, error) {
	return r.hub(role).GetConn(accountID)
}

// Send delivers one enveloped event to the account's live session.
// Fire-and-forget: when there is no session the event is dropped and
// wshub.ErrConnIsNotFound is returned; nothing is queued.
func (r *SessionRouter) Send(ctx context.Context, accountID uuid.UUID, role types.Role, event string, payload any) error {
	msg := models.Envelope{Event: event, Data: payload}
	if err := r.hub(role).SendTo(accountID, msg); err != nil {
		return err
	}
	r.log.Debug(ctx, "event delivered", "event", event, "to", accountID, "role", role.String())
	return nil
}

// Close shuts down every tracked connection in both hubs.
func (r *SessionRouter) Close() {
	r.passengers.Close()
	r.drivers.Close()
}
