package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/internal/service/trip"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
	wshub "github.com/NgTrQuang/booking-vehicle/pkg/wsHub"
)

type TripService interface {
	Request(ctx context.Context, passengerID uuid.UUID, in trip.RequestInput) (*models.Trip, error)
	Cancel(ctx context.Context, passengerID, tripID uuid.UUID) error
	Arrived(ctx context.Context, driverID, tripID uuid.UUID) error
	Start(ctx context.Context, driverID, tripID uuid.UUID) error
	Finish(ctx context.Context, driverID, tripID uuid.UUID) error
	Restore(ctx context.Context, accountID uuid.UUID, role types.Role) (*models.TripRestoredPayload, error)
}

type DriverService interface {
	GoOnline(ctx context.Context, driverID uuid.UUID, lat, lng float64) error
	GoOffline(ctx context.Context, driverID uuid.UUID) error
	UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error
}

type DispatchService interface {
	Accept(ctx context.Context, tripID, driverID uuid.UUID) error
	Reject(ctx context.Context, tripID, driverID uuid.UUID) error
}

type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// Handler terminates websocket sessions: it authenticates the handshake,
// registers the connection with the session router, replays active trip
// state and then routes inbound events for the connection's lifetime.
type Handler struct {
	router   *SessionRouter
	verifier TokenVerifier
	trips    TripService
	drivers  DriverService
	dispatch DispatchService
	log      logger.Logger

	upgrader websocket.Upgrader
}

func NewHandler(
	router *SessionRouter,
	verifier TokenVerifier,
	trips TripService,
	drivers DriverService,
	dispatch DispatchService,
	log logger.Logger,
) *Handler {
	return &Handler{
		router:   router,
		verifier: verifier,
		trips:    trips,
		drivers:  drivers,
		dispatch: dispatch,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// bearerToken extracts the access token from the Authorization header or,
// for browser clients that cannot set headers on a websocket handshake,
// from the token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionWebsocketSession)

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing access token", http.StatusUnauthorized)
		return
	}
	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.log.Debug(ctx, "handshake rejected", "error", err.Error())
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return
	}
	ctx = wrap.WithUserID(ctx, identity.AccountID.String())

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	// The session outlives the handshake request.
	sessionCtx := wrap.WithUserID(
		wrap.WithAction(context.Background(), types.ActionWebsocketSession),
		identity.AccountID.String(),
	)
	sessionCtx = wrap.WithRequestID(sessionCtx, wrap.GetRequestID(ctx))

	conn := wshub.NewConn(sessionCtx, identity.AccountID, wsConn)
	if err := h.router.Register(identity.Role, conn); err != nil {
		h.log.Error(sessionCtx, "failed to register session", err)
		_ = conn.Close()
		return
	}
	defer h.router.Unregister(identity.Role, identity.AccountID, conn)

	h.log.Info(sessionCtx, "session opened", "role", identity.Role.String())
	h.restore(sessionCtx, identity)

	err = conn.Listen(func(msg []byte) error {
		h.route(sessionCtx, identity, msg)
		return nil
	})
	if err != nil {
		h.log.Debug(sessionCtx, "session closed", "reason", err.Error())
	}
}

// restore replays the account's active trip, if any, so a reconnecting
// client resumes exactly where it left off.
func (h *Handler) restore(ctx context.Context, identity *models.Identity) {
	payload, err := h.trips.Restore(ctx, identity.AccountID, identity.Role)
	if err != nil {
		h.log.Error(ctx, "trip restore failed", err)
		return
	}
	if payload == nil {
		return
	}
	if err := h.router.Send(ctx, identity.AccountID, identity.Role, types.EventTripRestored, payload); err != nil {
		h.log.Warn(ctx, "failed to deliver trip:restored", "error", err.Error())
	}
}
