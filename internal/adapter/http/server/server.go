package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NgTrQuang/booking-vehicle/config"
	"github.com/NgTrQuang/booking-vehicle/internal/adapter/http/handler"
	"github.com/NgTrQuang/booking-vehicle/internal/adapter/http/middleware"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
)

const serviceName = "booking-vehicle"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	health  *handler.Health
	trip    *handler.Trip
	session http.Handler // websocket entrypoint
}

func New(
	cfg *config.Config,
	sessionHandler http.Handler,
	tripHistory handler.TripHistoryService,
	verifier handler.TokenVerifier,
	log logger.Logger,
) *API {
	routes := &handlers{
		health:  handler.NewHealth(serviceName, log),
		trip:    handler.NewTrip(tripHistory, verifier, log),
		session: sessionHandler,
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(log),
		addr:   cfg.Server.Addr(),
		log:    log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	api.setupRoutes()

	return api
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(serviceName)(a.m.Logging(a.mux))))
}
