package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

const defaultHistoryLimit = 20

type TripHistoryService interface {
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Trip, error)
}

type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// Trip serves the read-only REST surface for trips. The live lifecycle runs
// over websocket; this handler only exposes finished history.
type Trip struct {
	trips    TripHistoryService
	verifier TokenVerifier
	log      logger.Logger
}

func NewTrip(trips TripHistoryService, verifier TokenVerifier, log logger.Logger) *Trip {
	return &Trip{
		trips:    trips,
		verifier: verifier,
		log:      log,
	}
}

// History returns the requester's most recent finished trips, newest first.
func (h *Trip) History(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "trip_history")

	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		errorResponse(w, http.StatusUnauthorized, "missing access token")
		return
	}
	identity, err := h.verifier.Verify(token)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "invalid access token")
		return
	}
	ctx = wrap.WithUserID(ctx, identity.AccountID.String())

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			errorResponse(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	trips, err := h.trips.History(ctx, identity.AccountID, limit)
	if err != nil {
		h.log.Error(ctx, "failed to load trip history", err)
		errorResponse(w, http.StatusInternalServerError, "could not load trip history")
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trips": trips}, nil); err != nil {
		h.log.Error(ctx, "failed to write trip history", err)
	}
}
