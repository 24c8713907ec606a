package types

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDriverNotFound = errors.New("driver not found")
	ErrTripNotFound   = errors.New("trip not found")
	ErrNotFound       = errors.New("requested item not found")

	ErrInvalidTransition      = errors.New("invalid trip status transition")
	ErrNotTripParticipant     = errors.New("account is not a participant of this trip")
	ErrTripCannotBeCancelled  = errors.New("trip cannot be cancelled")
	ErrDriverHasActiveTrip    = errors.New("driver has an active trip")
	ErrPassengerHasActiveTrip = errors.New("passenger already has an active trip")

	ErrNoPendingDispatch  = errors.New("no pending dispatch for trip")
	ErrOfferNotCurrent    = errors.New("offer is not current for this driver")
	ErrNoDriversAvailable = errors.New("no drivers available")

	ErrDatabaseFailed = errors.New("database operation failed")
	ErrGeoIndexFailed = errors.New("geo index operation failed")

	ErrInvalidToken = errors.New("invalid or expired token")
	ErrRoleMismatch = errors.New("event not allowed for this role")
)
