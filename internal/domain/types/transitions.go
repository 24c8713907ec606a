package types

// tripTransitions is the authoritative edge set of the trip lifecycle.
// Forward path: REQUESTED -> DRIVER_ASSIGNED -> ACCEPTED -> ARRIVED ->
// ON_TRIP -> COMPLETED. CANCELLED is reachable until the trip is ON_TRIP.
// Assignment and acceptance are folded into one step on the accept path,
// so REQUESTED -> ACCEPTED is also a legal edge.
var tripTransitions = map[TripStatus][]TripStatus{
	StatusRequested:      {StatusDriverAssigned, StatusAccepted, StatusCancelled},
	StatusDriverAssigned: {StatusAccepted, StatusCancelled},
	StatusAccepted:       {StatusArrived, StatusCancelled},
	StatusArrived:        {StatusOnTrip, StatusCancelled},
	StatusOnTrip:         {StatusCompleted},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// CanTransition reports whether moving a trip from one status to another
// follows a legal lifecycle edge.
func CanTransition(from, to TripStatus) bool {
	for _, next := range tripTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CancellableBy reports whether the requesting passenger may still cancel a
// trip in the given status. Cancelling mid-trip is disallowed.
func CancellableBy(status TripStatus) bool {
	return CanTransition(status, StatusCancelled)
}
