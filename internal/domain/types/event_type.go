package types

// Client-to-core event names.
const (
	EventGoOnline       = "go_online"
	EventGoOffline      = "go_offline"
	EventUpdateLocation = "update_location"
	EventAcceptTrip     = "accept_trip"
	EventRejectTrip     = "reject_trip"
	EventArrived        = "arrived"
	EventStartTrip      = "start_trip"
	EventFinishTrip     = "finish_trip"

	EventRequestTrip = "request_trip"
	EventCancelTrip  = "cancel_trip"
)

// Core-to-client event names.
const (
	EventStatusChanged     = "status_changed"
	EventTripRequest       = "trip:request"
	EventTripConfirmed     = "trip:confirmed"
	EventTripCancelled     = "trip:cancelled"
	EventTripRestored      = "trip:restored"
	EventTripSearching     = "trip:searching"
	EventTripAccepted      = "trip:accepted"
	EventDriverLocation    = "driver:location_update"
	EventTripDriverArrived = "trip:driver_arrived"
	EventTripStarted       = "trip:started"
	EventTripFinished      = "trip:finished"
	EventTripNoDriver      = "trip:no_driver"
)
