package types

const (
	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"
	ActionDispatchCascade           = "dispatch_cascade"
	ActionOfferTimeout              = "offer_timeout"
	ActionTripRestore               = "trip_restore"
	ActionTripRequest               = "trip_request"
	ActionTripCancel                = "trip_cancel"
	ActionTripTransition            = "trip_transition"
	ActionDriverStatus              = "driver_status"
	ActionDriverLocation            = "driver_location"
	ActionWebsocketSession          = "websocket_session"
)
