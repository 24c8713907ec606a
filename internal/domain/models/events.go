package models

import (
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// Envelope is the wire frame for every websocket message in both
// directions: {"event": "<name>", "data": {...}}.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

/* ======================= core -> driver ======================= */

type StatusChangedPayload struct {
	Status string `json:"status"`
}

// TripOfferPayload is a single offer delivered to one candidate driver.
type TripOfferPayload struct {
	TripID      uuid.UUID `json:"tripId"`
	PassengerID uuid.UUID `json:"passengerId"`
	Pickup      LatLng    `json:"pickup"`
	Dropoff     LatLng    `json:"dropoff"`
	Distance    float64   `json:"distance"`
	Duration    float64   `json:"duration"`
}

type TripConfirmedPayload struct {
	Trip *Trip `json:"trip"`
}

type TripCancelledPayload struct {
	TripID uuid.UUID `json:"tripId"`
}

/* ======================= core -> passenger ======================= */

type TripSearchingPayload struct {
	TripID       uuid.UUID `json:"tripId"`
	DriversCount int       `json:"driversCount"`
}

type TripAcceptedPayload struct {
	Trip   *Trip          `json:"trip"`
	Driver AcceptedDriver `json:"driver"`
}

// AcceptedDriver carries the assigned driver's profile and live position
// to the passenger on acceptance.
type AcceptedDriver struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	VehicleType string    `json:"vehicle_type"`
	PlateNumber string    `json:"plate_number"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
}

type DriverLocationPayload struct {
	TripID   uuid.UUID `json:"tripId"`
	DriverID uuid.UUID `json:"driverId"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
}

type TripStatusPayload struct {
	TripID uuid.UUID `json:"tripId"`
	Trip   *Trip     `json:"trip,omitempty"`
}

type TripNoDriverPayload struct {
	TripID  uuid.UUID `json:"tripId"`
	Message string    `json:"message"`
}

// TripRestoredPayload replays current state after a reconnect. DriverLocation
// is set only for passengers whose trip already has an assigned driver.
type TripRestoredPayload struct {
	Trip           *Trip           `json:"trip"`
	DriverLocation *DriverLocation `json:"driverLocation,omitempty"`
}
