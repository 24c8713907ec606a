package dto

import (
	"encoding/json"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
	"github.com/NgTrQuang/booking-vehicle/pkg/validator"
)

func validLat(lat float64) bool { return lat >= -90 && lat <= 90 }
func validLng(lng float64) bool { return lng >= -180 && lng <= 180 }

// RequestTrip is the passenger's request_trip payload. Coordinates arrive
// as flat keys on the wire.
type RequestTrip struct {
	PickupLat  float64 `json:"pickupLat"`
	PickupLng  float64 `json:"pickupLng"`
	DropoffLat float64 `json:"dropoffLat"`
	DropoffLng float64 `json:"dropoffLng"`
	Distance   float64 `json:"distance"`
	Duration   float64 `json:"duration"`
}

func (r *RequestTrip) Validate(v *validator.Validator) {
	v.Check(validLat(r.PickupLat), "pickupLat", "must be between -90 and 90")
	v.Check(validLng(r.PickupLng), "pickupLng", "must be between -180 and 180")
	v.Check(validLat(r.DropoffLat), "dropoffLat", "must be between -90 and 90")
	v.Check(validLng(r.DropoffLng), "dropoffLng", "must be between -180 and 180")
	v.Check(r.Distance >= 0, "distance", "must not be negative")
	v.Check(r.Duration >= 0, "duration", "must not be negative")
}

// Pickup returns the pickup point as a coordinate pair.
func (r *RequestTrip) Pickup() models.LatLng {
	return models.LatLng{Lat: r.PickupLat, Lng: r.PickupLng}
}

// Dropoff returns the dropoff point as a coordinate pair.
func (r *RequestTrip) Dropoff() models.LatLng {
	return models.LatLng{Lat: r.DropoffLat, Lng: r.DropoffLng}
}

// TripAction references an existing trip: accept, reject, cancel, arrived,
// start, finish.
type TripAction struct {
	TripID uuid.UUID `json:"tripId"`
}

func (t *TripAction) Validate(v *validator.Validator) {
	v.Check(!t.TripID.IsNil(), "tripId", "must be provided")
}

// Location is a driver position report, also used for go_online.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l *Location) Validate(v *validator.Validator) {
	v.Check(validLat(l.Lat), "lat", "must be between -90 and 90")
	v.Check(validLng(l.Lng), "lng", "must be between -180 and 180")
}

// Decode unmarshals raw event data into dst and validates it. A decode or
// validation failure returns false; malformed client input is dropped, not
// answered.
func Decode[T interface{ Validate(*validator.Validator) }](data json.RawMessage, dst T) bool {
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false
	}
	v := validator.New()
	dst.Validate(v)
	return v.Valid()
}
