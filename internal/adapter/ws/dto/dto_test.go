package dto

import (
	"encoding/json"
	"testing"

	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

func TestDecode_RequestTrip(t *testing.T) {
	raw := json.RawMessage(`{
		"pickupLat": 10.77, "pickupLng": 106.70,
		"dropoffLat": 10.78, "dropoffLng": 106.71,
		"distance": 2.5,
		"duration": 9
	}`)

	var req RequestTrip
	if !Decode(raw, &req) {
		t.Fatalf("valid payload should decode")
	}
	if got := req.Pickup(); got.Lat != 10.77 || got.Lng != 106.70 {
		t.Fatalf("pickup coordinates lost in decode: %+v", got)
	}
	if got := req.Dropoff(); got.Lat != 10.78 || got.Lng != 106.71 {
		t.Fatalf("dropoff coordinates lost in decode: %+v", got)
	}
	if req.Distance != 2.5 || req.Duration != 9 {
		t.Fatalf("distance/duration lost in decode")
	}
}

func TestDecode_RejectsOutOfRangeCoordinates(t *testing.T) {
	cases := []string{
		`{"pickupLat": 91, "pickupLng": 0, "dropoffLat": 0, "dropoffLng": 0}`,
		`{"pickupLat": 0, "pickupLng": -181, "dropoffLat": 0, "dropoffLng": 0}`,
		`{"pickupLat": 0, "pickupLng": 0, "dropoffLat": -90.5, "dropoffLng": 0}`,
		`{"pickupLat": 0, "pickupLng": 0, "dropoffLat": 0, "dropoffLng": 0, "distance": -1}`,
	}
	for _, raw := range cases {
		var req RequestTrip
		if Decode(json.RawMessage(raw), &req) {
			t.Fatalf("payload should be rejected: %s", raw)
		}
	}
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	var req RequestTrip
	if Decode(json.RawMessage(`{"pickup": `), &req) {
		t.Fatalf("malformed json should be rejected")
	}
	if Decode(nil, &req) {
		t.Fatalf("empty data should be rejected")
	}
}

func TestDecode_TripAction(t *testing.T) {
	id := uuid.MustNew()
	var action TripAction
	if !Decode(json.RawMessage(`{"tripId": "`+id.String()+`"}`), &action) {
		t.Fatalf("valid trip action should decode")
	}
	if action.TripID != id {
		t.Fatalf("trip id lost in decode")
	}

	var empty TripAction
	if Decode(json.RawMessage(`{}`), &empty) {
		t.Fatalf("missing trip id should be rejected")
	}
}

func TestDecode_Location(t *testing.T) {
	var loc Location
	if !Decode(json.RawMessage(`{"lat": -89.9, "lng": 179.9}`), &loc) {
		t.Fatalf("valid location should decode")
	}
	if Decode(json.RawMessage(`{"lat": 0, "lng": 181}`), &loc) {
		t.Fatalf("out of range longitude should be rejected")
	}
}
