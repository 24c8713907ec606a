package types

// Role of an authenticated account. A connection carries exactly one role.
type Role string

func (r Role) String() string {
	return string(r)
}

const (
	RolePassenger Role = "PASSENGER"
	RoleDriver    Role = "DRIVER"
)

// DriverStatus is the durable availability state of a driver.
type DriverStatus string

func (s DriverStatus) String() string {
	return string(s)
}

const (
	StatusDriverOnline  DriverStatus = "ONLINE"
	StatusDriverOffline DriverStatus = "OFFLINE"
	StatusDriverBusy    DriverStatus = "BUSY"
)

// TripStatus is the closed lifecycle enum for trips.
type TripStatus string

func (s TripStatus) String() string {
	return string(s)
}

const (
	StatusRequested      TripStatus = "REQUESTED"
	StatusDriverAssigned TripStatus = "DRIVER_ASSIGNED"
	StatusAccepted       TripStatus = "ACCEPTED"
	StatusArrived        TripStatus = "ARRIVED"
	StatusOnTrip         TripStatus = "ON_TRIP"
	StatusCompleted      TripStatus = "COMPLETED"
	StatusCancelled      TripStatus = "CANCELLED"
)

// Terminal reports whether s is a final state.
func (s TripStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
