package models

import (
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// Identity is the resolved authentication result of a connection's bearer
// credential. Account management itself lives outside this service; the
// core only ever reads id and role.
type Identity struct {
	AccountID uuid.UUID
	Role      types.Role
}
