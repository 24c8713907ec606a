package middleware

import (
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
)

type Middleware struct {
	log logger.Logger
}

func NewMiddleware(log logger.Logger) *Middleware {
	return &Middleware{log: log}
}
