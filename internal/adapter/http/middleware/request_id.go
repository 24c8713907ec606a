package middleware

import (
	"net/http"

	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID injects a request ID into the context, reusing the client's
// header value when present so ids correlate across services.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.MustNew().String()
		}

		ctx := wrap.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
