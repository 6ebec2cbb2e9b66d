package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

type contextKey string

const requestIDKey contextKey = "requestId"

// withRequestID assigns a fresh request id to every inbound request's
// context, grounded on server/server.go's WithRequestID/RequestKeyRequestID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestIDKey, uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDFrom reads back the id withRequestID attached, for inclusion
// in log fields.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// withRecovery guards every request against a handler panic, grounded on
// gorilla/handlers.RecoveryHandler (the same package server/server.go
// uses for its CORS wrapping).
func withRecovery(next http.Handler) http.Handler {
	return handlers.RecoveryHandler()(next)
}
