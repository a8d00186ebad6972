package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type sessionKey string

const (
	// SessionKeyIdentity holds the anonymous identity that owns the
	// session's bookings.
	SessionKeyIdentity = sessionKey("identity")
)

func (s sessionKey) String() string {
	return string(s)
}

func (app *Application) contextGetIdentity(r *http.Request) string {
	identity, ok := r.Context().Value(SessionKeyIdentity).(string)
	if !ok || identity == "" {
		panic("missing identity from context")
	}

	return identity
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	return app.logger.With("request_id", middleware.GetReqID(r.Context()))
}
