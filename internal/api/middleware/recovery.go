package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/tapearn/internal/api/apierr"
	"github.com/mcoot/tapearn/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// A panic is answered with the JSON internal error payload.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

// Logging creates request logging middleware for the API. Health probes are
// logged at Debug so they do not drown out player traffic.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger, func(r *http.Request, status int) slog.Level {
		if r.URL.Path == "/api/health" && status == http.StatusOK {
			return slog.LevelDebug
		}
		return middleware.DefaultLevel(r, status)
	})
}
