package middleware

import (
	"errors"
	"net/http"

	"github.com/mcoot/tapearn/internal/api/apierr"
	"github.com/mcoot/tapearn/internal/services/auth"
)

// AdminKeyHeader carries the admin key on admin API requests
const AdminKeyHeader = "x-admin-key"

// AdminKey creates middleware that rejects requests without a valid admin key
func AdminKey(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := authService.VerifyAdminKey(r.Header.Get(AdminKeyHeader))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrAdminDisabled):
				apierr.WriteError(w, apierr.NewForbiddenError(err.Error()))
			default:
				apierr.WriteError(w, apierr.NewUnauthorizedError())
			}
		})
	}
}
