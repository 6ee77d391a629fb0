package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mizutamari/warikan/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// HouseholdIDKey is the context key for the authenticated household ID.
	HouseholdIDKey contextKey = "household_id"
	// AdminKey is the context key for the admin flag.
	AdminKey contextKey = "admin"
)

// GetHouseholdID extracts the household ID from the context.
// Returns empty string if not found.
func GetHouseholdID(ctx context.Context) string {
	householdID, _ := ctx.Value(HouseholdIDKey).(string)
	return householdID
}

// IsAdmin reports whether the context carries an admin session.
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(AdminKey).(bool)
	return admin
}

// RequireAuth validates the Bearer token on every request and adds the
// household ID and admin flag to the request context.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, auth.ErrMissingToken.Error(), http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, auth.ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), HouseholdIDKey, claims.HouseholdID)
			ctx = context.WithValue(ctx, AdminKey, claims.Admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
