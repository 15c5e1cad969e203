package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fieldops/internal/auth"
	"fieldops/internal/models"
	"fieldops/internal/store"
)

type authContextKey struct{}

type authInfo struct {
	User models.User
}

// AuthMiddleware verifies the bearer token and loads the caller once per
// request. Public endpoints pass through untouched.
func AuthMiddleware(issuer *auth.Issuer, users store.UserStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		claims, err := issuer.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		user, err := users.GetUser(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		if !user.Active {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "account disabled")
			return
		}
		if info := requestInfoFromContext(r.Context()); info != nil {
			info.UserID = user.UserID
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (models.User, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return models.User{}, false
	}
	info, ok := value.(authInfo)
	if !ok {
		return models.User{}, false
	}
	return info.User, true
}

// requireUser returns the authenticated caller or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing session")
		return models.User{}, false
	}
	return user, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if !user.IsAdmin() {
		writeError(w, r, http.StatusForbidden, "access_denied", "admin role required")
		return models.User{}, false
	}
	return user, true
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	case "/api/auth/register", "/api/auth/login", "/api/auth/forgot-password", "/api/auth/reset-password":
		return true
	default:
		return r.Method == http.MethodOptions
	}
}
