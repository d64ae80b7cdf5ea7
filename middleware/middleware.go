package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/logging"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context by
// Authenticate.
type Identity struct {
	ID   primitive.ObjectID
	Role string
}

// AdminResolver checks that an identity id resolves to an admin document.
type AdminResolver interface {
	GetAdminByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
}

// UserResolver checks that an identity id resolves to a user document.
type UserResolver interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Authenticate validates the bearer token or token cookie and stores the
// identity on the request context.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractToken(r)
		if tokenStr == "" {
			logging.Logger.Warnf("Event ID: AUTH_MISSING_TOKEN, Description: No token provided for %s %s", r.Method, r.URL.Path)
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		claims, err := utils.ValidateToken(tokenStr)
		if err != nil {
			logging.Logger.Warnf("Event ID: AUTH_INVALID_TOKEN, Description: Invalid token for %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.ID)
		if err != nil {
			http.Error(w, "Missing id in token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, Identity{ID: id, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows the request through only when the authenticated id
// resolves to an admin document.
func RequireAdmin(resolver AdminResolver, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Missing id in token", http.StatusUnauthorized)
			return
		}
		if _, err := resolver.GetAdminByID(r.Context(), identity.ID); err != nil {
			logging.Logger.Warnf("Event ID: AUTH_ADMIN_REQUIRED, Description: Non-admin identity %s on %s %s", identity.ID.Hex(), r.Method, r.URL.Path)
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// RequireUser allows the request through only when the authenticated id
// resolves to a user document.
func RequireUser(resolver UserResolver, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "Missing id in token", http.StatusUnauthorized)
			return
		}
		if _, err := resolver.GetUserByID(r.Context(), identity.ID); err != nil {
			logging.Logger.Warnf("Event ID: AUTH_USER_REQUIRED, Description: Non-user identity %s on %s %s", identity.ID.Hex(), r.Method, r.URL.Path)
			http.Error(w, "User access required", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// IdentityFromContext returns the caller identity set by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// WithIdentity returns a context carrying the given identity. Used by
// handler tests to bypass token parsing.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.Header.Get("x-access-token")
}
