package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/robertfedus/natours/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	RoleKey   contextKey = "role"
)

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// UserLoader resolves a token's subject to the current account record;
// *store.DB implements it.
type UserLoader interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Auth requires a valid bearer token and puts the user's ID and role on the
// request context. The subject must still exist, and a token issued before
// the account's last password change is rejected.
func Auth(jwtSecret string, users UserLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := parseBearer(r, jwtSecret)
			if !ok {
				writeFail(w, http.StatusUnauthorized, "You are not logged in")
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				writeFail(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			user, err := users.UserByID(r.Context(), userID)
			if err != nil || user == nil {
				writeFail(w, http.StatusUnauthorized, "The user belonging to this token no longer exists")
				return
			}
			if staleToken(user, claims) {
				writeFail(w, http.StatusUnauthorized, "User recently changed password. Please log in again")
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, RoleKey, user.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth decodes a bearer token when one is present but lets anonymous
// requests through. Used on public tour reads so an admin token can reveal
// secret tours. A token for a deleted account or one issued before a password
// change grants nothing; the request proceeds anonymously.
func OptionalAuth(jwtSecret string, users UserLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := parseBearer(r, jwtSecret); ok {
				if userID, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
					if user, err := users.UserByID(r.Context(), userID); err == nil && user != nil && !staleToken(user, claims) {
						ctx := context.WithValue(r.Context(), UserIDKey, userID)
						ctx = context.WithValue(ctx, RoleKey, user.Role)
						r = r.WithContext(ctx)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user's ID set by Auth or
// OptionalAuth, and whether one was present.
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(UserIDKey).(primitive.ObjectID)
	return id, ok
}

// RoleFromContext returns the authenticated user's role, or "" for an
// anonymous request.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

// IsAdmin reports whether the request carries an admin role.
func IsAdmin(ctx context.Context) bool {
	return RoleFromContext(ctx) == models.RoleAdmin
}

// staleToken reports whether the account's password changed after the token
// was issued.
func staleToken(user *models.User, claims *Claims) bool {
	if claims.IssuedAt == nil {
		return true
	}
	return user.ChangedPasswordAfter(claims.IssuedAt.Time)
}

// RequireRole allows only the listed roles past. Must run after Auth.
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeFail(w, http.StatusForbidden, "You do not have permission to perform this action")
		})
	}
}

func parseBearer(r *http.Request, jwtSecret string) (*Claims, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return nil, false
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}
	token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, false
	}
	return claims, true
}

func writeFail(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "fail", "message": message})
}
