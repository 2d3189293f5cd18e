package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/OsianJL/questions-app/internal/auth"
)

type contextKey string

const UserIDContextKey contextKey = "user_id"

// AuthMiddleware verifies bearer access tokens.
type AuthMiddleware struct {
	tokens *auth.TokenService
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth rejects requests without a valid access token and stores the
// caller's user id in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		claims, err := m.tokens.Validate(raw, auth.PurposeAccess)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := WithUserID(r.Context(), claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the id carried by a valid access token on r, without
// rejecting the request. Used for keying rate limits.
func (m *AuthMiddleware) UserID(r *http.Request) (int64, bool) {
	raw, ok := bearerToken(r)
	if !ok {
		return 0, false
	}
	claims, err := m.tokens.Validate(raw, auth.PurposeAccess)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// GetUserIDFromContext retrieves the authenticated user id from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDContextKey).(int64)
	return id, ok
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}
