package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	SuperAdminKey contextKey = "super_admin"
)

const (
	accessTokenCookie = "access_token"
	superAdminRole    = "super_admin"
)

// Authenticate verifies the HS256 access token issued by the auth service.
// The token is read from the access_token cookie or a Bearer header.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing access token"})
				return
			}

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid access token"})
				return
			}

			sub, err := claims.GetSubject()
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid access token"})
				return
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid access token subject"})
				return
			}

			role, _ := claims["role"].(string)
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, SuperAdminKey, role == superAdminRole)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func requesterFrom(r *http.Request) (domain.Requester, bool) {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		return domain.Requester{}, false
	}
	superAdmin, _ := r.Context().Value(SuperAdminKey).(bool)
	return domain.Requester{UserID: userID, SuperAdmin: superAdmin}, true
}
