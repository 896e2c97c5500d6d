package middleware

import (
	"context"
	"net/http"
	"strings"

	"btw-buddy/internal/auth"
	"btw-buddy/internal/repositories"
	"btw-buddy/pkg/utils"
)

type contextKey string

const UserIDKey contextKey = "user_id"
const EmailKey contextKey = "email"

type AuthMiddleware struct {
	issuer   *auth.Issuer
	userRepo *repositories.UserRepository
}

func NewAuthMiddleware(issuer *auth.Issuer, userRepo *repositories.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		issuer:   issuer,
		userRepo: userRepo,
	}
}

// Authenticate is a middleware that validates bearer access tokens.
// Every rejection is a 401 with a JSON detail so clients can refresh.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.issuer.ValidateToken(parts[1])
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		// Account status comes from the repository, not the token
		user, err := m.userRepo.Get(r.Context(), claims.UserID)
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, "User not found")
			return
		}
		if !user.IsActive {
			utils.Error(w, http.StatusForbidden, "Account suspended.")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
		ctx = context.WithValue(ctx, EmailKey, user.Email)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}

// GetEmailFromContext extracts email from request context
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}
