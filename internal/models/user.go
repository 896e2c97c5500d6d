package models

import "time"

type User struct {
	ID            int       `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	CompanyName   string    `json:"company_name,omitempty"`
	KvKNumber     string    `json:"kvk_number,omitempty"`
	BTWNumber     string    `json:"btw_number,omitempty"`
	PasswordHash  string    `json:"-"` // Never expose in JSON
	EmailVerified bool      `json:"email_verified"`
	IsActive      bool      `json:"is_active"`
	TOTPEnabled   bool      `json:"totp_enabled"`
	TOTPSecret    string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// SessionUser is the in-memory projection of a decoded access token
type SessionUser struct {
	UserID    int            `json:"user_id"`
	Email     string         `json:"email"`
	ExpiresAt time.Time      `json:"expires_at"`
	Claims    map[string]any `json:"claims,omitempty"` // every claim carried by the token
}

// LoginRequest represents the request body for /auth/login/
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is what the token-issuing endpoints return.
// Refresh is empty when the server does not rotate refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// LoginResponse is the raw /auth/login/ response. When Requires2FA is set,
// Tokens is nil and the caller must complete with /auth/verify-otp/.
type LoginResponse struct {
	Tokens      *TokenPair `json:"tokens,omitempty"`
	Requires2FA bool       `json:"requires_2fa"`
	UserID      int        `json:"user_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	User        *User      `json:"user,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// RefreshRequest represents the request body for /token/refresh/
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}
