package auth

import (
	"errors"
	"time"

	"btw-buddy/internal/config"
	"btw-buddy/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformedToken = errors.New("malformed access token")
	ErrTokenExpired   = errors.New("access token expired")
)

type Claims struct {
	UserID    int    `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"` // "access"
	jwt.RegisteredClaims
}

// DecodeAccessToken reads the claims of an access token without verifying its
// signature: the client never holds the signing key, it only needs the
// identity and expiry the server put in the token.
func DecodeAccessToken(tokenString string) (*models.SessionUser, error) {
	if tokenString == "" {
		return nil, ErrMalformedToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrMalformedToken
	}

	user := &models.SessionUser{Claims: map[string]any(claims)}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if id, ok := claims["user_id"].(float64); ok {
		user.UserID = int(id)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, ErrMalformedToken
	}
	if exp != nil {
		user.ExpiresAt = exp.Time
	}
	return user, nil
}

// Usable reports whether the decoded token carries an expiry that lies after now.
// A token without exp is treated as unusable and must be refreshed.
func Usable(user *models.SessionUser, now time.Time) bool {
	return user != nil && !user.ExpiresAt.IsZero() && now.Before(user.ExpiresAt)
}

// Issuer signs and validates HS256 access tokens for the development backend.
type Issuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

func NewIssuer(cfg *config.Config) *Issuer {
	return &Issuer{
		secret:    []byte(cfg.DevServer.JWTSecret),
		issuer:    cfg.DevServer.Issuer,
		accessTTL: time.Duration(cfg.DevServer.AccessTTLMinutes) * time.Minute,
		now:       time.Now,
	}
}

// WithClock replaces the issuer's time source; tests use it to mint expired tokens.
func (j *Issuer) WithClock(now func() time.Time) *Issuer {
	j.now = now
	return j
}

// GenerateAccessToken creates a new access token for a user
func (j *Issuer) GenerateAccessToken(user *models.User) (string, error) {
	now := j.now()
	claims := &Claims{
		UserID:    user.ID,
		Email:     user.Email,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken verifies an access token and returns the claims
func (j *Issuer) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.TokenType != "access" {
		return nil, errors.New("invalid token type")
	}

	return claims, nil
}
