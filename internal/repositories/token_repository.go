package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrTokenInvalid = errors.New("token is invalid or expired")

type tokenEntry struct {
	userID    int
	subject   string
	expiresAt time.Time
}

// TokenRepository stores opaque single-purpose tokens: refresh tokens and
// email verification tokens.
type TokenRepository struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
	now    func() time.Time
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{tokens: make(map[string]tokenEntry), now: time.Now}
}

// Issue creates a random token for userID valid for ttl
func (r *TokenRepository) Issue(ctx context.Context, userID int, subject string, ttl time.Duration) string {
	token := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = tokenEntry{userID: userID, subject: subject, expiresAt: r.now().Add(ttl)}
	return token
}

// Lookup returns the user and subject a live token was issued for
func (r *TokenRepository) Lookup(ctx context.Context, token string) (int, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tokens[token]
	if !ok {
		return 0, "", ErrTokenInvalid
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.tokens, token)
		return 0, "", ErrTokenInvalid
	}
	return entry.userID, entry.subject, nil
}

// Consume is Lookup followed by Revoke, atomically
func (r *TokenRepository) Consume(ctx context.Context, token string) (int, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tokens[token]
	if !ok {
		return 0, "", ErrTokenInvalid
	}
	delete(r.tokens, token)
	if !r.now().Before(entry.expiresAt) {
		return 0, "", ErrTokenInvalid
	}
	return entry.userID, entry.subject, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
}

// RevokeUser drops every token issued to userID
func (r *TokenRepository) RevokeUser(ctx context.Context, userID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, entry := range r.tokens {
		if entry.userID == userID {
			delete(r.tokens, token)
		}
	}
}
