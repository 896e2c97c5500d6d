package repositories

import (
	"context"
	"sync"
	"time"
)

type totpAttempt struct {
	success bool
	at      time.Time
}

// TOTPRepository keeps recent one-time code verification attempts for rate limiting
type TOTPRepository struct {
	mu       sync.Mutex
	attempts map[int][]totpAttempt
	now      func() time.Time
}

func NewTOTPRepository() *TOTPRepository {
	return &TOTPRepository{attempts: make(map[int][]totpAttempt), now: time.Now}
}

// LogVerificationAttempt records a 2FA verification attempt for rate limiting
func (r *TOTPRepository) LogVerificationAttempt(ctx context.Context, userID int, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[userID] = append(r.attempts[userID], totpAttempt{success: success, at: r.now()})
	return nil
}

// GetRecentFailedAttempts counts failures inside the window since the last success
func (r *TOTPRepository) GetRecentFailedAttempts(ctx context.Context, userID int, window time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-window)
	count := 0
	for _, a := range r.attempts[userID] {
		switch {
		case a.at.Before(cutoff):
		case a.success:
			count = 0
		default:
			count++
		}
	}
	return count, nil
}

// CleanupOldAttempts drops attempts older than 24 hours
func (r *TOTPRepository) CleanupOldAttempts(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-24 * time.Hour)
	for userID, list := range r.attempts {
		kept := list[:0]
		for _, a := range list {
			if !a.at.Before(cutoff) {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(r.attempts, userID)
		} else {
			r.attempts[userID] = kept
		}
	}
	return nil
}
