package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"btw-buddy/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("a user with this email already exists")
)

// UserRepository keeps accounts in memory for the development server
type UserRepository struct {
	mu      sync.RWMutex
	users   map[int]*models.User
	byEmail map[string]int
	nextID  int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[int]*models.User),
		byEmail: make(map[string]int),
		nextID:  1,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(u.Email)
	if _, exists := r.byEmail[email]; exists {
		return ErrDuplicateEmail
	}

	u.ID = r.nextID
	u.Email = email
	u.IsActive = true
	u.CreatedAt = time.Now()
	r.nextID++

	stored := *u
	r.users[u.ID] = &stored
	r.byEmail[email] = u.ID
	return nil
}

// Get returns a copy of the user so callers cannot mutate stored state
func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	user := *u
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[normalizeEmail(email)]
	return ok
}

func (r *UserRepository) update(id int, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	return nil
}

// SetTOTPSecret stores the TOTP secret for a user (during setup, before verification)
func (r *UserRepository) SetTOTPSecret(ctx context.Context, userID int, secret string) error {
	return r.update(userID, func(u *models.User) { u.TOTPSecret = secret })
}

// EnableTOTP turns on two-factor login once the first code was verified
func (r *UserRepository) EnableTOTP(ctx context.Context, userID int) error {
	return r.update(userID, func(u *models.User) { u.TOTPEnabled = true })
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, userID int) error {
	return r.update(userID, func(u *models.User) { u.EmailVerified = true })
}

// ToggleActiveStatus sets the is_active status of a user
func (r *UserRepository) ToggleActiveStatus(ctx context.Context, userID int, isActive bool) error {
	return r.update(userID, func(u *models.User) { u.IsActive = isActive })
}

func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
