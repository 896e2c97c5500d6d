package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"btw-buddy/internal/auth"
	"btw-buddy/internal/models"
	"btw-buddy/internal/registration"
	"btw-buddy/internal/repositories"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account suspended")
	ErrNoPending2FA       = errors.New("no pending two-factor login for this user")
	ErrInvalidRefresh     = errors.New("token is invalid or expired")
)

const (
	subjectRefresh = "refresh"
	subjectEmail   = "email"

	pending2FATTL   = 5 * time.Minute
	verificationTTL = 48 * time.Hour
)

type UserService struct {
	Repo          *repositories.UserRepository
	RefreshTokens *repositories.TokenRepository
	EmailTokens   *repositories.TokenRepository
	Issuer        *auth.Issuer
	TOTP          *TOTPService

	refreshTTL time.Duration
	rotate     bool

	mu      sync.Mutex
	pending map[int]time.Time
}

func NewUserService(repo *repositories.UserRepository, issuer *auth.Issuer, totpService *TOTPService, refreshTTL time.Duration, rotate bool) *UserService {
	return &UserService{
		Repo:          repo,
		RefreshTokens: repositories.NewTokenRepository(),
		EmailTokens:   repositories.NewTokenRepository(),
		Issuer:        issuer,
		TOTP:          totpService,
		refreshTTL:    refreshTTL,
		rotate:        rotate,
		pending:       make(map[int]time.Time),
	}
}

// Login checks credentials. Accounts with 2FA get a challenge instead of tokens.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.TOTPEnabled {
		s.mu.Lock()
		s.pending[user.ID] = time.Now().Add(pending2FATTL)
		s.mu.Unlock()

		return &models.LoginResponse{
			Requires2FA: true,
			UserID:      user.ID,
			Email:       user.Email,
			Message:     "Enter the code from your authenticator app",
		}, nil
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Tokens: tokens, User: user}, nil
}

// VerifyOTP completes a login that was answered with a 2FA challenge
func (s *UserService) VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest) (*models.TokenPair, error) {
	s.mu.Lock()
	deadline, ok := s.pending[req.UserID]
	s.mu.Unlock()
	if !ok || time.Now().After(deadline) {
		return nil, ErrNoPending2FA
	}

	if err := s.TOTP.Verify(ctx, req.UserID, req.OTPCode); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.pending, req.UserID)
	s.mu.Unlock()

	user, err := s.Repo.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

// Refresh exchanges a refresh token for a new access token. With rotation
// enabled the old refresh token is consumed and a new one returned.
func (s *UserService) Refresh(ctx context.Context, refresh string) (*models.TokenPair, error) {
	lookup := s.RefreshTokens.Lookup
	if s.rotate {
		lookup = s.RefreshTokens.Consume
	}

	userID, subject, err := lookup(ctx, refresh)
	if err != nil || subject != subjectRefresh {
		return nil, ErrInvalidRefresh
	}

	user, err := s.Repo.Get(ctx, userID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidRefresh
	}

	access, err := s.Issuer.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	pair := &models.TokenPair{Access: access}
	if s.rotate {
		pair.Refresh = s.RefreshTokens.Issue(ctx, user.ID, subjectRefresh, s.refreshTTL)
	}
	return pair, nil
}

func (s *UserService) issueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	access, err := s.Issuer.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		Access:  access,
		Refresh: s.RefreshTokens.Issue(ctx, user.ID, subjectRefresh, s.refreshTTL),
	}, nil
}

// ValidateStep1 checks the account step of the registration wizard
func (s *UserService) ValidateStep1(ctx context.Context, req *models.Step1ValidationRequest) map[string][]string {
	fields := registration.Validate(registration.Step1{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if _, bad := fields["email"]; !bad && s.Repo.EmailExists(ctx, req.Email) {
		if fields == nil {
			fields = registration.FieldErrors{}
		}
		fields["email"] = repositories.ErrDuplicateEmail.Error()
	}
	return fieldLists(fields)
}

// Register creates an account from the complete wizard payload
func (s *UserService) Register(ctx context.Context, p *models.RegistrationPayload) (*models.User, map[string][]string, error) {
	fields := registration.ValidatePayload(*p)
	if len(fields) > 0 {
		return nil, fieldLists(fields), nil
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		CompanyName:  p.CompanyName,
		KvKNumber:    p.KvKNumber,
		BTWNumber:    p.BTWNumber,
		PasswordHash: hash,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, map[string][]string{"email": {err.Error()}}, nil
		}
		return nil, nil, err
	}

	log.Printf("[Registration] New account %d for %s", user.ID, user.Email)
	return user, nil, nil
}

// SendVerificationEmail issues a verification token. Unknown addresses are
// accepted silently so the endpoint does not reveal which accounts exist.
func (s *UserService) SendVerificationEmail(ctx context.Context, email string) (string, error) {
	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil
	}
	if user.EmailVerified {
		return "", nil
	}

	token := s.EmailTokens.Issue(ctx, user.ID, subjectEmail, verificationTTL)
	log.Printf("[Mail] Verification token for %s: %s", user.Email, token)
	return token, nil
}

func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	userID, subject, err := s.EmailTokens.Consume(ctx, token)
	if err != nil || subject != subjectEmail {
		return repositories.ErrTokenInvalid
	}
	return s.Repo.MarkEmailVerified(ctx, userID)
}

func fieldLists(fields registration.FieldErrors) map[string][]string {
	out := make(map[string][]string, len(fields))
	for field, msg := range fields {
		out[field] = []string{msg}
	}
	return out
}
