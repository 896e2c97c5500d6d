package services

import (
	"context"
	"log"
	"time"

	"btw-buddy/internal/auth"
	"btw-buddy/internal/models"
	"btw-buddy/internal/repositories"
)

const (
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
)

type TOTPService struct {
	userRepo *repositories.UserRepository
	totpRepo *repositories.TOTPRepository
	now      func() time.Time
}

func NewTOTPService(userRepo *repositories.UserRepository, totpRepo *repositories.TOTPRepository) *TOTPService {
	return &TOTPService{
		userRepo: userRepo,
		totpRepo: totpRepo,
		now:      time.Now,
	}
}

// GenerateSetup creates a new TOTP secret and QR code for a user
func (s *TOTPService) GenerateSetup(ctx context.Context, user *models.User) (*models.TOTPSetupResponse, error) {
	if user.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	setup, err := auth.GenerateTOTPSetup(user.Email)
	if err != nil {
		return nil, err
	}

	// Store the secret (not yet enabled)
	if err := s.userRepo.SetTOTPSecret(ctx, user.ID, setup.Secret); err != nil {
		return nil, err
	}
	return setup, nil
}

// VerifyAndEnable verifies a TOTP code and enables 2FA for the user
func (s *TOTPService) VerifyAndEnable(ctx context.Context, userID int, code string) error {
	if s.isRateLimited(ctx, userID) {
		return ErrTooManyAttempts
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return ErrNoTOTPSecret
	}

	if !auth.ValidateOTP(code, user.TOTPSecret, s.now()) {
		s.logAttempt(ctx, userID, false)
		return ErrInvalidTOTPCode
	}
	s.logAttempt(ctx, userID, true)

	return s.userRepo.EnableTOTP(ctx, userID)
}

// Verify validates a TOTP code during login
func (s *TOTPService) Verify(ctx context.Context, userID int, code string) error {
	if s.isRateLimited(ctx, userID) {
		return ErrTooManyAttempts
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}

	if !auth.ValidOTPFormat(code) || !auth.ValidateOTP(code, user.TOTPSecret, s.now()) {
		s.logAttempt(ctx, userID, false)
		return ErrInvalidTOTPCode
	}
	s.logAttempt(ctx, userID, true)
	return nil
}

// isRateLimited checks if the user has exceeded the failed attempt limit
func (s *TOTPService) isRateLimited(ctx context.Context, userID int) bool {
	count, err := s.totpRepo.GetRecentFailedAttempts(ctx, userID, rateLimitWindow)
	if err != nil {
		log.Printf("[Auth] Could not read 2FA attempts for user %d: %v", userID, err)
		return false
	}
	return count >= maxFailedAttempts
}

func (s *TOTPService) logAttempt(ctx context.Context, userID int, success bool) {
	if err := s.totpRepo.LogVerificationAttempt(ctx, userID, success); err != nil {
		log.Printf("[Auth] Could not log 2FA attempt for user %d: %v", userID, err)
	}
	if success {
		s.totpRepo.CleanupOldAttempts(ctx)
	}
}

// Custom errors
var (
	ErrTooManyAttempts    = &TOTPError{Message: "too many failed attempts, please try again later"}
	ErrNoTOTPSecret       = &TOTPError{Message: "2FA setup not initiated"}
	ErrInvalidTOTPCode    = &TOTPError{Message: "invalid verification code"}
	ErrTOTPNotEnabled     = &TOTPError{Message: "2FA is not enabled"}
	ErrTOTPAlreadyEnabled = &TOTPError{Message: "2FA is already enabled"}
)

type TOTPError struct {
	Message string
}

func (e *TOTPError) Error() string {
	return e.Message
}
