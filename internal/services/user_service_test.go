package services

import (
	"context"
	"testing"
	"time"

	"btw-buddy/internal/auth"
	"btw-buddy/internal/config"
	"btw-buddy/internal/models"
	"btw-buddy/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, rotate bool) *UserService {
	t.Helper()
	cfg := &config.Config{}
	cfg.DevServer.JWTSecret = "test-secret"
	cfg.DevServer.Issuer = "btw-buddy-test"
	cfg.DevServer.AccessTTLMinutes = 5

	repo := repositories.NewUserRepository()
	return NewUserService(repo, auth.NewIssuer(cfg), NewTOTPService(repo, repositories.NewTOTPRepository()), time.Hour, rotate)
}

func registrationPayload() *models.RegistrationPayload {
	return &models.RegistrationPayload{
		Email:       "jan@example.nl",
		Password:    "geheim123",
		FirstName:   "Jan",
		LastName:    "de Vries",
		CompanyName: "De Vries Advies",
		KvKNumber:   "12345678",
		IBAN:        "NL91ABNA0417164300",
		LegalForm:   "eenmanszaak",
		Street:      "Keizersgracht",
		HouseNumber: "12a",
		PostalCode:  "1015 CJ",
		City:        "Amsterdam",
		VATPeriod:   "quarter",
		AcceptTerms: true,
	}
}

func register(t *testing.T, s *UserService) *models.User {
	t.Helper()
	user, fields, err := s.Register(context.Background(), registrationPayload())
	require.NoError(t, err)
	require.Empty(t, fields)
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	s := newUserService(t, false)
	ctx := context.Background()
	user := register(t, s)
	assert.NotEqual(t, "geheim123", user.PasswordHash)

	resp, err := s.Login(ctx, &models.LoginRequest{Email: "JAN@example.nl", Password: "geheim123"})
	require.NoError(t, err)
	assert.False(t, resp.Requires2FA)
	require.NotNil(t, resp.Tokens)
	assert.NotEmpty(t, resp.Tokens.Refresh)

	claims, err := s.Issuer.ValidateToken(resp.Tokens.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = s.Login(ctx, &models.LoginRequest{Email: "jan@example.nl", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, &models.LoginRequest{Email: "nobody@example.nl", Password: "geheim123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveAccount(t *testing.T) {
	s := newUserService(t, false)
	user := register(t, s)
	require.NoError(t, s.Repo.ToggleActiveStatus(context.Background(), user.ID, false))

	_, err := s.Login(context.Background(), &models.LoginRequest{Email: "jan@example.nl", Password: "geheim123"})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestRegister_Duplicate(t *testing.T) {
	s := newUserService(t, false)
	register(t, s)

	user, fields, err := s.Register(context.Background(), registrationPayload())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Contains(t, fields, "email")
}

func TestRegister_Invalid(t *testing.T) {
	s := newUserService(t, false)
	p := registrationPayload()
	p.KvKNumber = "123"
	p.AcceptTerms = false

	_, fields, err := s.Register(context.Background(), p)
	require.NoError(t, err)
	assert.Contains(t, fields, "kvk_number")
	assert.Equal(t, []string{"You must accept the terms."}, fields["accept_terms"])
}

func TestValidateStep1(t *testing.T) {
	s := newUserService(t, false)
	ctx := context.Background()
	req := &models.Step1ValidationRequest{Email: "jan@example.nl", Password: "geheim123", FirstName: "Jan", LastName: "de Vries"}

	assert.Empty(t, s.ValidateStep1(ctx, req))

	register(t, s)
	fields := s.ValidateStep1(ctx, req)
	assert.Equal(t, []string{repositories.ErrDuplicateEmail.Error()}, fields["email"])

	fields = s.ValidateStep1(ctx, &models.Step1ValidationRequest{Email: "nope", Password: "x"})
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "first_name")
}

func TestTwoFactorLogin(t *testing.T) {
	s := newUserService(t, false)
	ctx := context.Background()
	user := register(t, s)

	setup, err := s.TOTP.GenerateSetup(ctx, user)
	require.NoError(t, err)
	code, err := auth.GenerateOTP(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.TOTP.VerifyAndEnable(ctx, user.ID, code))

	// OTP without a password step first is refused
	_, err = s.VerifyOTP(ctx, &models.VerifyOTPRequest{UserID: user.ID, OTPCode: code})
	assert.ErrorIs(t, err, ErrNoPending2FA)

	resp, err := s.Login(ctx, &models.LoginRequest{Email: "jan@example.nl", Password: "geheim123"})
	require.NoError(t, err)
	assert.True(t, resp.Requires2FA)
	assert.Nil(t, resp.Tokens)
	assert.Equal(t, user.ID, resp.UserID)

	_, err = s.VerifyOTP(ctx, &models.VerifyOTPRequest{UserID: user.ID, OTPCode: "000000x"})
	assert.ErrorIs(t, err, ErrInvalidTOTPCode)

	done, err := s.VerifyOTP(ctx, &models.VerifyOTPRequest{UserID: user.ID, OTPCode: code[:3] + " " + code[3:]})
	require.NoError(t, err)
	assert.NotEmpty(t, done.Access)
	assert.NotEmpty(t, done.Refresh)

	// The challenge is single use
	_, err = s.VerifyOTP(ctx, &models.VerifyOTPRequest{UserID: user.ID, OTPCode: code})
	assert.ErrorIs(t, err, ErrNoPending2FA)
}

func TestTOTP_RateLimit(t *testing.T) {
	s := newUserService(t, false)
	ctx := context.Background()
	user := register(t, s)
	_, err := s.TOTP.GenerateSetup(ctx, user)
	require.NoError(t, err)

	for i := 0; i < maxFailedAttempts; i++ {
		assert.ErrorIs(t, s.TOTP.VerifyAndEnable(ctx, user.ID, "abc"), ErrInvalidTOTPCode)
	}
	assert.ErrorIs(t, s.TOTP.VerifyAndEnable(ctx, user.ID, "abc"), ErrTooManyAttempts)
}

func TestTOTP_SetupTwice(t *testing.T) {
	s := newUserService(t, false)
	user := register(t, s)
	user.TOTPEnabled = true

	_, err := s.TOTP.GenerateSetup(context.Background(), user)
	assert.ErrorIs(t, err, ErrTOTPAlreadyEnabled)
}

func TestRefresh(t *testing.T) {
	t.Run("without rotation", func(t *testing.T) {
		s := newUserService(t, false)
		ctx := context.Background()
		register(t, s)
		resp, err := s.Login(ctx, &models.LoginRequest{Email: "jan@example.nl", Password: "geheim123"})
		require.NoError(t, err)

		pair, err := s.Refresh(ctx, resp.Tokens.Refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Access)
		assert.Empty(t, pair.Refresh)

		_, err = s.Refresh(ctx, resp.Tokens.Refresh)
		assert.NoError(t, err)
	})

	t.Run("with rotation", func(t *testing.T) {
		s := newUserService(t, true)
		ctx := context.Background()
		register(t, s)
		resp, err := s.Login(ctx, &models.LoginRequest{Email: "jan@example.nl", Password: "geheim123"})
		require.NoError(t, err)

		pair, err := s.Refresh(ctx, resp.Tokens.Refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Refresh)
		assert.NotEqual(t, resp.Tokens.Refresh, pair.Refresh)

		_, err = s.Refresh(ctx, resp.Tokens.Refresh)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("unknown token", func(t *testing.T) {
		s := newUserService(t, false)
		_, err := s.Refresh(context.Background(), "bogus")
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestEmailVerification(t *testing.T) {
	s := newUserService(t, false)
	ctx := context.Background()
	user := register(t, s)

	token, err := s.SendVerificationEmail(ctx, "unknown@example.nl")
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = s.SendVerificationEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, s.VerifyEmail(ctx, token))
	stored, err := s.Repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)

	assert.ErrorIs(t, s.VerifyEmail(ctx, token), repositories.ErrTokenInvalid)
}
