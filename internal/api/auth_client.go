package api

import (
	"context"
	"fmt"
	"strconv"

	"btw-buddy/internal/config"
	"btw-buddy/internal/metrics"
	"btw-buddy/internal/models"

	"github.com/go-resty/resty/v2"
)

// AuthClient calls the public auth and registration endpoints. It carries no
// bearer token and never refreshes, so a 401 here is a plain failure.
type AuthClient struct {
	http *resty.Client
}

func NewAuthClient(cfg *config.Config) *AuthClient {
	return &AuthClient{http: newResty(cfg)}
}

func (a *AuthClient) post(ctx context.Context, path string, body, out any) error {
	r := a.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if out != nil {
		r.SetResult(out)
	}

	resp, err := r.Post(path)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(resty.MethodPost, path, "error").Inc()
		return fmt.Errorf("POST %s: %w", path, err)
	}
	metrics.APIRequestsTotal.WithLabelValues(resty.MethodPost, path, strconv.Itoa(resp.StatusCode())).Inc()
	metrics.APIRequestDuration.WithLabelValues(resty.MethodPost, path).Observe(resp.Time().Seconds())

	if resp.IsError() {
		return parseError(resp)
	}
	return nil
}

// Login posts credentials to /auth/login/
func (a *AuthClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := a.post(ctx, "/auth/login/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP completes a two-factor login
func (a *AuthClient) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.TokenPair, error) {
	var out models.TokenPair
	if err := a.post(ctx, "/auth/verify-otp/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a new access token. Refresh is
// set in the result only when the server rotates refresh tokens.
func (a *AuthClient) RefreshToken(ctx context.Context, refresh string) (*models.TokenPair, error) {
	var out models.TokenPair
	if err := a.post(ctx, "/token/refresh/", models.RefreshRequest{Refresh: refresh}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateStep1 asks the server to check the first registration step. Field
// problems come back as an *Error with Fields set.
func (a *AuthClient) ValidateStep1(ctx context.Context, req models.Step1ValidationRequest) error {
	return a.post(ctx, "/auth/register/step1/validate/", req, nil)
}

func (a *AuthClient) CompleteRegistration(ctx context.Context, payload models.RegistrationPayload) (*models.MessageResponse, error) {
	var out models.MessageResponse
	if err := a.post(ctx, "/auth/register/complete/", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AuthClient) SendVerificationEmail(ctx context.Context, email string) error {
	return a.post(ctx, "/auth/send-verification-email/", models.SendVerificationEmailRequest{Email: email}, nil)
}

func (a *AuthClient) VerifyEmail(ctx context.Context, token string) error {
	return a.post(ctx, "/auth/verify-email/", models.VerifyEmailRequest{Token: token}, nil)
}
