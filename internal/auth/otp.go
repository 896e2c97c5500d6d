package auth

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"regexp"
	"strings"
	"time"

	"btw-buddy/internal/models"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "BTW Buddy"

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// NormalizeOTP strips the spaces authenticator apps show in the middle of a code
func NormalizeOTP(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), " ", "")
}

// ValidOTPFormat reports whether code looks like a 6-digit one-time code
func ValidOTPFormat(code string) bool {
	return otpPattern.MatchString(NormalizeOTP(code))
}

// GenerateOTP computes the current code for a base32 TOTP secret, so headless
// users can log in without an authenticator app.
func GenerateOTP(secret string, at time.Time) (string, error) {
	return totp.GenerateCode(strings.ToUpper(strings.TrimSpace(secret)), at)
}

// ValidateOTP checks a code against a secret at the given time
func ValidateOTP(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(NormalizeOTP(code), secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// GenerateTOTPSetup creates a new TOTP secret and QR code for an account
func GenerateTOTPSetup(accountName string) (*models.TOTPSetupResponse, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: accountName,
	}, nil
}
