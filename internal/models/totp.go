package models

// VerifyOTPRequest for login 2FA verification (step 2)
type VerifyOTPRequest struct {
	UserID  int    `json:"user_id"`
	OTPCode string `json:"otp_code"` // 6-digit TOTP code
}

// TOTPSetupResponse returned when initiating 2FA setup
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`       // Base32 secret for manual entry
	QRCode      string `json:"qr_code"`      // Base64 encoded PNG QR code
	Issuer      string `json:"issuer"`       // "BTW Buddy"
	AccountName string `json:"account_name"` // User's email
}

// TOTPEnableRequest to verify and enable 2FA
type TOTPEnableRequest struct {
	Code string `json:"code"`
}
