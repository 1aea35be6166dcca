package models

import "time"

// OTPStatus tracks what happened to a code after issuance. Expiry is not a
// stored status: it is computed from ExpiresAt whenever a row is read.
// Consumption (a successful password change) deletes the row outright.
type OTPStatus string

const (
	// OTPStatusActive means the code was issued and nothing has touched it.
	OTPStatusActive OTPStatus = "active"
	// OTPStatusVerified means the owner proved knowledge of the code and may
	// use it once to change their password.
	OTPStatusVerified OTPStatus = "verified"
	// OTPStatusSuperseded means a newer code was issued for the same user and
	// purpose before this one was verified.
	OTPStatusSuperseded OTPStatus = "superseded"
)

const OTPPurposePasswordReset = "password_reset"

type OTP struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	Purpose   string    `json:"purpose"`
	Status    OTPStatus `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code is past its validity window at the given
// instant. It applies to every status: a verified code that went stale can no
// longer be used to change the password.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

type VerifyOTPRequest struct {
	OTPCode string `json:"otp_code" validate:"required"`
}

type ChangePasswordRequest struct {
	OTPCode     string `json:"otp_code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type SendOTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expires_in"`
	OTPCode   string `json:"otp_code,omitempty"`
	TestMode  bool   `json:"test_mode,omitempty"`
}

type VerifyOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OTPID   string `json:"otp_id"`
}

type ChangePasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
