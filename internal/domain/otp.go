package domain

import (
	"regexp"
	"time"

	"github.com/diagnosis/taskmanager/internal/utils"
)

type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposeLogin         Purpose = "login"
	PurposePasswordReset Purpose = "password-reset"
)

const (
	OTPLength = 6
	OTPTTL    = 10 * time.Minute
)

var otpCodeRegex = regexp.MustCompile(`^\d{6}$`)

func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(s); p {
	case PurposeRegistration, PurposeLogin, PurposePasswordReset:
		return p, nil
	}
	return "", Errorf(ErrValidation, "Invalid OTP type")
}

// Label is the human word used in message copy ("registration code").
func (p Purpose) Label() string {
	if p == PurposePasswordReset {
		return "password reset"
	}
	return string(p)
}

func IsValidOTPCode(code string) bool {
	return otpCodeRegex.MatchString(code)
}

type OTP struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Code      string    `json:"-"`
	Purpose   Purpose   `json:"purpose"`
	ExpiresAt time.Time `json:"expiresAt"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

type SendOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	OTP   string `json:"otp"`
	Type  string `json:"type"`
}

func (r *SendOTPRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.Phone = utils.NormalizePhone(r.Phone)
}

func (r *SendOTPRequest) Validate() error {
	if r.Email == "" {
		return Errorf(ErrValidation, "Email is required")
	}
	if !utils.IsValidEmail(r.Email) {
		return Errorf(ErrValidation, "Please provide a valid email")
	}
	if r.Phone != "" && !utils.IsValidPhone(r.Phone) {
		return Errorf(ErrValidation, "Please provide a valid phone number")
	}
	return nil
}

func (r *VerifyOTPRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.Phone = utils.NormalizePhone(r.Phone)
	r.OTP = utils.NormalizeString(r.OTP)
	r.Type = utils.NormalizeString(r.Type)
}

func (r *VerifyOTPRequest) Validate() error {
	if r.Email == "" || r.OTP == "" || r.Type == "" {
		return Errorf(ErrValidation, "Email, OTP, and type are required")
	}
	return nil
}
