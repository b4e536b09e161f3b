package domain

import (
	"time"

	"github.com/diagnosis/taskmanager/internal/utils"
)

const MinPasswordLength = 6

type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Phone         string    `json:"phone,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	PhoneVerified bool      `json:"phoneVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type UserInfo struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	PhoneVerified bool      `json:"phoneVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		EmailVerified: u.EmailVerified,
		PhoneVerified: u.PhoneVerified,
		CreatedAt:     u.CreatedAt,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	ResetCode   string `json:"resetCode"`
	NewPassword string `json:"newPassword"`
}

// AuthResult is what register and login hand back to the client.
type AuthResult struct {
	Token string
	User  *User
}

func (r *RegisterRequest) Normalize() {
	r.Name = utils.NormalizeString(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	r.Phone = utils.NormalizePhone(r.Phone)
}

func (r *RegisterRequest) Validate() error {
	if r.Name == "" || r.Email == "" || r.Password == "" {
		return Errorf(ErrValidation, "Please provide name, email, and password")
	}
	if !utils.IsValidEmail(r.Email) {
		return Errorf(ErrValidation, "Please provide a valid email")
	}
	if len(r.Password) < MinPasswordLength {
		return Errorf(ErrValidation, "Password must be at least %d characters", MinPasswordLength)
	}
	if r.Phone != "" && !utils.IsValidPhone(r.Phone) {
		return Errorf(ErrValidation, "Please provide a valid phone number")
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return Errorf(ErrValidation, "Please provide email and password")
	}
	return nil
}

func (r *ResetPasswordRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.ResetCode = utils.NormalizeString(r.ResetCode)
}

func (r *ResetPasswordRequest) Validate() error {
	if r.Email == "" || r.ResetCode == "" || r.NewPassword == "" {
		return Errorf(ErrValidation, "Please provide email, reset code, and new password")
	}
	if len(r.NewPassword) < MinPasswordLength {
		return Errorf(ErrValidation, "Password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
