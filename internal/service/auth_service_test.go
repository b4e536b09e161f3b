package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/pkg/events"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.auth.Register(ctx, &domain.RegisterRequest{
		Name:     "  Ada  ",
		Email:    " A@X.com ",
		Password: "secret1",
		Phone:    "+1 555 123 4567",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", res.User.Name)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.True(t, res.User.EmailVerified)
	assert.True(t, res.User.PhoneVerified)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)

	id, err := h.sessions.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)
	assert.Contains(t, h.events.published(), events.UserRegistered)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com")

	_, err := h.auth.Register(context.Background(), &domain.RegisterRequest{
		Name:     "Other",
		Email:    "A@x.com",
		Password: "secret2",
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "User already exists with this email", domain.Message(err))
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		req  domain.RegisterRequest
		msg  string
	}{
		{"missing name", domain.RegisterRequest{Email: "a@x.com", Password: "secret1"}, "Please provide name, email, and password"},
		{"bad email", domain.RegisterRequest{Name: "A", Email: "nope", Password: "secret1"}, "Please provide a valid email"},
		{"short password", domain.RegisterRequest{Name: "A", Email: "a@x.com", Password: "12345"}, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := h.auth.Register(context.Background(), &req)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tt.msg, domain.Message(err))
		})
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "a@x.com")
	ctx := context.Background()

	res, err := h.auth.Login(ctx, &domain.LoginRequest{Email: "A@X.COM", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)

	_, err = h.auth.Login(ctx, &domain.LoginRequest{Email: "a@x.com", Password: "wrong!!"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	wrongPassword := domain.Message(err)

	_, err = h.auth.Login(ctx, &domain.LoginRequest{Email: "b@x.com", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, wrongPassword, domain.Message(err))
	assert.Equal(t, "Invalid credentials", wrongPassword)

	_, err = h.auth.Login(ctx, &domain.LoginRequest{Email: "a@x.com"})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Please provide email and password", domain.Message(err))
}

func TestLoginUpgradesLegacyBcryptHash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := h.store.Users().Create(ctx, &domain.User{Name: "Old", Email: "old@x.com", PasswordHash: string(legacy)})
	require.NoError(t, err)

	_, err = h.auth.Login(ctx, &domain.LoginRequest{Email: "old@x.com", Password: "secret1"})
	require.NoError(t, err)

	stored, err := h.store.Users().FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, "$argon2id$")

	_, err = h.auth.Login(ctx, &domain.LoginRequest{Email: "old@x.com", Password: "secret1"})
	require.NoError(t, err)
}

func TestGetUserNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.GetUser(context.Background(), 999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestForgotPasswordUnknownEmailSendsNothing(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.auth.ForgotPassword(context.Background(), "ghost@x.com"))
	assert.Empty(t, h.notifier.emails)
	assert.Equal(t, 0, h.store.OTPCount())
}

func TestForgotPasswordRequiresEmail(t *testing.T) {
	h := newHarness(t)

	err := h.auth.ForgotPassword(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com")
	h.notifier.emailErr = errDeliver

	err := h.auth.ForgotPassword(context.Background(), "a@x.com")
	require.ErrorIs(t, err, domain.ErrInternal)
	assert.ErrorIs(t, err, errDeliver)
	assert.Equal(t, "Failed to send password reset code", domain.Message(err))
	assert.Equal(t, 0, h.store.OTPCount())
}

func TestResetPasswordFlow(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@x.com")
	ctx := context.Background()

	require.NoError(t, h.auth.ForgotPassword(ctx, "a@x.com"))
	sent := h.notifier.lastEmail(t)
	assert.Equal(t, domain.PurposePasswordReset, sent.purpose)

	err := h.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Email: "a@x.com", ResetCode: sent.code, NewPassword: "newpass1"})
	require.NoError(t, err)
	assert.Contains(t, h.events.published(), events.UserPasswordReset)

	_, err = h.auth.Login(ctx, &domain.LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.auth.Login(ctx, &domain.LoginRequest{Email: "a@x.com", Password: "newpass1"})
	require.NoError(t, err)

	err = h.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Email: "a@x.com", ResetCode: sent.code, NewPassword: "another1"})
	require.ErrorIs(t, err, domain.ErrInvalidOrExpiredCode)
}

func TestResetPasswordValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Email: "a@x.com", ResetCode: "123456"})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Please provide email, reset code, and new password", domain.Message(err))

	err = h.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Email: "a@x.com", ResetCode: "123456", NewPassword: "abc"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestResetPasswordUnknownUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	otp, err := h.otps.Issue(ctx, "ghost@x.com", "", domain.PurposePasswordReset)
	require.NoError(t, err)
	code := h.notifier.lastEmail(t).code
	require.NotZero(t, otp.ID)

	err = h.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Email: "ghost@x.com", ResetCode: code, NewPassword: "newpass1"})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "User not found", domain.Message(err))
}
