package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/internal/repository"
	"github.com/diagnosis/taskmanager/internal/utils"
	"github.com/diagnosis/taskmanager/pkg/auth"
	"github.com/diagnosis/taskmanager/pkg/events"
	"github.com/diagnosis/taskmanager/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResult, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResult, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error
}

type authService struct {
	users    repository.UserRepository
	otps     OTPService
	sessions *auth.SessionIssuer
	eventBus events.Publisher
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	otps OTPService,
	sessions *auth.SessionIssuer,
	eventBus events.Publisher,
	opts ...Option,
) AuthService {
	o := applyOptions(opts)
	return &authService{
		users:    users,
		otps:     otps,
		sessions: sessions,
		eventBus: eventBus,
		now:      o.now,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, errUserExists()
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Registration does not require a verified OTP; the address is trusted
	// as given.
	user, err := s.users.Create(ctx, &domain.User{
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  hash,
		Phone:         req.Phone,
		EmailVerified: true,
		PhoneVerified: req.Phone != "",
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, errUserExists()
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	publish(ctx, s.eventBus, events.UserRegistered, events.UserRegisteredEvent{
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})

	return &domain.AuthResult{Token: token, User: user}, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, errInvalidCredentials()
	}

	match, needsRehash, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !match {
		return nil, errInvalidCredentials()
	}

	if needsRehash {
		s.rehash(ctx, user.ID, req.Password)
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &domain.AuthResult{Token: token, User: user}, nil
}

// rehash moves a legacy bcrypt hash to argon2id. Failure only costs a
// future rehash attempt.
func (s *authService) rehash(ctx context.Context, userID int64, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		logger.WarnContext(ctx, "Failed to upgrade legacy password hash", "user_id", userID, "error", err)
		return
	}
	logger.InfoContext(ctx, "Upgraded legacy password hash", "user_id", userID)
}

func (s *authService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	return user, nil
}

// ForgotPassword succeeds silently for unknown addresses.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return domain.Errorf(domain.ErrValidation, "Please provide your email address")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		logger.InfoContext(ctx, "Password reset requested for unknown email")
		return nil
	}

	if _, err := s.otps.Issue(ctx, user.Email, "", domain.PurposePasswordReset); err != nil {
		var de *domain.Error
		if errors.As(err, &de) && errors.Is(err, domain.ErrInternal) {
			return domain.Internal(de.Err, "Failed to send password reset code")
		}
		return err
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	if _, err := s.otps.Verify(ctx, req.Email, "", req.ResetCode, domain.PurposePasswordReset); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return domain.Errorf(domain.ErrNotFound, "User not found")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	logger.InfoContext(ctx, "Password reset", "user_id", user.ID)
	publish(ctx, s.eventBus, events.UserPasswordReset, events.UserPasswordResetEvent{
		UserID:  user.ID,
		ResetAt: s.now().UTC(),
	})
	return nil
}

func errUserExists() error {
	return domain.Errorf(domain.ErrConflict, "User already exists with this email")
}

func errInvalidCredentials() error {
	return domain.Errorf(domain.ErrUnauthorized, "Invalid credentials")
}
