package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/internal/repository"
	"github.com/diagnosis/taskmanager/pkg/events"
	"github.com/diagnosis/taskmanager/pkg/logger"
)

const (
	otpCodeMin   = 100000
	otpCodeRange = 900000
)

type OTPService interface {
	// Issue stores a fresh code for (email, purpose), replacing any
	// outstanding one, and delivers it.
	Issue(ctx context.Context, email, phone string, purpose domain.Purpose) (*domain.OTP, error)
	// Verify consumes a matching code. A code verifies at most once.
	Verify(ctx context.Context, email, phone, code string, purpose domain.Purpose) (*domain.OTP, error)
	SendRegistration(ctx context.Context, req *domain.SendOTPRequest) (*domain.OTP, error)
	SendLogin(ctx context.Context, req *domain.SendOTPRequest) (*domain.OTP, error)
	VerifyRequest(ctx context.Context, req *domain.VerifyOTPRequest) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type otpService struct {
	otps     repository.OTPRepository
	users    repository.UserRepository
	notifier Notifier
	eventBus events.Publisher
	ttl      time.Duration
	now      func() time.Time
}

func NewOTPService(
	otps repository.OTPRepository,
	users repository.UserRepository,
	notifier Notifier,
	eventBus events.Publisher,
	ttl time.Duration,
	opts ...Option,
) OTPService {
	o := applyOptions(opts)
	if ttl <= 0 {
		ttl = domain.OTPTTL
	}
	return &otpService{
		otps:     otps,
		users:    users,
		notifier: notifier,
		eventBus: eventBus,
		ttl:      ttl,
		now:      o.now,
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpCodeRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", otpCodeMin+n.Int64()), nil
}

func (s *otpService) Issue(ctx context.Context, email, phone string, purpose domain.Purpose) (*domain.OTP, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	now := s.now().UTC()
	otp, err := s.otps.Upsert(ctx, &domain.OTP{
		Email:     email,
		Phone:     phone,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	if err := s.notifier.SendEmail(ctx, email, code, purpose); err != nil {
		logger.ErrorContext(ctx, "Failed to deliver OTP email", "otp_id", otp.ID, "purpose", purpose, "error", err)
		if delErr := s.otps.Delete(ctx, otp.ID); delErr != nil {
			logger.ErrorContext(ctx, "Failed to roll back undelivered OTP", "otp_id", otp.ID, "error", delErr)
		}
		return nil, domain.Internal(err, "Failed to send email")
	}

	if err := s.notifier.SendSMS(ctx, phone, code, purpose); err != nil {
		logger.WarnContext(ctx, "Failed to deliver OTP sms", "otp_id", otp.ID, "purpose", purpose, "error", err)
	}

	publish(ctx, s.eventBus, events.OTPIssued, events.OTPEvent{
		OTPID:     otp.ID,
		Email:     otp.Email,
		Purpose:   string(purpose),
		ExpiresAt: otp.ExpiresAt,
	})
	return otp, nil
}

func (s *otpService) Verify(ctx context.Context, email, phone, code string, purpose domain.Purpose) (*domain.OTP, error) {
	if !domain.IsValidOTPCode(code) {
		return nil, errInvalidOTP()
	}

	otp, err := s.otps.Consume(ctx, email, phone, code, purpose, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	if otp == nil {
		return nil, errInvalidOTP()
	}

	publish(ctx, s.eventBus, events.OTPVerified, events.OTPEvent{
		OTPID:   otp.ID,
		Email:   otp.Email,
		Purpose: string(purpose),
	})
	return otp, nil
}

func (s *otpService) SendRegistration(ctx context.Context, req *domain.SendOTPRequest) (*domain.OTP, error) {
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
	return s.Issue(ctx, req.Email, req.Phone, domain.PurposeRegistration)
}

// SendLogin falls back to the phone on file when none is given.
func (s *otpService) SendLogin(ctx context.Context, req *domain.SendOTPRequest) (*domain.OTP, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	}

	phone := req.Phone
	if phone == "" {
		phone = user.Phone
	}
	return s.Issue(ctx, req.Email, phone, domain.PurposeLogin)
}

func (s *otpService) VerifyRequest(ctx context.Context, req *domain.VerifyOTPRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	purpose, err := domain.ParsePurpose(req.Type)
	if err != nil {
		return err
	}
	_, err = s.Verify(ctx, req.Email, req.Phone, req.OTP, purpose)
	return err
}

func (s *otpService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.otps.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired otps: %w", err)
	}
	return n, nil
}

func errInvalidOTP() error {
	return domain.Errorf(domain.ErrInvalidOrExpiredCode, "Invalid or expired OTP")
}
