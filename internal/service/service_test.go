package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/internal/repository/memory"
	"github.com/diagnosis/taskmanager/internal/service"
	"github.com/diagnosis/taskmanager/pkg/auth"
)

type sentCode struct {
	to      string
	code    string
	purpose domain.Purpose
}

type fakeNotifier struct {
	mu       sync.Mutex
	emails   []sentCode
	sms      []sentCode
	emailErr error
	smsErr   error
}

func (f *fakeNotifier) SendEmail(_ context.Context, address, code string, purpose domain.Purpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailErr != nil {
		return f.emailErr
	}
	f.emails = append(f.emails, sentCode{address, code, purpose})
	return nil
}

func (f *fakeNotifier) SendSMS(_ context.Context, phone, code string, purpose domain.Purpose) error {
	if phone == "" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sms = append(f.sms, sentCode{phone, code, purpose})
	return f.smsErr
}

func (f *fakeNotifier) lastEmail(t *testing.T) sentCode {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.emails, "no email sent")
	return f.emails[len(f.emails)-1]
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store    *memory.Store
	notifier *fakeNotifier
	events   *fakePublisher
	clock    *clock
	sessions *auth.SessionIssuer
	auth     service.AuthService
	otps     service.OTPService
	tasks    service.TaskService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewStore(),
		notifier: &fakeNotifier{},
		events:   &fakePublisher{},
		clock:    newClock(),
	}
	h.store.SetClock(h.clock.Now)
	h.sessions = auth.NewSessionIssuer("test-secret", 30*24*time.Hour)

	opt := service.WithClock(h.clock.Now)
	h.otps = service.NewOTPService(h.store.OTPs(), h.store.Users(), h.notifier, h.events, 10*time.Minute, opt)
	h.auth = service.NewAuthService(h.store.Users(), h.otps, h.sessions, h.events, opt)
	h.tasks = service.NewTaskService(h.store.Tasks(), h.events, opt)
	return h
}

func (h *harness) register(t *testing.T, email string) *domain.User {
	t.Helper()
	res, err := h.auth.Register(context.Background(), &domain.RegisterRequest{
		Name:     "User " + email,
		Email:    email,
		Password: "secret1",
	})
	require.NoError(t, err)
	return res.User
}

var errDeliver = errors.New("provider unavailable")
