// Package service holds the business rules: credentials, OTP lifecycle and
// owner-scoped tasks. Errors returned to handlers are *domain.Error values.
package service

import (
	"context"
	"time"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/pkg/events"
	"github.com/diagnosis/taskmanager/pkg/logger"
)

// Notifier delivers OTP codes. *notify.Dispatcher satisfies it.
type Notifier interface {
	SendEmail(ctx context.Context, address, code string, purpose domain.Purpose) error
	SendSMS(ctx context.Context, phone, code string, purpose domain.Purpose) error
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now. Tests use it to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish never fails the caller; events are best effort.
func publish(ctx context.Context, bus events.Publisher, subject string, data interface{}) {
	if err := bus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
