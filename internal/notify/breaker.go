package notify

import (
	"context"
	"time"

	"github.com/diagnosis/taskmanager/pkg/logger"
	"github.com/sony/gobreaker"
)

const breakerTripAfter = 5

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

type breakerMailer struct {
	next Mailer
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker stops calling next for a while after repeated failures.
// While open, Send returns gobreaker.ErrOpenState.
func WithBreaker(next Mailer) Mailer {
	return &breakerMailer{next: next, cb: newBreaker("email-" + next.Name())}
}

func (b *breakerMailer) Name() string { return b.next.Name() }

func (b *breakerMailer) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, msg)
	})
	return err
}

type breakerSMS struct {
	next SMSSender
	cb   *gobreaker.CircuitBreaker
}

func WithSMSBreaker(next SMSSender) SMSSender {
	return &breakerSMS{next: next, cb: newBreaker("sms-" + next.Name())}
}

func (b *breakerSMS) Name() string { return b.next.Name() }

func (b *breakerSMS) SendSMS(ctx context.Context, to, body string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.SendSMS(ctx, to, body)
	})
	return err
}
