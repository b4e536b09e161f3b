// Package notify delivers OTP codes by email and SMS. Each channel has a
// real transport and a development fallback that only logs.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/pkg/config"
	"github.com/diagnosis/taskmanager/pkg/logger"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
	Name() string
}

type Dispatcher struct {
	mailer Mailer
	sms    SMSSender
	ttl    time.Duration
}

func NewDispatcher(mailer Mailer, sms SMSSender, ttl time.Duration) *Dispatcher {
	return &Dispatcher{mailer: mailer, sms: sms, ttl: ttl}
}

// NewFromConfig picks MailerSend, then SMTP, then the dev mailer for email,
// and Twilio or the dev sender for SMS. Remote transports sit behind a
// circuit breaker.
func NewFromConfig(email config.EmailConfig, sms config.SMSConfig, ttl time.Duration) *Dispatcher {
	var mailer Mailer = NewDevMailer()
	switch {
	case email.MailerSendEnabled():
		mailer = WithBreaker(NewMailerSend(email.MailerSendKey, email.FromName, email.From))
	case email.SMTPEnabled():
		mailer = WithBreaker(NewSMTPMailer(email.SMTPHost, email.SMTPPort, email.From, email.SMTPUser, email.SMTPPass, email.SMTPUseTLS))
	}

	var sender SMSSender = NewDevSMS()
	if sms.TwilioEnabled() {
		sender = WithSMSBreaker(NewTwilioClient(sms.TwilioAccountSID, sms.TwilioAuthToken, sms.TwilioFromNumber, sms.TwilioBaseURL))
	}

	logger.Info("Notification transports configured", "email", mailer.Name(), "sms", sender.Name())
	return NewDispatcher(mailer, sender, ttl)
}

func (d *Dispatcher) SendEmail(ctx context.Context, address, code string, purpose domain.Purpose) error {
	msg := renderEmail(address, code, purpose, d.ttl)
	if err := d.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email via %s: %w", purpose, d.mailer.Name(), err)
	}
	logger.InfoContext(ctx, "OTP email sent", "purpose", purpose, "transport", d.mailer.Name())
	return nil
}

// SendSMS is a no-op for an empty phone number.
func (d *Dispatcher) SendSMS(ctx context.Context, phone, code string, purpose domain.Purpose) error {
	if phone == "" {
		return nil
	}
	if err := d.sms.SendSMS(ctx, phone, renderSMS(code, purpose, d.ttl)); err != nil {
		return fmt.Errorf("send %s sms via %s: %w", purpose, d.sms.Name(), err)
	}
	logger.InfoContext(ctx, "OTP sms sent", "purpose", purpose, "transport", d.sms.Name())
	return nil
}
