package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/taskmanager/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("task-manager-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// NopPublisher is used when no NATS URL is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, _ interface{}) error {
	logger.DebugContext(ctx, "Event publishing disabled", "subject", subject)
	return nil
}

func (NopPublisher) Close() error { return nil }

const (
	UserRegistered    = "user.registered"
	UserPasswordReset = "user.password_reset"
	OTPIssued         = "otp.issued"
	OTPVerified       = "otp.verified"
	TaskCreated       = "task.created"
	TaskUpdated       = "task.updated"
	TaskDeleted       = "task.deleted"
)

type UserRegisteredEvent struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type UserPasswordResetEvent struct {
	UserID  int64     `json:"user_id"`
	ResetAt time.Time `json:"reset_at"`
}

// OTPEvent never carries the code itself.
type OTPEvent struct {
	OTPID     int64     `json:"otp_id"`
	Email     string    `json:"email"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type TaskEvent struct {
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status,omitempty"`
	Priority  string    `json:"priority,omitempty"`
	Changes   []string  `json:"changes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
