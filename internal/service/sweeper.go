package service

import (
	"context"
	"time"

	"github.com/diagnosis/taskmanager/pkg/logger"
)

const sweepTimeout = 10 * time.Second

// Sweeper deletes expired OTP records on a fixed interval.
type Sweeper struct {
	otps     OTPService
	interval time.Duration
}

func NewSweeper(otps OTPService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{otps: otps, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("OTP sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("OTP sweeper stopped")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.otps.PurgeExpired(ctx)
	if err != nil {
		logger.Error("OTP sweep failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info("Purged expired OTPs", "count", n)
	}
}
