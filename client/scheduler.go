package client

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultRefreshInterval is how often the session is renewed proactively.
const DefaultRefreshInterval = 15 * time.Minute

// RenewalScheduler renews the session on a fixed interval.
type RenewalScheduler struct {
	renewer  Renewer
	interval time.Duration
	log      *slog.Logger
}

func NewRenewalScheduler(r Renewer, interval time.Duration, log *slog.Logger) *RenewalScheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &RenewalScheduler{renewer: r, interval: interval, log: log}
}

// Run blocks, renewing once per interval, until ctx is done.
func (s *RenewalScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.renewer.Renew(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return ctx.Err()
				}
				s.log.Warn("scheduled renewal failed", "error", err)
			}
		}
	}
}
