// Package sweeper periodically closes clock sessions that outlived the stale cap.
package sweeper

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"timeledger/internal/metrics"
	"timeledger/internal/service"
)

// Closer is the operation the sweep drives.
type Closer interface {
	AutoCloseStaleSessions(ctx context.Context) (service.SweepResult, error)
}

type Sweeper struct {
	closer   Closer
	interval time.Duration
}

func New(closer Closer, interval time.Duration) *Sweeper {
	return &Sweeper{closer: closer, interval: interval}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	log.WithField("interval", s.interval).Info("session sweep started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Sweep(ctx)

		select {
		case <-ctx.Done():
			log.Info("session sweep stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep runs a single pass.
func (s *Sweeper) Sweep(ctx context.Context) service.SweepResult {
	metrics.SweepRuns.Inc()
	res, err := s.closer.AutoCloseStaleSessions(ctx)
	if err != nil {
		metrics.SweepErrors.Inc()
		log.WithError(err).Error("session sweep failed")
		return res
	}
	metrics.SweepClosedSessions.Add(float64(res.Closed))
	metrics.SweepErrors.Add(float64(res.Failed))
	if res.Closed > 0 || res.Failed > 0 {
		log.WithFields(log.Fields{
			"closed": res.Closed,
			"failed": res.Failed,
		}).Info("session sweep closed stale sessions")
	}
	return res
}
