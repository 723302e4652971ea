package service

import (
	"context"
	"sync"
	"time"

	"clinicq/pkg/logger"
)

// Sweeper runs ExpireSweep on a fixed interval until stopped.
type Sweeper struct {
	manager  *LockManager
	interval time.Duration
	clock    func() time.Time
	log      *logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

func NewSweeper(manager *LockManager, interval time.Duration, clock func() time.Time, log *logger.Logger) *Sweeper {
	return &Sweeper{
		manager:  manager,
		interval: interval,
		clock:    clock,
		log:      log.Component("lock-sweeper"),
		stop:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Lock sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Lock sweeper stopped", "reason", ctx.Err())
			return
		case <-s.stop:
			s.log.Info("Lock sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if _, err := s.manager.ExpireSweep(ctx, s.clock().UTC()); err != nil {
		s.log.Error("Lock sweep failed", "error", err)
	}
}

func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}
