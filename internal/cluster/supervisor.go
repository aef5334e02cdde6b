package cluster

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"todoapi/internal/metrics"
)

// Process is a running worker
type Process interface {
	Pid() int
	Wait() error
	Signal(sig os.Signal) error
}

// Spawner starts the worker for a slot
type Spawner interface {
	Spawn(slot int) (Process, error)
}

// Supervisor keeps a fixed number of worker processes alive.
// A worker that exits for any reason is replaced immediately.
type Supervisor struct {
	workers int
	spawner Spawner
	metrics *metrics.SupervisorMetrics
	logger  zerolog.Logger
}

// NewSupervisor creates a new Supervisor
func NewSupervisor(workers int, spawner Spawner, m *metrics.SupervisorMetrics, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		workers: workers,
		spawner: spawner,
		metrics: m,
		logger:  logger.With().Str("component", "supervisor").Logger(),
	}
}

// Run starts every worker slot and blocks until ctx is cancelled and all
// workers have exited, or until a worker cannot be spawned.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info().Int("workers", s.workers).Msg("starting workers")

	g, ctx := errgroup.WithContext(ctx)
	for slot := 0; slot < s.workers; slot++ {
		g.Go(func() error {
			return s.runSlot(ctx, slot)
		})
	}
	return g.Wait()
}

func (s *Supervisor) runSlot(ctx context.Context, slot int) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		proc, err := s.spawner.Spawn(slot)
		if err != nil {
			return fmt.Errorf("failed to spawn worker %d: %w", slot, err)
		}
		s.metrics.WorkerStarted()

		logger := s.logger.With().Int("slot", slot).Int("pid", proc.Pid()).Logger()
		logger.Info().Msg("worker started")

		done := make(chan error, 1)
		go func() { done <- proc.Wait() }()

		select {
		case err := <-done:
			s.metrics.WorkerExited(slot)
			if ctx.Err() != nil {
				logger.Info().Err(err).Msg("worker stopped")
				return nil
			}
			logger.Warn().Err(err).Msg("worker exited, respawning")
		case <-ctx.Done():
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				logger.Debug().Err(err).Msg("failed to signal worker")
			}
			err := <-done
			s.metrics.WorkerExited(slot)
			logger.Info().Err(err).Msg("worker stopped")
			return nil
		}
	}
}
