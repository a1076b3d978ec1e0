package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	applog "github.com/NVDUNG1702/blue-relay-tools/internal/logger"
)

// Relay owns the runtime components: the inbound watcher schedule and,
// through Service, the send/verify surface.
type Relay struct {
	logger    *slog.Logger
	service   *Service
	watcher   *Watcher
	interval  time.Duration
	scheduler gocron.Scheduler

	mu sync.Mutex
	// pollRunning prevents overlapping poll passes when one pass takes
	// longer than the interval.
	pollRunning bool
}

// NewRelay creates the relay runtime. watcher may be nil when the inbound
// watcher is disabled.
func NewRelay(logger *slog.Logger, service *Service, watcher *Watcher, interval time.Duration) (*Relay, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Relay{
		logger:   logger.With("component", "relay"),
		service:  service,
		watcher:  watcher,
		interval: interval,
	}

	if watcher != nil {
		s, err := gocron.NewScheduler(gocron.WithLogger(applog.NewGocron(r.logger)))
		if err != nil {
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
		r.scheduler = s
	}

	return r, nil
}

// Service returns the relay's operation surface.
func (r *Relay) Service() *Service {
	return r.service
}

// Run starts the relay components and blocks until ctx is cancelled or a
// component fails.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("Starting relay...")

	g, gCtx := errgroup.WithContext(ctx)

	// Hold the group open until shutdown; with the watcher disabled there
	// is otherwise nothing to wait on and Run would return immediately.
	g.Go(func() error {
		<-gCtx.Done()
		return nil
	})

	if r.watcher != nil {
		g.Go(func() error {
			if err := r.startWatcher(gCtx); err != nil {
				r.logger.Error("Failed to start watcher schedule", "error", err)
				return fmt.Errorf("failed to start watcher schedule: %w", err)
			}

			<-gCtx.Done()
			r.logger.Info("Shutdown signal received, stopping watcher schedule...")

			if err := r.scheduler.Shutdown(); err != nil {
				r.logger.Error("Error stopping watcher schedule", "error", err)
			}
			return nil
		})
	}

	r.logger.Info("Relay running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("Relay stopped due to error", "error", err)
		return err
	}

	r.logger.Info("Relay stopped gracefully.")
	return nil
}

// startWatcher schedules the poll pass at the configured interval.
func (r *Relay) startWatcher(ctx context.Context) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			r.mu.Lock()
			if r.pollRunning {
				r.mu.Unlock()
				return
			}
			r.pollRunning = true
			r.mu.Unlock()

			defer func() {
				r.mu.Lock()
				r.pollRunning = false
				r.mu.Unlock()
			}()

			if err := r.watcher.RunOnce(ctx); err != nil {
				r.logger.Error("Poll pass failed", "error", err)
			}
		}),
		gocron.WithName("chatdb_poll"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule poll job: %w", err)
	}

	r.scheduler.Start()
	r.logger.Info("Watcher schedule started", "interval", r.interval)
	return nil
}
