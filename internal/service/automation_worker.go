package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AutomationWorker is the heartbeat: it periodically realizes gains and runs
// due recurring transfers
type AutomationWorker struct {
	automationService *AutomationService
	logger            zerolog.Logger
	interval          time.Duration
	stopCh            chan struct{}
	doneCh            chan struct{}
	mu                sync.Mutex
	running           bool
}

// AutomationWorkerConfig holds configuration for the heartbeat
type AutomationWorkerConfig struct {
	Interval time.Duration // How often the heartbeat ticks
}

// DefaultAutomationWorkerConfig returns sensible defaults
func DefaultAutomationWorkerConfig() AutomationWorkerConfig {
	return AutomationWorkerConfig{
		Interval: 1 * time.Minute,
	}
}

// NewAutomationWorker creates a new heartbeat worker
func NewAutomationWorker(
	automationService *AutomationService,
	logger zerolog.Logger,
	config AutomationWorkerConfig,
) *AutomationWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultAutomationWorkerConfig().Interval
	}

	return &AutomationWorker{
		automationService: automationService,
		logger:            logger.With().Str("component", "automation_worker").Logger(),
		interval:          config.Interval,
		stopCh:            make(chan struct{}),
		doneCh:            make(chan struct{}),
	}
}

// Start begins the heartbeat
func (w *AutomationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Msg("Starting automation worker")

	go w.run(ctx)
}

// Stop gracefully stops the heartbeat
func (w *AutomationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping automation worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Automation worker stopped")
}

func (w *AutomationWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// Catch up immediately on startup
	w.tick()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-w.stopCh:
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *AutomationWorker) tick() {
	startTime := time.Now()

	result, err := w.automationService.RunDue()
	if err != nil {
		w.logger.Error().Err(err).Msg("Heartbeat failed")
		return
	}

	event := w.logger.Debug()
	if len(result.Processed) > 0 || len(result.Deferred) > 0 || result.Compounded {
		event = w.logger.Info()
	}
	event.
		Bool("compounded", result.Compounded).
		Int("processed", len(result.Processed)).
		Int("deferred", len(result.Deferred)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed heartbeat")
}

// RunNow triggers a heartbeat outside the schedule
func (w *AutomationWorker) RunNow() (*AutomationResult, error) {
	w.logger.Debug().Msg("Manual heartbeat triggered")
	return w.automationService.RunDue()
}

// IsRunning returns whether the worker is currently running
func (w *AutomationWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
