package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yllada/wgconv/common"
	"github.com/yllada/wgconv/profile"
)

// HealthState represents what the watchdog last saw of the kernel.
type HealthState int

const (
	HealthUnknown HealthState = iota
	HealthHealthy
	HealthDegraded
	HealthUnhealthy
)

// String returns a human-readable representation of the health state.
func (h HealthState) String() string {
	switch h {
	case HealthHealthy:
		return "Healthy"
	case HealthDegraded:
		return "Degraded"
	case HealthUnhealthy:
		return "Unhealthy"
	default:
		return "Unknown"
	}
}

// WatchdogConfig holds configuration for the watchdog.
type WatchdogConfig struct {
	// CheckInterval is how often the kernel process is probed.
	CheckInterval time.Duration
	// FailureThreshold is how many consecutive missed probes mark the
	// kernel unhealthy and trigger a restart.
	FailureThreshold int
	// RestartDelay is the pause before each restart attempt.
	RestartDelay time.Duration
	// MaxRestarts bounds consecutive restart attempts (0 = unlimited).
	MaxRestarts int
}

// DefaultWatchdogConfig returns the defaults used by "kernel watch".
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		CheckInterval:    5 * time.Second,
		FailureThreshold: 2,
		RestartDelay:     common.RestartDelay,
		MaxRestarts:      5,
	}
}

// Supervised is the kernel as seen by the watchdog.
type Supervised interface {
	Running() (profileID string, ok bool)
	Start(ctx context.Context, p *profile.Profile) error
}

// Watchdog restarts the kernel when its process disappears.
type Watchdog struct {
	mu       sync.Mutex
	config   WatchdogConfig
	kernel   Supervised
	resolve  func() (*profile.Profile, error)
	state    HealthState
	failures int
	restarts int
	lastSeen time.Time

	onHealthChange func(oldState, newState HealthState)
	onRestart      func(p *profile.Profile, attempt int)
}

// NewWatchdog creates a watchdog. resolve returns the profile to start
// when the kernel has to be brought back.
func NewWatchdog(kernel Supervised, resolve func() (*profile.Profile, error), config WatchdogConfig) *Watchdog {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultWatchdogConfig().CheckInterval
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	return &Watchdog{config: config, kernel: kernel, resolve: resolve}
}

// SetOnHealthChange sets a callback for health state changes.
func (w *Watchdog) SetOnHealthChange(callback func(oldState, newState HealthState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onHealthChange = callback
}

// SetOnRestart sets a callback invoked after each successful restart.
func (w *Watchdog) SetOnRestart(callback func(p *profile.Profile, attempt int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRestart = callback
}

// State returns the current health state.
func (w *Watchdog) State() HealthState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Run probes the kernel every CheckInterval until ctx ends or MaxRestarts
// consecutive restarts fail to keep it alive.
func (w *Watchdog) Run(ctx context.Context) error {
	common.LogInfo("Watchdog started (interval: %v)", w.config.CheckInterval)
	defer common.LogInfo("Watchdog stopped")

	ticker := time.NewTicker(w.config.CheckInterval)
	defer ticker.Stop()

	for {
		if err := w.check(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// check runs a single probe and restarts the kernel when it is unhealthy.
func (w *Watchdog) check(ctx context.Context) error {
	if _, ok := w.kernel.Running(); ok {
		w.mu.Lock()
		w.failures = 0
		w.restarts = 0
		w.lastSeen = time.Now()
		w.mu.Unlock()
		w.setState(HealthHealthy)
		return nil
	}

	w.mu.Lock()
	w.failures++
	failures := w.failures
	w.mu.Unlock()

	common.LogWarn("Watchdog: kernel not running (probe %d/%d)", failures, w.config.FailureThreshold)
	if failures < w.config.FailureThreshold {
		w.setState(HealthDegraded)
		return nil
	}
	w.setState(HealthUnhealthy)
	return w.restart(ctx)
}

func (w *Watchdog) restart(ctx context.Context) error {
	w.mu.Lock()
	if w.config.MaxRestarts > 0 && w.restarts >= w.config.MaxRestarts {
		w.mu.Unlock()
		common.LogError("Watchdog: max restart attempts reached")
		return fmt.Errorf("%w: gave up after %d restarts", common.ErrKernelStart, w.config.MaxRestarts)
	}
	w.restarts++
	attempt := w.restarts
	onRestart := w.onRestart
	w.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.config.RestartDelay):
	}

	p, err := w.resolve()
	if err != nil {
		return fmt.Errorf("resolving profile to restart: %w", err)
	}

	common.LogInfo("Watchdog: restarting kernel with %s (attempt %d)", p.Name, attempt)
	if err := w.kernel.Start(ctx, p); err != nil {
		common.LogError("Watchdog: restart failed: %v", err)
		return nil
	}

	w.mu.Lock()
	w.failures = 0
	w.mu.Unlock()
	w.setState(HealthHealthy)
	if onRestart != nil {
		onRestart(p, attempt)
	}
	return nil
}

func (w *Watchdog) setState(state HealthState) {
	w.mu.Lock()
	old := w.state
	w.state = state
	callback := w.onHealthChange
	w.mu.Unlock()

	if old != state {
		common.LogInfo("Watchdog: kernel health %s -> %s", old, state)
		if callback != nil {
			callback(old, state)
		}
	}
}
