// Package lease keeps a queue message's visibility lease alive while a job is
// processed. One renewal loop runs per in-flight job, independent of the
// blocking pipeline; it never mutates pipeline state.
package lease

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"riptide/internal/logging"
)

// Extender is the single queue capability the renewal loop needs.
type Extender interface {
	Extend(ctx context.Context, receipt string, d time.Duration) error
}

// Stats describes the renewal loop's activity.
type Stats struct {
	ExtensionCount int
	TotalExtended  time.Duration
	Running        bool
	LastError      error
}

// Manager periodically extends one message lease until stopped. A failed
// renewal terminates the loop without retrying, since a failed extension
// implies the lease may already be gone; the failure is observable through
// Stats and the optional callback.
type Manager struct {
	extender  Extender
	receipt   string
	extension time.Duration
	interval  time.Duration
	logger    *slog.Logger
	onFailure func(error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	count   int
	lastErr error
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithFailureCallback registers a callback invoked once if renewal fails.
func WithFailureCallback(fn func(error)) Option {
	return func(m *Manager) { m.onFailure = fn }
}

// NewManager constructs a renewal manager. interval should be comfortably
// below extension; the caller validates that.
func NewManager(extender Extender, receipt string, extension, interval time.Duration, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		extender:  extender,
		receipt:   receipt,
		extension: extension,
		interval:  interval,
		logger:    logging.NewComponentLogger(logger, "lease"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the background renewal loop. Starting an already-running
// manager is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		select {
		case <-m.done:
		default:
			m.logger.Warn("lease renewal already running",
				logging.String(logging.FieldEventType, "lease_already_running"))
			return
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	m.logger.Info("lease renewal started",
		logging.String(logging.FieldEventType, "lease_started"),
		logging.Duration("extension", m.extension),
		logging.Duration("interval", m.interval),
	)

	go m.loop(loopCtx, m.done)
}

// Stop signals the loop to exit and blocks, bounded by timeout, until it
// does. It is idempotent and safe to call when Start never ran.
func (m *Manager) Stop(timeout time.Duration) {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if done == nil {
		return
	}
	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		m.logger.Info("lease renewal stopped",
			logging.String(logging.FieldEventType, "lease_stopped"),
			logging.Int("extension_count", m.Stats().ExtensionCount),
		)
	case <-time.After(timeout):
		m.logger.Warn("lease renewal stop timed out",
			logging.String(logging.FieldEventType, "lease_stop_timeout"),
			logging.Duration("timeout", timeout),
		)
	}
}

// Stats returns a snapshot of the loop's activity.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	running := false
	if m.done != nil {
		select {
		case <-m.done:
		default:
			running = true
		}
	}
	return Stats{
		ExtensionCount: m.count,
		TotalExtended:  time.Duration(m.count) * m.extension,
		Running:        running,
		LastError:      m.lastErr,
	}
}

func (m *Manager) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.extendOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				m.mu.Lock()
				m.lastErr = err
				m.mu.Unlock()
				m.logger.Error("lease extension failed",
					logging.String(logging.FieldEventType, "lease_extension_failed"),
					logging.Int("extension_count", m.Stats().ExtensionCount),
					logging.Error(err),
				)
				if m.onFailure != nil {
					m.onFailure(err)
				}
				return
			}
		}
	}
}

func (m *Manager) extendOnce(ctx context.Context) error {
	if err := m.extender.Extend(ctx, m.receipt, m.extension); err != nil {
		return err
	}
	m.mu.Lock()
	m.count++
	count := m.count
	m.mu.Unlock()
	m.logger.Debug("lease extended",
		logging.String(logging.FieldEventType, "lease_extended"),
		logging.Int("extension_count", count),
		logging.Duration("total_extended", time.Duration(count)*m.extension),
	)
	return nil
}
