package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"riptide/internal/admission"
	"riptide/internal/config"
	"riptide/internal/dispatch"
	"riptide/internal/logging"
	"riptide/internal/pipeline"
	"riptide/internal/preflight"
	"riptide/internal/queue"
	"riptide/internal/queue/litequeue"
	"riptide/internal/queue/sqsqueue"
	"riptide/internal/storage"
	"riptide/internal/store"
	"riptide/internal/storyboard"
	"riptide/internal/transcode"
)

// runner is the dispatch loop shape shared by the single consumer and the
// concurrent pool.
type runner interface {
	Run(ctx context.Context) error
}

// Daemon owns the worker process lifecycle and enforces single-instance
// execution per host.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	loop   runner

	lockPath string
	lock     *flock.Flock
	closers  []io.Closer
}

// New wires a fully configured daemon. Preflight runs here so a
// misconfigured host fails fast instead of consuming and burning job
// attempts.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.MkdirAll(cfg.Paths.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	results := preflight.RunAll(ctx, cfg)
	for _, result := range results {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		level := slog.LevelError
		if result.Advisory {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
	if !preflight.Passed(results) {
		return nil, errors.New("preflight checks failed")
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		lockPath: filepath.Join(cfg.Paths.LogDir, "riptided.lock"),
	}
	d.lock = flock.New(d.lockPath)

	records, err := store.OpenPostgres(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	d.closers = append(d.closers, records)

	objects, err := storage.NewS3(ctx, cfg)
	if err != nil {
		d.closeAll()
		return nil, fmt.Errorf("open object store: %w", err)
	}

	consumer, err := d.buildConsumer(ctx)
	if err != nil {
		d.closeAll()
		return nil, err
	}

	transcoder := transcode.New(cfg, logger)
	storyboards := storyboard.NewGenerator(cfg, logger)
	pipe := pipeline.New(cfg, records, objects, transcoder, storyboards, logger)

	if cfg.Worker.Concurrency > 1 {
		gate := admission.NewController(
			admission.NewSystemProbe(),
			cfg.Worker.CPUThresholdPercent,
			cfg.Worker.MinFreeMemoryMB,
			logger,
		)
		d.loop = dispatch.NewPool(cfg, consumer, pipe, gate, logger)
	} else {
		d.loop = dispatch.New(cfg, consumer, pipe, logger)
	}

	return d, nil
}

func (d *Daemon) buildConsumer(ctx context.Context) (queue.Consumer, error) {
	switch d.cfg.Queue.Backend {
	case config.QueueBackendSQS:
		consumer, err := sqsqueue.New(ctx, d.cfg)
		if err != nil {
			return nil, fmt.Errorf("open queue: %w", err)
		}
		return consumer, nil
	case config.QueueBackendSQLite:
		q, err := litequeue.Open(
			d.cfg.Queue.SQLitePath,
			time.Duration(d.cfg.Queue.PollWaitSeconds)*time.Second,
			time.Duration(d.cfg.Queue.VisibilitySeconds)*time.Second,
		)
		if err != nil {
			return nil, fmt.Errorf("open queue: %w", err)
		}
		d.closers = append(d.closers, q)
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", d.cfg.Queue.Backend)
	}
}

// Run acquires the instance lock and drives the dispatch loop until ctx is
// canceled. It returns once in-flight work has drained and resources are
// released.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", d.lockPath, err)
	}
	if !ok {
		return fmt.Errorf("another instance holds %s", d.lockPath)
	}
	defer func() {
		if unlockErr := d.lock.Unlock(); unlockErr != nil {
			d.logger.Warn("failed to release instance lock", logging.Error(unlockErr))
		}
	}()
	defer d.closeAll()

	d.logger.Info("daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("queue_backend", d.cfg.Queue.Backend),
		logging.Int("concurrency", d.cfg.Worker.Concurrency),
	)

	runErr := d.loop.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		d.logger.Error("dispatch loop exited", logging.Error(runErr))
		return runErr
	}
	d.logger.Info("daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return nil
}

func (d *Daemon) closeAll() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			d.logger.Warn("close failed during shutdown", logging.Error(err))
		}
	}
	d.closers = nil
}
