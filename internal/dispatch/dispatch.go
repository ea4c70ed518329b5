// Package dispatch owns the queue consumption loop: poll, validate, run the
// pipeline under a live lease, then resolve the message. The queue lease is
// the only cross-instance mutual exclusion; the dispatcher never assumes a
// message is exclusively its own beyond the lease window.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"riptide/internal/config"
	"riptide/internal/lease"
	"riptide/internal/logging"
	"riptide/internal/media"
	"riptide/internal/queue"
	"riptide/internal/services"
)

// Runner executes one validated job. A nil return releases the message; an
// error wrapping services.ErrJobFailed means the terminal state is persisted
// and the message is left to lapse; any other error leaves it to redeliver
// after the lease lapses.
type Runner interface {
	Run(ctx context.Context, payload media.Payload) error
}

// Dispatcher is the one-job-at-a-time consumer: a single blocking pipeline
// execution per received message, horizontal scale coming from running more
// instances.
type Dispatcher struct {
	cfg      *config.Config
	consumer queue.Consumer
	runner   Runner
	logger   *slog.Logger

	backoff        time.Duration
	leaseExtension time.Duration
	leaseInterval  time.Duration
	stopTimeout    time.Duration
}

// New constructs a Dispatcher.
func New(cfg *config.Config, consumer queue.Consumer, runner Runner, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:            cfg,
		consumer:       consumer,
		runner:         runner,
		logger:         logging.NewComponentLogger(logger, "dispatch"),
		backoff:        time.Duration(cfg.Worker.ErrorBackoffSeconds) * time.Second,
		leaseExtension: time.Duration(cfg.Worker.LeaseExtensionSeconds) * time.Second,
		leaseInterval:  time.Duration(cfg.Worker.LeaseIntervalSeconds) * time.Second,
		stopTimeout:    5 * time.Second,
	}
}

// Run polls until ctx is canceled. Poll errors back off instead of spinning;
// an empty long poll loops immediately.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started",
		logging.String(logging.FieldEventType, "dispatcher_started"),
		logging.String("queue_backend", d.cfg.Queue.Backend),
	)
	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("dispatcher stopped", logging.String(logging.FieldEventType, "dispatcher_stopped"))
			return err
		}
		msg, err := d.consumer.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			d.logger.Error("receive failed, backing off",
				logging.Duration("backoff", d.backoff),
				logging.Error(err),
			)
			d.sleep(ctx, d.backoff)
			continue
		}
		if msg == nil {
			continue
		}
		d.Handle(ctx, msg)
	}
}

// Handle processes one received message end to end.
func (d *Dispatcher) Handle(ctx context.Context, msg *queue.Message) {
	payload, err := media.ParsePayload(msg.Body)
	if err != nil {
		// Malformed payloads can never succeed; delete instead of letting
		// them redeliver forever.
		d.logger.Warn("discarding invalid message",
			logging.String(logging.FieldEventType, "message_discarded"),
			logging.Error(err),
		)
		if delErr := d.consumer.Delete(ctx, msg.Receipt); delErr != nil {
			d.logger.Error("failed to delete invalid message", logging.Error(delErr))
		}
		return
	}

	correlationID := uuid.NewString()
	jobCtx, cancel := context.WithCancel(services.WithCorrelationID(ctx, correlationID))
	defer cancel()
	logger := logging.WithContext(jobCtx, d.logger).With(
		logging.String(logging.FieldJobID, payload.JobID),
		logging.String(logging.FieldMediaID, payload.MediaID),
	)

	renewal := lease.NewManager(d.consumer, msg.Receipt, d.leaseExtension, d.leaseInterval, logger,
		lease.WithFailureCallback(func(err error) {
			// A lost lease means another instance may already own this job.
			logger.Warn("lease renewal failed, canceling execution", logging.Error(err))
			cancel()
		}),
	)
	renewal.Start(jobCtx)
	defer renewal.Stop(d.stopTimeout)

	runErr := d.runner.Run(jobCtx, payload)
	stats := renewal.Stats()

	if errors.Is(runErr, services.ErrJobFailed) {
		// The failed state is persisted. The message lapses back into view
		// and the next delivery resolves against the terminal record.
		logger.Warn("job failed terminally, leaving message to lapse",
			logging.String(logging.FieldEventType, "message_released"),
			logging.Int("lease_extensions", stats.ExtensionCount),
			logging.Error(runErr),
		)
		return
	}
	if runErr != nil {
		logger.Error("job execution did not resolve, leaving message for redelivery",
			logging.String(logging.FieldEventType, "message_unresolved"),
			logging.Int("lease_extensions", stats.ExtensionCount),
			logging.Error(runErr),
		)
		d.sleep(ctx, d.backoff)
		return
	}

	if err := d.consumer.Delete(ctx, msg.Receipt); err != nil {
		// At-least-once delivery: the terminal-state skip makes the eventual
		// redelivery a no-op.
		logger.Error("failed to delete resolved message", logging.Error(err))
		return
	}
	logger.Info("message resolved",
		logging.String(logging.FieldEventType, "message_resolved"),
		logging.Int("lease_extensions", stats.ExtensionCount),
		logging.Duration("lease_extended_total", stats.TotalExtended),
	)
}

func (d *Dispatcher) sleep(ctx context.Context, d2 time.Duration) {
	if d2 <= 0 {
		return
	}
	timer := time.NewTimer(d2)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
