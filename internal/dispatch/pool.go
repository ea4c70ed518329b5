package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"riptide/internal/admission"
	"riptide/internal/config"
	"riptide/internal/logging"
	"riptide/internal/queue"
)

// Pool is the concurrent-worker deployment variant: several jobs run as
// goroutines inside one process, each pickup gated by the admission
// controller. Message handling itself is identical to the single consumer.
type Pool struct {
	single    *Dispatcher
	gate      *admission.Controller
	logger    *slog.Logger
	limit     int
	gateDelay time.Duration

	mu     sync.Mutex
	active map[string]chan struct{}
	wg     sync.WaitGroup
}

// NewPool builds a Pool on top of the single-message handler.
func NewPool(cfg *config.Config, consumer queue.Consumer, runner Runner, gate *admission.Controller, logger *slog.Logger) *Pool {
	limit := cfg.Worker.Concurrency
	if limit < 1 {
		limit = 1
	}
	return &Pool{
		single:    New(cfg, consumer, runner, logger),
		gate:      gate,
		logger:    logging.NewComponentLogger(logger, "dispatch"),
		limit:     limit,
		gateDelay: time.Duration(cfg.Worker.ErrorBackoffSeconds) * time.Second,
		active:    make(map[string]chan struct{}),
	}
}

// Run polls and spawns handlers until ctx is canceled, then waits for every
// in-flight job to finish. Completed handles are reaped before each pickup
// so the concurrency check sees live workers only.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool started",
		logging.String(logging.FieldEventType, "pool_started"),
		logging.Int("concurrency", p.limit),
	)
	defer p.wg.Wait()

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("worker pool stopping",
				logging.String(logging.FieldEventType, "pool_stopped"),
				logging.Int("in_flight", p.reapFinished()),
			)
			return err
		}

		if running := p.reapFinished(); running >= p.limit {
			p.single.sleep(ctx, p.gateDelay)
			continue
		}
		if p.gate != nil && !p.gate.CanStart(ctx) {
			p.single.sleep(ctx, p.gateDelay)
			continue
		}

		msg, err := p.single.consumer.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			p.logger.Error("receive failed, backing off", logging.Error(err))
			p.single.sleep(ctx, p.single.backoff)
			continue
		}
		if msg == nil {
			continue
		}
		p.spawn(ctx, msg)
	}
}

func (p *Pool) spawn(ctx context.Context, msg *queue.Message) {
	done := make(chan struct{})
	p.mu.Lock()
	p.active[msg.Receipt] = done
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(done)
		p.single.Handle(ctx, msg)
	}()
}

// reapFinished drops completed worker handles and returns the live count.
func (p *Pool) reapFinished() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for receipt, done := range p.active {
		select {
		case <-done:
			delete(p.active, receipt)
		default:
		}
	}
	return len(p.active)
}
