package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"riptide/internal/config"
	"riptide/internal/dispatch"
	"riptide/internal/logging"
	"riptide/internal/media"
	"riptide/internal/queue/litequeue"
	"riptide/internal/services"
	"riptide/internal/testsupport"
)

type stubRunner struct {
	mu       sync.Mutex
	payloads []media.Payload
	err      error
	block    chan struct{} // when set, Run waits for it
}

func (r *stubRunner) Run(ctx context.Context, payload media.Payload) error {
	r.mu.Lock()
	r.payloads = append(r.payloads, payload)
	block := r.block
	err := r.err
	r.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (r *stubRunner) runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func newQueue(t *testing.T, cfg *config.Config) *litequeue.Queue {
	t.Helper()
	q, err := litequeue.Open(cfg.Queue.SQLitePath, 100*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	t.Cleanup(func() {
		_ = q.Close()
	})
	return q
}

func validBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(media.Payload{
		JobID:   uuid.NewString(),
		MediaID: uuid.NewString(),
		OrgID:   uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Worker.ErrorBackoffSeconds = 0
	cfg.Worker.LeaseExtensionSeconds = 1
	cfg.Worker.LeaseIntervalSeconds = 1
	return cfg
}

func TestHandleResolvesMessageOnSuccess(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	q := newQueue(t, cfg)
	runner := &stubRunner{}
	d := dispatch.New(cfg, q, runner, logging.NewNop())

	if err := q.Enqueue(ctx, validBody(t)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Receive(ctx)
	if err != nil || msg == nil {
		t.Fatalf("Receive: %v %v", msg, err)
	}

	d.Handle(ctx, msg)

	if runner.runs() != 1 {
		t.Fatalf("runner ran %d times, want 1", runner.runs())
	}
	depth, _ := q.Depth(ctx)
	if depth != 0 {
		t.Fatalf("depth = %d, want resolved message deleted", depth)
	}
}

func TestHandleLeavesMessageWhenRunFails(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	q := newQueue(t, cfg)
	runner := &stubRunner{err: errors.New("store unavailable")}
	d := dispatch.New(cfg, q, runner, logging.NewNop())

	if err := q.Enqueue(ctx, validBody(t)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Receive(ctx)
	if err != nil || msg == nil {
		t.Fatalf("Receive: %v %v", msg, err)
	}

	d.Handle(ctx, msg)

	depth, _ := q.Depth(ctx)
	if depth != 1 {
		t.Fatalf("depth = %d, want unresolved message kept for redelivery", depth)
	}
}

func TestHandleLeavesMessageWhenJobFailsTerminally(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	q := newQueue(t, cfg)
	runner := &stubRunner{err: fmt.Errorf("%w (RETRY_EXHAUSTED)", services.ErrJobFailed)}
	d := dispatch.New(cfg, q, runner, logging.NewNop())

	if err := q.Enqueue(ctx, validBody(t)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Receive(ctx)
	if err != nil || msg == nil {
		t.Fatalf("Receive: %v %v", msg, err)
	}

	d.Handle(ctx, msg)

	// The terminal record is persisted but the message is not acknowledged;
	// it lapses and the redelivery resolves as a terminal-state no-op.
	depth, _ := q.Depth(ctx)
	if depth != 1 {
		t.Fatalf("depth = %d, want failed job's message left to lapse", depth)
	}
}

func TestHandleDiscardsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	q := newQueue(t, cfg)
	runner := &stubRunner{}
	d := dispatch.New(cfg, q, runner, logging.NewNop())

	if err := q.Enqueue(ctx, []byte(`{"job_id": "not-a-uuid"}`)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Receive(ctx)
	if err != nil || msg == nil {
		t.Fatalf("Receive: %v %v", msg, err)
	}

	d.Handle(ctx, msg)

	if runner.runs() != 0 {
		t.Fatal("malformed payload must not reach the pipeline")
	}
	depth, _ := q.Depth(ctx)
	if depth != 0 {
		t.Fatalf("depth = %d, want malformed message deleted", depth)
	}
}

func TestHandleDiscardsPayloadMissingOrgID(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	q := newQueue(t, cfg)
	runner := &stubRunner{}
	d := dispatch.New(cfg, q, runner, logging.NewNop())

	body, _ := json.Marshal(map[string]string{
		"job_id":   uuid.NewString(),
		"media_id": uuid.NewString(),
	})
	if err := q.Enqueue(ctx, body); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Receive(ctx)
	if err != nil || msg == nil {
		t.Fatalf("Receive: %v %v", msg, err)
	}

	d.Handle(ctx, msg)

	if runner.runs() != 0 {
		t.Fatal("payload without org_id must be discarded, not run")
	}
	depth, _ := q.Depth(ctx)
	if depth != 0 {
		t.Fatalf("depth = %d, want message acknowledged", depth)
	}
}

func TestRunConsumesUntilCanceled(t *testing.T) {
	cfg := testConfig(t)
	q := newQueue(t, cfg)
	runner := &stubRunner{}
	d := dispatch.New(cfg, q, runner, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, validBody(t)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if runner.runs() >= 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after cancel")
	}
	if runner.runs() != 3 {
		t.Fatalf("runner ran %d times, want 3", runner.runs())
	}
	depth, _ := q.Depth(context.Background())
	if depth != 0 {
		t.Fatalf("depth = %d, want all messages resolved", depth)
	}
}

func TestPoolReapsFinishedAndRespectsLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Worker.Concurrency = 2
	q := newQueue(t, cfg)

	block := make(chan struct{})
	runner := &stubRunner{block: block}
	pool := dispatch.NewPool(cfg, q, runner, nil, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 4; i++ {
		if err := q.Enqueue(ctx, validBody(t)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- pool.Run(ctx)
	}()

	// Two jobs start and block; the pool must hold at the limit.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && runner.runs() < 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if runner.runs() != 2 {
		t.Fatalf("runs = %d, want 2 blocked at the concurrency limit", runner.runs())
	}
	time.Sleep(100 * time.Millisecond)
	if runner.runs() != 2 {
		t.Fatalf("runs = %d, pool exceeded its limit", runner.runs())
	}

	// Unblock; the pool reaps and picks up the remaining jobs.
	close(block)
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && runner.runs() < 4 {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not drain after cancel")
	}
	if runner.runs() != 4 {
		t.Fatalf("runs = %d, want all 4 jobs handled", runner.runs())
	}
}
