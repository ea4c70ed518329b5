package litequeue_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"riptide/internal/queue"
	"riptide/internal/queue/litequeue"
)

func openQueue(t *testing.T, waitTime, visibility time.Duration) *litequeue.Queue {
	t.Helper()
	q, err := litequeue.Open(filepath.Join(t.TempDir(), "queue.db"), waitTime, visibility)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		_ = q.Close()
	})
	return q
}

func TestReceiveClaimsOldestMessage(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, 100*time.Millisecond, time.Minute)

	if err := q.Enqueue(ctx, []byte("first")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, []byte("second")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	msg, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg == nil || string(msg.Body) != "first" {
		t.Fatalf("got %v, want oldest message first", msg)
	}
	if msg.Receipt == "" {
		t.Fatal("claimed message must carry a receipt")
	}

	// The claimed message is invisible; the next receive sees the second.
	next, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if next == nil || string(next.Body) != "second" {
		t.Fatalf("got %v, want the second message", next)
	}
}

func TestReceiveReturnsNilWhenEmpty(t *testing.T) {
	q := openQueue(t, 50*time.Millisecond, time.Minute)
	msg, err := q.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg != nil {
		t.Fatalf("got %v, want nil after an empty wait", msg)
	}
}

func TestLapsedClaimRedelivers(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, 2*time.Second, 50*time.Millisecond)

	if err := q.Enqueue(ctx, []byte("job")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	first, err := q.Receive(ctx)
	if err != nil || first == nil {
		t.Fatalf("Receive: %v %v", first, err)
	}

	time.Sleep(80 * time.Millisecond)

	second, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive after lapse: %v", err)
	}
	if second == nil || string(second.Body) != "job" {
		t.Fatalf("lapsed message not redelivered: %v", second)
	}
	if second.Receipt == first.Receipt {
		t.Fatal("redelivery must issue a fresh receipt")
	}

	// The lapsed receipt is dead for extension.
	if err := q.Extend(ctx, first.Receipt, time.Minute); !errors.Is(err, queue.ErrReceiptInvalid) {
		t.Fatalf("Extend with lapsed receipt = %v, want ErrReceiptInvalid", err)
	}
}

func TestExtendKeepsClaimAlive(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, 100*time.Millisecond, 60*time.Millisecond)

	if err := q.Enqueue(ctx, []byte("job")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Receive(ctx)
	if err != nil || msg == nil {
		t.Fatalf("Receive: %v %v", msg, err)
	}

	// Renew before the 60ms deadline, then wait past where it would have
	// lapsed without the extension.
	time.Sleep(30 * time.Millisecond)
	if err := q.Extend(ctx, msg.Receipt, time.Minute); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	other, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if other != nil {
		t.Fatalf("extended message must stay invisible, got %v", other)
	}
}

func TestDeleteResolvesMessage(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, 50*time.Millisecond, time.Minute)

	if err := q.Enqueue(ctx, []byte("job")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msg, err := q.Receive(ctx)
	if err != nil || msg == nil {
		t.Fatalf("Receive: %v %v", msg, err)
	}
	if err := q.Delete(ctx, msg.Receipt); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if depth != 0 {
		t.Fatalf("depth = %d after delete, want 0", depth)
	}
	if err := q.Delete(ctx, msg.Receipt); !errors.Is(err, queue.ErrReceiptInvalid) {
		t.Fatalf("second Delete = %v, want ErrReceiptInvalid", err)
	}
}

func TestReceiveHonorsContextCancel(t *testing.T) {
	q := openQueue(t, 10*time.Second, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := q.Receive(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Receive = %v, want context.Canceled", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("Receive did not return promptly on cancel")
	}
}
