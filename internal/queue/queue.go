// Package queue defines the lease-based message contract between the worker
// and the shared transcode queue. Delivery is at-least-once: a received
// message stays invisible to other consumers while its lease is held and
// renewed, and becomes redeliverable once the lease lapses.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrReceiptInvalid reports that a receipt no longer proves ownership of a
// message, typically because its visibility lapsed or it was already resolved.
var ErrReceiptInvalid = errors.New("queue: receipt no longer valid")

// Message is one at-least-once delivery unit.
type Message struct {
	// Body is the opaque JSON payload.
	Body []byte
	// Receipt proves current ownership of the leased message and is required
	// to extend or resolve it.
	Receipt string
}

// Consumer is the narrow queue contract the dispatcher needs.
type Consumer interface {
	// Receive blocks up to the implementation's long-poll wait for at most one
	// message. A nil message with a nil error means the wait elapsed empty.
	Receive(ctx context.Context) (*Message, error)
	// Extend pushes the message's visibility expiry forward by d from now.
	Extend(ctx context.Context, receipt string, d time.Duration) error
	// Delete resolves the message so it is never redelivered.
	Delete(ctx context.Context, receipt string) error
}
