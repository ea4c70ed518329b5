// Package media defines the shared job and asset records the worker reads and
// mutates, plus the queue message payload that references them.
package media
