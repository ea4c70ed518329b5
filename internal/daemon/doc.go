// Package daemon coordinates the long-running worker process.
//
// It wires configuration, record storage, object storage, the queue
// consumer, and the dispatch loop into a single lifecycle with flock-based
// locking to prevent multiple instances on one host. Shutdown is ordered:
// the dispatch loop drains in-flight jobs before backing connections close,
// so a terminating worker never leaves a half-written record behind a
// closed pool.
//
// Keep orchestration logic here: pipeline stages and queue mechanics live
// in their respective packages while the daemon focuses on startup,
// shutdown, and wiring.
package daemon
