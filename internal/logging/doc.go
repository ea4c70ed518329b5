// Package logging centralizes slog construction and the structured event
// vocabulary used across the worker. Every stage transition, retry, and
// terminal outcome is emitted through loggers built here so operators can
// consume a single event stream.
package logging
