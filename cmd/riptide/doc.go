// Package main hosts the riptide CLI entrypoint and command graph.
//
// The Cobra-based command tree covers host readiness checks, configuration
// scaffolding and validation, and version reporting. It centralizes
// configuration resolution so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
