// Package preflight provides readiness checks for the external tools and
// filesystem paths the worker depends on.
//
// These checks run in two contexts:
//   - The daemon runs them once at startup and refuses to consume from the
//     queue while a required check fails, so a misconfigured host never
//     burns through a job's attempt ceiling.
//   - The CLI "riptide check" command renders the same results as a table
//     for operators.
//
// Advisory checks (the hardware decoder probe) report a detail but never
// block startup; ffmpeg falls back to software decode without one.
package preflight
