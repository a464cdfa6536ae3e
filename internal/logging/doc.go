// Package logging assembles structured slog loggers and formatting helpers used
// across rawsweep.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so render and sweep code can tag
// log lines with run IDs, stages, and source files. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
