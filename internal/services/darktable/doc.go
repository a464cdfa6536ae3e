// Package darktable mediates access to darktable-cli for headless renders.
//
// It builds the command line for a single export (source raw, XMP sidecar,
// destination), applies the configured timeout, streams output into the
// logger, and picks the per-module timings darktable prints under "-d perf".
// Command execution sits behind the Executor interface so tests run without
// darktable installed.
package darktable
