// Package main hosts the rawsweep CLI entrypoint and command graph.
//
// The Cobra command tree exposes the parameter encoder (stages, encode),
// single and progressive renders through darktable-cli (render,
// stage-render), directory sweeps recorded in the SQLite ledger (sweep,
// runs), pipeline dump conversion (tmp2tiff), DNG and sidecar inspection,
// environment checks (status) and configuration scaffolding. Configuration
// is loaded once per invocation; commands that do not need it opt out with
// the skipConfigLoad annotation.
package main
