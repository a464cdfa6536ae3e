// Package services defines shared utilities consumed by the render and sweep
// code paths and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and source paths for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent ledger statuses (failed, timeout, invalid).
//
// The darktable subpackage wraps darktable-cli behind an injectable executor.
package services
