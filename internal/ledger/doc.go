// Package ledger records sweep runs and individual renders in SQLite.
//
// Every sweep opens a run, records one row per rendered (or skipped) variant,
// and closes the run with its final counts. The status command reads the
// ledger back to show what was rendered, which variants failed, and how long
// darktable spent on each file.
package ledger
