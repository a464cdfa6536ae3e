// Package sweep renders raw files through darktable-cli while varying one
// stage parameter.
//
// A Runner discovers DNG files, seeds rawprepare and temperature from each
// file's metadata, renders every sweep value through a generated XMP sidecar,
// skips outputs that already exist, converts pipeline dumps next to each
// render and records every outcome in the ledger. Renders run one at a time:
// darktable writes its dumps to a fixed directory.
package sweep
