// Package config loads, normalizes, and validates rawsweep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DARKTABLE_CLI environment
// fallback. The Config type centralizes every knob the CLI needs: where renders
// and logs go, how darktable-cli is invoked, and which stage field a sweep
// varies.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
