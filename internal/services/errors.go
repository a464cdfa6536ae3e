package services

import (
	"errors"
	"fmt"
	"strings"

	"rawsweep/internal/ledger"
)

// Markers classify failures; test for them with errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap tags err with marker and a "stage: operation: message" detail. A nil
// marker counts as ErrTransient and a nil err yields a leaf error.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinNonEmpty(": ", stage, operation, message)
	if detail == "" {
		detail = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// FailureStatus maps a render error to the status recorded in the ledger.
// Problems with the inputs are reported as invalid rather than failed.
func FailureStatus(err error) ledger.Status {
	for _, bad := range []error{ErrValidation, ErrConfiguration, ErrNotFound} {
		if errors.Is(err, bad) {
			return ledger.StatusInvalid
		}
	}
	if errors.Is(err, ErrTimeout) {
		return ledger.StatusTimeout
	}
	return ledger.StatusFailed
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
