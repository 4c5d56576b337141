package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrQuotaExhausted = errors.New("quota exhausted")
	ErrTransient      = errors.New("transient failure")
	ErrPermanent      = errors.New("permanent failure")
	ErrTimeout        = errors.New("timeout")
	ErrStorage        = errors.New("storage error")
	ErrInterrupted    = errors.New("interrupted")
)

// Status is the terminal outcome recorded for a storyboard entry in the
// batch report.
type Status string

const (
	StatusSucceeded   Status = "succeeded"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later status classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ReportStatus maps an entry error to the report status the orchestrator
// should record after the entry fails. Quota exhaustion and per-entry
// configuration problems skip the entry without touching the provider;
// cancellation is recorded separately from failure because the outcome of
// in-flight work is unknown.
func ReportStatus(err error) Status {
	switch {
	case err == nil:
		return StatusSucceeded
	case errors.Is(err, ErrInterrupted):
		return StatusInterrupted
	case errors.Is(err, ErrQuotaExhausted), errors.Is(err, ErrConfiguration):
		return StatusSkipped
	default:
		return StatusFailed
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
