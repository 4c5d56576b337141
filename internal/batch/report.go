package batch

import (
	"errors"
	"time"

	"github.com/lbbniu/jimeng-tts/internal/services"
)

// EntryResult records the terminal outcome of one storyboard entry.
type EntryResult struct {
	Status services.Status
	Reason string
}

// Report maps every storyboard entry id to its terminal status. Partial
// completion is the normal case; callers inspect the report rather than a
// single pass/fail error.
type Report struct {
	Order    []string
	Entries  map[string]EntryResult
	Started  time.Time
	Finished time.Time
}

func newReport() *Report {
	return &Report{Entries: make(map[string]EntryResult)}
}

func (r *Report) record(entryID string, err error) {
	r.Order = append(r.Order, entryID)
	r.Entries[entryID] = EntryResult{
		Status: services.ReportStatus(err),
		Reason: reason(err),
	}
}

// Counts tallies entries by terminal status.
func (r *Report) Counts() (succeeded, skipped, failed, interrupted int) {
	for _, result := range r.Entries {
		switch result.Status {
		case services.StatusSucceeded:
			succeeded++
		case services.StatusSkipped:
			skipped++
		case services.StatusInterrupted:
			interrupted++
		default:
			failed++
		}
	}
	return succeeded, skipped, failed, interrupted
}

func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, services.ErrInterrupted):
		return "canceled"
	case errors.Is(err, services.ErrTimeout):
		return "timeout"
	case errors.Is(err, services.ErrTransient):
		return "exhausted"
	default:
		return err.Error()
	}
}
