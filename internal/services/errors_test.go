package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lbbniu/jimeng-tts/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "generation", "submit", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"generation", "submit", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "speech", "synthesize", "", errors.New("io"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestReportStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Status
	}{
		{"nil", nil, services.StatusSucceeded},
		{"quota", services.Wrap(services.ErrQuotaExhausted, "batch", "reserve", "balance 0", nil), services.StatusSkipped},
		{"config", services.Wrap(services.ErrConfiguration, "batch", "resolve", "unknown model", nil), services.StatusSkipped},
		{"timeout", services.Wrap(services.ErrTimeout, "generation", "poll", "deadline", nil), services.StatusFailed},
		{"permanent", services.Wrap(services.ErrPermanent, "generation", "poll", "provider failed", nil), services.StatusFailed},
		{"storage", services.Wrap(services.ErrStorage, "artifacts", "put", "disk full", nil), services.StatusFailed},
		{"interrupted", services.Wrap(services.ErrInterrupted, "batch", "run", "canceled", context.Canceled), services.StatusInterrupted},
		{"plain", errors.New("boom"), services.StatusFailed},
	}
	for _, tc := range cases {
		if got := services.ReportStatus(tc.err); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}
