package batch_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/lbbniu/jimeng-tts/internal/artifacts"
	"github.com/lbbniu/jimeng-tts/internal/batch"
	"github.com/lbbniu/jimeng-tts/internal/config"
	"github.com/lbbniu/jimeng-tts/internal/logging"
	"github.com/lbbniu/jimeng-tts/internal/quota"
	"github.com/lbbniu/jimeng-tts/internal/services"
	"github.com/lbbniu/jimeng-tts/internal/services/jimeng"
	"github.com/lbbniu/jimeng-tts/internal/storyboard"
	"github.com/lbbniu/jimeng-tts/internal/testsupport"
)

type fakeGenerator struct {
	submits     int
	submitErr   error
	waitErr     error
	urls        []string
	imageData   []byte
	imageExt    string
	lastRequest jimeng.SubmitRequest
}

func (f *fakeGenerator) Submit(_ context.Context, req jimeng.SubmitRequest) (jimeng.JobHandle, error) {
	f.submits++
	f.lastRequest = req
	if f.submitErr != nil {
		return jimeng.JobHandle{}, f.submitErr
	}
	return jimeng.JobHandle{HistoryID: "h1"}, nil
}

func (f *fakeGenerator) WaitForImages(context.Context, jimeng.JobHandle) ([]string, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return f.urls, nil
}

func (f *fakeGenerator) FetchImage(context.Context, string) ([]byte, string, error) {
	return f.imageData, f.imageExt, nil
}

type fakeNarrator struct {
	entryID string
	text    string
	err     error
}

func (f *fakeNarrator) Render(_ context.Context, entryID, text string) error {
	f.entryID = entryID
	f.text = text
	return f.err
}

type fixture struct {
	runner *batch.Runner
	cfg    *config.Config
	store  *artifacts.Store
	ledger *quota.Ledger
}

func newFixture(t *testing.T, allowance int, gen batch.Generator, narrator batch.Narrator) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithAllowance(allowance),
		testsupport.WithMaxRetries(2))
	cfg.Quota.CostPerEntry = 1

	store := testsupport.OpenStore(t, cfg)
	ledger := testsupport.OpenLedger(t, cfg)

	runner := batch.New(cfg, gen, narrator, store, ledger, logging.NewNop(),
		batch.WithSleeper(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}))
	return &fixture{runner: runner, cfg: cfg, store: store, ledger: ledger}
}

func TestRunSucceedsAndPersistsArtifacts(t *testing.T) {
	gen := &fakeGenerator{urls: []string{"https://img.example/1"}, imageData: []byte("img-bytes"), imageExt: "jpg"}
	narrator := &fakeNarrator{}
	fx := newFixture(t, 1, gen, narrator)

	entries := []storyboard.Entry{{ID: "s1", Prompt: "a cat", Narration: "Hello world"}}
	report, err := fx.runner.Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	result := report.Entries["s1"]
	if result.Status != services.StatusSucceeded {
		t.Fatalf("status = %s (%s)", result.Status, result.Reason)
	}
	if gen.submits != 1 {
		t.Fatalf("submits = %d", gen.submits)
	}
	if gen.lastRequest.Width == 0 || gen.lastRequest.Height == 0 {
		t.Fatalf("ratio dimensions not resolved: %+v", gen.lastRequest)
	}

	_, data, err := fx.store.Get(context.Background(), "s1", artifacts.KindImage, 0)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	if string(data) != "img-bytes" {
		t.Fatalf("image payload = %q", data)
	}

	if narrator.entryID != "s1" || narrator.text != "Hello world" {
		t.Fatalf("narration call = %q %q", narrator.entryID, narrator.text)
	}

	remaining, err := fx.ledger.Remaining(context.Background())
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
}

func TestRunSkipsWhenQuotaExhausted(t *testing.T) {
	gen := &fakeGenerator{}
	fx := newFixture(t, 0, gen, nil)

	report, err := fx.runner.Run(context.Background(), []storyboard.Entry{{ID: "s1", Prompt: "a cat"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	result := report.Entries["s1"]
	if result.Status != services.StatusSkipped {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Reason != "quota_exhausted" {
		t.Fatalf("reason = %q", result.Reason)
	}
	if gen.submits != 0 {
		t.Fatalf("submits = %d, want 0", gen.submits)
	}
	records, err := fx.store.List(context.Background(), "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("artifacts = %d, want 0", len(records))
	}
}

func TestRunRetriesSubmissionThenRecordsExhausted(t *testing.T) {
	gen := &fakeGenerator{submitErr: services.Wrap(services.ErrTransient, "generation", "submit", "provider 502", nil)}
	fx := newFixture(t, 5, gen, nil)

	report, err := fx.runner.Run(context.Background(), []storyboard.Entry{{ID: "s1", Prompt: "a cat"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if gen.submits != 3 {
		t.Fatalf("submits = %d, want 3 (max_retries 2)", gen.submits)
	}
	result := report.Entries["s1"]
	if result.Status != services.StatusFailed {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Reason != "exhausted" {
		t.Fatalf("reason = %q", result.Reason)
	}

	remaining, err := fx.ledger.Remaining(context.Background())
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 4 {
		t.Fatalf("remaining = %d, want 4 (one reservation for the whole attempt group)", remaining)
	}
}

func TestRunSkipsUnknownModelWithoutSpendingQuota(t *testing.T) {
	gen := &fakeGenerator{}
	fx := newFixture(t, 3, gen, nil)

	report, err := fx.runner.Run(context.Background(), []storyboard.Entry{{ID: "s1", Prompt: "a cat", Model: "nope"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Entries["s1"].Status != services.StatusSkipped {
		t.Fatalf("status = %s", report.Entries["s1"].Status)
	}
	if gen.submits != 0 {
		t.Fatalf("submits = %d", gen.submits)
	}
	remaining, err := fx.ledger.Remaining(context.Background())
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("remaining = %d, want 3", remaining)
	}
}

func TestRunSkipsEmptyPromptWithoutSpendingQuota(t *testing.T) {
	gen := &fakeGenerator{}
	fx := newFixture(t, 3, gen, nil)

	report, err := fx.runner.Run(context.Background(), []storyboard.Entry{{ID: "s1", Narration: "hello"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Entries["s1"].Status != services.StatusSkipped {
		t.Fatalf("status = %s", report.Entries["s1"].Status)
	}
	if gen.submits != 0 {
		t.Fatalf("submits = %d, want 0", gen.submits)
	}
	remaining, err := fx.ledger.Remaining(context.Background())
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("remaining = %d, want 3 (skipped entries spend nothing)", remaining)
	}
}

func TestRunMarksInterruptedEntries(t *testing.T) {
	gen := &fakeGenerator{waitErr: services.Wrap(services.ErrInterrupted, "generation", "poll", "canceled", nil)}
	fx := newFixture(t, 5, gen, nil)

	entries := []storyboard.Entry{
		{ID: "s1", Prompt: "a cat"},
		{ID: "s2", Prompt: "a dog"},
	}
	report, err := fx.runner.Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, id := range []string{"s1", "s2"} {
		result := report.Entries[id]
		if result.Status != services.StatusInterrupted {
			t.Fatalf("%s status = %s", id, result.Status)
		}
		if result.Reason != "canceled" {
			t.Fatalf("%s reason = %q", id, result.Reason)
		}
	}
	if gen.submits != 1 {
		t.Fatalf("submits = %d, want 1 (second entry never reached)", gen.submits)
	}
}

func TestRunNarrationFailureFailsEntry(t *testing.T) {
	gen := &fakeGenerator{urls: []string{"https://img.example/1"}, imageData: []byte("x"), imageExt: "jpg"}
	narrator := &fakeNarrator{err: services.Wrap(services.ErrPermanent, "speech", "synthesize", "voice rejected", nil)}
	fx := newFixture(t, 5, gen, narrator)

	report, err := fx.runner.Run(context.Background(), []storyboard.Entry{{ID: "s1", Prompt: "a cat", Narration: "hello"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Entries["s1"].Status != services.StatusFailed {
		t.Fatalf("status = %s", report.Entries["s1"].Status)
	}
}

func TestRunRefusesSecondConcurrentRun(t *testing.T) {
	gen := &fakeGenerator{}
	fx := newFixture(t, 1, gen, nil)

	other := flock.New(filepath.Join(fx.cfg.Storage.DataDir, "jimeng.lock"))
	locked, err := other.TryLock()
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !locked {
		t.Fatal("test lock not acquired")
	}
	defer other.Unlock()

	_, err = fx.runner.Run(context.Background(), nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected startup error, got %v", err)
	}
}
