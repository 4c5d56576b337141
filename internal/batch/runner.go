// Package batch drives a storyboard through image generation and narration,
// producing a per-entry report. Entries are processed sequentially in
// storyboard order; one entry's failure never aborts the run.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/lbbniu/jimeng-tts/internal/artifacts"
	"github.com/lbbniu/jimeng-tts/internal/config"
	"github.com/lbbniu/jimeng-tts/internal/logging"
	"github.com/lbbniu/jimeng-tts/internal/quota"
	"github.com/lbbniu/jimeng-tts/internal/retry"
	"github.com/lbbniu/jimeng-tts/internal/services"
	"github.com/lbbniu/jimeng-tts/internal/services/jimeng"
	"github.com/lbbniu/jimeng-tts/internal/storyboard"
)

// Generator is the image generation boundary the runner drives. Submit spends
// quota and is never retried here; the retry controller owns that policy.
type Generator interface {
	Submit(ctx context.Context, req jimeng.SubmitRequest) (jimeng.JobHandle, error)
	WaitForImages(ctx context.Context, handle jimeng.JobHandle) ([]string, error)
	FetchImage(ctx context.Context, imageURL string) ([]byte, string, error)
}

// Narrator renders the narration audio and subtitle artifacts for one entry.
type Narrator interface {
	Render(ctx context.Context, entryID, text string) error
}

// Runner executes a storyboard batch.
type Runner struct {
	cfg       *config.Config
	generator Generator
	narrator  Narrator
	store     *artifacts.Store
	ledger    *quota.Ledger
	retrier   *retry.Controller
	sleeper   retry.Sleeper
	logger    *slog.Logger
	lock      *flock.Flock
}

// Option customizes the runner.
type Option func(*Runner)

// WithSleeper overrides how the inter-entry pacing delay and submission
// retry delays are waited out (useful for tests).
func WithSleeper(sleeper retry.Sleeper) Option {
	return func(r *Runner) {
		if sleeper != nil {
			r.sleeper = sleeper
		}
	}
}

// New constructs a batch runner. narrator may be nil when narration is
// disabled; entries then produce images only.
func New(cfg *config.Config, generator Generator, narrator Narrator, store *artifacts.Store, ledger *quota.Ledger, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := &Runner{
		cfg:       cfg,
		generator: generator,
		narrator:  narrator,
		store:     store,
		ledger:    ledger,
		sleeper:   sleepWithContext,
		logger:    logging.NewComponentLogger(logger, "batch"),
		lock:      flock.New(filepath.Join(cfg.Storage.DataDir, "jimeng.lock")),
	}
	for _, opt := range opts {
		opt(runner)
	}
	runner.retrier = retry.New(
		cfg.Generation.MaxRetries,
		time.Duration(cfg.Generation.RetryDelay)*time.Second,
		retry.WithSleeper(runner.sleeper),
	)
	return runner
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes every entry in storyboard order and returns the report.
// A non-nil error is returned only for startup failures (lock contention,
// ledger access); per-entry failures land in the report instead.
func (r *Runner) Run(ctx context.Context, entries []storyboard.Entry) (*Report, error) {
	locked, err := r.lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "acquire lock", "cannot acquire run lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "acquire lock", "another batch run is already active", nil)
	}
	defer func() {
		if unlockErr := r.lock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release run lock", logging.Error(unlockErr))
		}
	}()

	if swept, sweepErr := r.store.SweepExpired(ctx, r.cfg.Storage.RetentionDays); sweepErr != nil {
		r.logger.Warn("retention sweep failed", logging.Error(sweepErr))
	} else if swept > 0 {
		r.logger.Info("retention sweep removed expired artifacts", logging.Int("removed", swept))
	}

	report := newReport()
	report.Started = time.Now()
	defer func() { report.Finished = time.Now() }()

	requestDelay := time.Duration(r.cfg.API.RequestDelay * float64(time.Second))
	interrupted := false

	for i, entry := range entries {
		if interrupted || ctx.Err() != nil {
			report.record(entry.ID, services.Wrap(services.ErrInterrupted, "batch", "run", "canceled before entry started", nil))
			continue
		}

		entryCtx := services.WithEntryID(ctx, entry.ID)
		entryErr := r.processEntry(entryCtx, entry)
		report.record(entry.ID, entryErr)
		r.logEntry(entryCtx, entry.ID, entryErr)

		if services.ReportStatus(entryErr) == services.StatusInterrupted {
			interrupted = true
			continue
		}

		if requestDelay > 0 && i < len(entries)-1 {
			if sleepErr := r.sleeper(ctx, requestDelay); sleepErr != nil {
				interrupted = true
			}
		}
	}

	succeeded, skipped, failed, interruptedCount := report.Counts()
	r.logger.Info("batch complete",
		logging.Int("entries", len(entries)),
		logging.Int("succeeded", succeeded),
		logging.Int("skipped", skipped),
		logging.Int("failed", failed),
		logging.Int("interrupted", interruptedCount))
	return report, nil
}

// processEntry runs one storyboard entry end to end. Quota is reserved once,
// before the first submission attempt, so retries never double-spend.
func (r *Runner) processEntry(ctx context.Context, entry storyboard.Entry) error {
	modelID, model, ok := r.cfg.ResolveModel(entry.Model)
	if !ok {
		return services.Wrap(services.ErrConfiguration, "batch", "resolve model", fmt.Sprintf("unknown model %q", entry.Model), nil)
	}
	ratio, ok := r.cfg.ResolveRatio(model, entry.Ratio)
	if !ok {
		return services.Wrap(services.ErrConfiguration, "batch", "resolve ratio", fmt.Sprintf("unknown ratio %q for model %s", entry.Ratio, modelID), nil)
	}
	// Anything the provider would reject outright must be caught here, before
	// the quota reservation, so a skipped entry never spends a credit.
	if entry.Prompt == "" {
		return services.Wrap(services.ErrConfiguration, "batch", "validate entry", "entry has no prompt", nil)
	}

	reserved, err := r.ledger.TryConsume(ctx, r.cfg.Quota.CostPerEntry)
	if err != nil {
		return services.Wrap(services.ErrStorage, "batch", "reserve quota", "quota ledger access failed", err)
	}
	if !reserved {
		return services.Wrap(services.ErrQuotaExhausted, "batch", "reserve quota", "daily quota exhausted", nil)
	}

	request := jimeng.SubmitRequest{
		Prompt:   entry.Prompt,
		ModelKey: model.RequestKey,
		Ratio:    ratioID(r.cfg, entry.Ratio),
		Width:    ratio.Width,
		Height:   ratio.Height,
	}

	var handle jimeng.JobHandle
	err = r.retrier.Do(ctx, "submit generation", func(ctx context.Context, attempt int) error {
		var submitErr error
		handle, submitErr = r.generator.Submit(ctx, request)
		return submitErr
	})
	if err != nil {
		return err
	}

	urls, err := r.generator.WaitForImages(ctx, handle)
	if err != nil {
		return err
	}

	for seq, imageURL := range urls {
		data, ext, fetchErr := r.generator.FetchImage(ctx, imageURL)
		if fetchErr != nil {
			return fetchErr
		}
		if _, putErr := artifacts.PutWithRetry(ctx, r.store, entry.ID, artifacts.KindImage, seq, ext, data); putErr != nil {
			return services.Wrap(services.ErrStorage, "batch", "store image", fmt.Sprintf("image %d", seq), putErr)
		}
	}

	if r.narrator != nil && entry.Narration != "" {
		if narrErr := r.narrator.Render(ctx, entry.ID, entry.Narration); narrErr != nil {
			return narrErr
		}
	}
	return nil
}

func (r *Runner) logEntry(ctx context.Context, entryID string, err error) {
	status := services.ReportStatus(err)
	attrs := []logging.Attr{
		logging.String(logging.FieldEntryID, entryID),
		logging.String("status", string(status)),
	}
	if err != nil {
		attrs = append(attrs, logging.String("reason", reason(err)))
	}
	switch status {
	case services.StatusSucceeded:
		r.logger.InfoContext(ctx, "entry complete", logging.Args(attrs...)...)
	default:
		r.logger.WarnContext(ctx, "entry did not complete", logging.Args(attrs...)...)
	}
}

func ratioID(cfg *config.Config, requested string) string {
	if requested == "" {
		return cfg.Params.DefaultRatio
	}
	return requested
}
