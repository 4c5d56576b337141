// Package narration renders the audio side of a storyboard entry: speech
// synthesis for the narration text plus a time-aligned subtitle track,
// both persisted through the artifact store.
package narration

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lbbniu/jimeng-tts/internal/artifacts"
	"github.com/lbbniu/jimeng-tts/internal/logging"
	"github.com/lbbniu/jimeng-tts/internal/services"
	"github.com/lbbniu/jimeng-tts/internal/services/speech"
	"github.com/lbbniu/jimeng-tts/internal/subtitles"
)

// Synthesizer is the speech service boundary.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (speech.Result, error)
}

// Pipeline turns narration text into audio and subtitle artifacts.
type Pipeline struct {
	synth      Synthesizer
	store      *artifacts.Store
	voice      string
	mergeWords int
	logger     *slog.Logger
}

// New builds a narration pipeline. mergeWords controls how many words land
// in one subtitle cue.
func New(synth Synthesizer, store *artifacts.Store, voice string, mergeWords int, logger *slog.Logger) *Pipeline {
	if mergeWords <= 0 {
		mergeWords = 10
	}
	return &Pipeline{
		synth:      synth,
		store:      store,
		voice:      voice,
		mergeWords: mergeWords,
		logger:     logging.NewComponentLogger(logger, "narration"),
	}
}

// Render synthesizes the narration and persists the audio and subtitle
// artifacts for the entry. Entries without narration text are a no-op.
func (p *Pipeline) Render(ctx context.Context, entryID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	log := logging.WithContext(ctx, p.logger)

	result, err := p.synth.Synthesize(ctx, text, p.voice)
	if err != nil {
		return err
	}

	events := make([]subtitles.Event, 0, len(result.Events))
	for _, ev := range result.Events {
		events = append(events, subtitles.Event{
			TextOffset: ev.TextOffset,
			Text:       ev.Text,
			StartMS:    ev.OffsetMS,
			EndMS:      ev.OffsetMS + ev.DurationMS,
		})
	}

	cues := subtitles.Build(text, events, result.DurationMS, p.mergeWords)

	if _, err := artifacts.PutWithRetry(ctx, p.store, entryID, artifacts.KindAudio, 0, result.Ext, result.Audio); err != nil {
		return services.Wrap(services.ErrStorage, "narration", "store audio", "", err)
	}
	if len(cues) > 0 {
		srt := subtitles.ComposeSRT(cues)
		if _, err := artifacts.PutWithRetry(ctx, p.store, entryID, artifacts.KindSubtitle, 0, "srt", []byte(srt)); err != nil {
			return services.Wrap(services.ErrStorage, "narration", "store subtitle", "", err)
		}
	}

	log.Info("narration rendered",
		logging.Int("audio_bytes", len(result.Audio)),
		logging.Int("cues", len(cues)),
		logging.Int64("duration_ms", result.DurationMS))
	return nil
}
