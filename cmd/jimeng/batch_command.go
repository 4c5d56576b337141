package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lbbniu/jimeng-tts/internal/batch"
	"github.com/lbbniu/jimeng-tts/internal/config"
	"github.com/lbbniu/jimeng-tts/internal/narration"
	"github.com/lbbniu/jimeng-tts/internal/services/jimeng"
	"github.com/lbbniu/jimeng-tts/internal/services/speech"
	"github.com/lbbniu/jimeng-tts/internal/storyboard"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var modelFlag string
	var ratioFlag string
	var voiceFlag string
	var timeoutFlag int
	var noNarration bool

	cmd := &cobra.Command{
		Use:   "batch <storyboard.json>",
		Short: "Render every storyboard entry: images, narration audio, and subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyOverrides(cfg, modelFlag, ratioFlag, voiceFlag, timeoutFlag); err != nil {
				return err
			}
			if err := cfg.RequireImageCredentials(); err != nil {
				return err
			}
			if !noNarration {
				if err := cfg.RequireSpeechCredentials(); err != nil {
					return err
				}
			}

			entries, err := storyboard.Load(args[0])
			if err != nil {
				return fmt.Errorf("load storyboard: %w", err)
			}

			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			defer store.Close()
			ledger, err := ctx.openLedger()
			if err != nil {
				return fmt.Errorf("open quota ledger: %w", err)
			}
			defer ledger.Close()

			generator := jimeng.NewClient(jimeng.Config{
				BaseURL:      cfg.API.BaseURL,
				AID:          cfg.API.AID,
				AppVersion:   cfg.API.AppVersion,
				Cookie:       cfg.API.Cookie,
				Sign:         cfg.API.Sign,
				MsToken:      cfg.API.MsToken,
				ABogus:       cfg.API.ABogus,
				PollInterval: time.Duration(cfg.Generation.PollInterval) * time.Second,
				Timeout:      time.Duration(cfg.Generation.Timeout) * time.Second,
			})

			var narrator batch.Narrator
			if !noNarration {
				synth := speech.NewClient(speech.Config{
					Key:          cfg.Speech.Key,
					Endpoint:     cfg.Speech.Endpoint,
					Voice:        cfg.Speech.Voice,
					OutputFormat: cfg.Speech.OutputFormat,
				})
				narrator = narration.New(synth, store, cfg.Speech.Voice, cfg.Speech.MergeWords, logger)
			}

			runner := batch.New(cfg, generator, narrator, store, ledger, logger)

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			report, err := runner.Run(runCtx, entries)
			if err != nil {
				return err
			}
			writeReport(cmd.OutOrStdout(), report)

			if runCtx.Err() != nil {
				return context.Canceled
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelFlag, "model", "", "Override the default generation model id")
	cmd.Flags().StringVar(&ratioFlag, "ratio", "", "Override the default aspect ratio id")
	cmd.Flags().StringVar(&voiceFlag, "voice", "", "Override the narration voice")
	cmd.Flags().IntVar(&timeoutFlag, "timeout", 0, "Override the per-job polling deadline in seconds")
	cmd.Flags().BoolVar(&noNarration, "no-narration", false, "Skip narration audio and subtitles")
	return cmd
}

func applyOverrides(cfg *config.Config, model, ratio, voice string, timeout int) error {
	if model != "" {
		id, resolved, ok := cfg.ResolveModel(model)
		if !ok {
			return fmt.Errorf("unknown model %q", model)
		}
		cfg.Params.DefaultModel = id
		if ratio != "" {
			if _, ok := cfg.ResolveRatio(resolved, ratio); !ok {
				return fmt.Errorf("unknown ratio %q for model %s", ratio, id)
			}
		}
	}
	if ratio != "" {
		cfg.Params.DefaultRatio = ratio
	}
	if voice != "" {
		cfg.Speech.Voice = voice
	}
	if timeout > 0 {
		cfg.Generation.Timeout = timeout
	}
	return nil
}
