package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lbbniu/jimeng-tts/internal/narration"
	"github.com/lbbniu/jimeng-tts/internal/services"
	"github.com/lbbniu/jimeng-tts/internal/services/speech"
	"github.com/lbbniu/jimeng-tts/internal/storyboard"
)

// tts renders narration audio and subtitles only, leaving image generation
// and the quota ledger untouched.
func newTTSCommand(ctx *commandContext) *cobra.Command {
	var voiceFlag string

	cmd := &cobra.Command{
		Use:   "tts <storyboard.json>",
		Short: "Synthesize narration audio and subtitles for every entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if voiceFlag != "" {
				cfg.Speech.Voice = voiceFlag
			}
			if err := cfg.RequireSpeechCredentials(); err != nil {
				return err
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

			synth := speech.NewClient(speech.Config{
				Key:          cfg.Speech.Key,
				Endpoint:     cfg.Speech.Endpoint,
				Voice:        cfg.Speech.Voice,
				OutputFormat: cfg.Speech.OutputFormat,
			})
			pipeline := narration.New(synth, store, cfg.Speech.Voice, cfg.Speech.MergeWords, logger)

			runCtx, cancel := signalContext(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			started := time.Now()
			var failures int
			for _, entry := range entries {
				if runCtx.Err() != nil {
					fmt.Fprintf(out, "%s: interrupted\n", entry.ID)
					continue
				}
				if entry.Narration == "" {
					fmt.Fprintf(out, "%s: skipped (no narration text)\n", entry.ID)
					continue
				}
				if renderErr := pipeline.Render(services.WithEntryID(runCtx, entry.ID), entry.ID, entry.Narration); renderErr != nil {
					failures++
					fmt.Fprintf(out, "%s: %s (%v)\n", entry.ID, services.ReportStatus(renderErr), renderErr)
					continue
				}
				fmt.Fprintf(out, "%s: succeeded\n", entry.ID)
			}
			fmt.Fprintf(out, "%d entries, %d failed (%s)\n", len(entries), failures, time.Since(started).Round(10*time.Millisecond))

			if runCtx.Err() != nil {
				return context.Canceled
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&voiceFlag, "voice", "", "Override the narration voice")
	return cmd
}
