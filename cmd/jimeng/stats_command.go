package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lbbniu/jimeng-tts/internal/artifacts"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show quota balance and artifact store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			ledger, err := ctx.openLedger()
			if err != nil {
				return fmt.Errorf("open quota ledger: %w", err)
			}
			defer ledger.Close()
			remaining, err := ledger.Remaining(cmd.Context())
			if err != nil {
				return fmt.Errorf("read quota balance: %w", err)
			}

			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			defer store.Close()
			stats, err := store.Summarize(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				[][]string{
					{"Default model", cfg.Params.DefaultModel},
					{"Default ratio", cfg.Params.DefaultRatio},
					{"Voice", cfg.Speech.Voice},
					{"Data dir", cfg.Storage.DataDir},
					{"Retention days", strconv.Itoa(cfg.Storage.RetentionDays)},
				},
			))
			fmt.Fprintln(out, renderTable(
				[]string{"Quota", "Credits"},
				[][]string{
					{"Daily allowance", strconv.Itoa(ledger.Allowance())},
					{"Remaining today", strconv.Itoa(remaining)},
				},
				2,
			))

			kindRows := [][]string{
				{"images", strconv.Itoa(stats.ByKind[artifacts.KindImage])},
				{"audio", strconv.Itoa(stats.ByKind[artifacts.KindAudio])},
				{"subtitles", strconv.Itoa(stats.ByKind[artifacts.KindSubtitle])},
				{"total", strconv.Itoa(stats.Count)},
				{"bytes", strconv.FormatInt(stats.TotalBytes, 10)},
			}
			fmt.Fprintln(out, renderTable([]string{"Artifacts", "Count"}, kindRows, 2))
			return nil
		},
	}
}
