package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// download exports persisted artifacts from the store into the output
// directory so completed runs can be collected without re-generating.
func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var entryFlag string
	var outFlag string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Copy stored artifacts into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			outputDir := cfg.Storage.OutputDir
			if outFlag != "" {
				outputDir = outFlag
			}
			if outputDir == "" {
				return fmt.Errorf("no output directory: set storage.output_dir or pass --out")
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), entryFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No artifacts to download")
				return nil
			}

			var total int64
			for _, rec := range records {
				_, data, err := store.Get(cmd.Context(), rec.EntryID, rec.Kind, rec.Seq)
				if err != nil {
					return err
				}
				target := filepath.Join(outputDir, rec.Filename)
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}
				total += int64(len(data))
			}
			fmt.Fprintf(out, "Wrote %d artifacts (%d bytes) to %s\n", len(records), total, outputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&entryFlag, "entry", "", "Only download artifacts for this entry id")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Destination directory (defaults to storage.output_dir)")
	return cmd
}
