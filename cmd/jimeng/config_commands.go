package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lbbniu/jimeng-tts/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set api.cookie, api.sign, and speech.key before running a batch.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults shown")
			}

			rows := [][]string{
				{"params.default_model", cfg.Params.DefaultModel},
				{"params.default_ratio", cfg.Params.DefaultRatio},
				{"generation.max_retries", strconv.Itoa(cfg.Generation.MaxRetries)},
				{"generation.retry_delay", strconv.Itoa(cfg.Generation.RetryDelay)},
				{"generation.timeout", strconv.Itoa(cfg.Generation.Timeout)},
				{"generation.poll_interval", strconv.Itoa(cfg.Generation.PollInterval)},
				{"api.base_url", cfg.API.BaseURL},
				{"api.request_delay", strconv.FormatFloat(cfg.API.RequestDelay, 'f', -1, 64)},
				{"api.cookie", maskSecret(cfg.API.Cookie)},
				{"api.sign", maskSecret(cfg.API.Sign)},
				{"speech.endpoint", cfg.Speech.Endpoint},
				{"speech.key", maskSecret(cfg.Speech.Key)},
				{"speech.voice", cfg.Speech.Voice},
				{"speech.merge_words", strconv.Itoa(cfg.Speech.MergeWords)},
				{"quota.daily_allowance", strconv.Itoa(cfg.Quota.DailyAllowance)},
				{"quota.cost_per_entry", strconv.Itoa(cfg.Quota.CostPerEntry)},
				{"storage.data_dir", cfg.Storage.DataDir},
				{"storage.output_dir", cfg.Storage.OutputDir},
				{"storage.retention_days", strconv.Itoa(cfg.Storage.RetentionDays)},
				{"logging.level", cfg.Logging.Level},
				{"logging.format", cfg.Logging.Format},
			}
			fmt.Fprintln(out, renderTable([]string{"Key", "Value"}, rows))
			return nil
		},
	}
}

func maskSecret(value string) string {
	if value == "" {
		return "(unset)"
	}
	return "(set)"
}
