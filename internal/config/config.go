package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Params selects which model and aspect ratio are used when the storyboard
// entry or CLI flags do not override them.
type Params struct {
	DefaultModel string                      `toml:"default_model"`
	DefaultRatio string                      `toml:"default_ratio"`
	Models       map[string]Model            `toml:"models"`
	RatioTables  map[string]map[string]Ratio `toml:"ratio_tables"`
}

// Model maps a user-facing model id to the provider request key and the ratio
// table that holds its output dimensions.
type Model struct {
	RequestKey string `toml:"request_key"`
	RatioTable string `toml:"ratio_table"`
}

// Ratio holds the pixel dimensions for one aspect ratio entry.
type Ratio struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Generation controls submission retries and polling.
type Generation struct {
	MaxRetries   int `toml:"max_retries"`
	RetryDelay   int `toml:"retry_delay"`
	Timeout      int `toml:"timeout"`
	PollInterval int `toml:"poll_interval"`
}

// API contains the image-generation endpoint and its opaque credentials.
// Cookie, sign, ms_token, and a_bogus are passed through to the provider
// unmodified; the client never inspects or derives them.
type API struct {
	BaseURL      string  `toml:"base_url"`
	AID          int     `toml:"aid"`
	AppVersion   string  `toml:"app_version"`
	RequestDelay float64 `toml:"request_delay"`
	Cookie       string  `toml:"cookie"`
	Sign         string  `toml:"sign"`
	MsToken      string  `toml:"ms_token"`
	ABogus       string  `toml:"a_bogus"`
}

// Speech contains the speech-synthesis service settings.
type Speech struct {
	Key          string `toml:"key"`
	Endpoint     string `toml:"endpoint"`
	Voice        string `toml:"voice"`
	OutputFormat string `toml:"output_format"`
	MergeWords   int    `toml:"merge_words"`
}

// Quota configures the daily generation credit allowance.
type Quota struct {
	DailyAllowance int `toml:"daily_allowance"`
	CostPerEntry   int `toml:"cost_per_entry"`
}

// Storage configures artifact persistence and retention.
type Storage struct {
	DataDir       string `toml:"data_dir"`
	OutputDir     string `toml:"output_dir"`
	RetentionDays int    `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for a jimeng run.
//
// Configuration sections by subsystem:
//   - Params: model and ratio selection tables
//   - Generation: retry counts, poll interval, overall deadline
//   - API: image-generation endpoint, pacing, opaque credentials
//   - Speech: speech-synthesis service and voice
//   - Quota: daily credit allowance and per-entry cost
//   - Storage: artifact data dir, output dir, retention
//   - Logging: log format and level
type Config struct {
	Params     Params     `toml:"params"`
	Generation Generation `toml:"generation"`
	API        API        `toml:"api"`
	Speech     Speech     `toml:"speech"`
	Quota      Quota      `toml:"quota"`
	Storage    Storage    `toml:"storage"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/jimeng/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. Unknown keys in the
// file are ignored; validation failures abort before any work is attempted.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("jimeng.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDir, c.Storage.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ResolveModel normalizes a model id (accepting legacy shorthands) and returns
// its provider configuration. ok is false when the id is unknown.
func (c *Config) ResolveModel(id string) (string, Model, bool) {
	normalized := normalizeModelID(id)
	if normalized == "" {
		normalized = c.Params.DefaultModel
	}
	model, ok := c.Params.Models[normalized]
	return normalized, model, ok
}

// ResolveRatio looks up the pixel dimensions for a ratio id within the ratio
// table referenced by the given model. ok is false when either the table or
// the ratio id is unknown.
func (c *Config) ResolveRatio(model Model, ratioID string) (Ratio, bool) {
	if strings.TrimSpace(ratioID) == "" {
		ratioID = c.Params.DefaultRatio
	}
	table, ok := c.Params.RatioTables[model.RatioTable]
	if !ok {
		return Ratio{}, false
	}
	ratio, ok := table[ratioID]
	return ratio, ok
}

// Legacy shorthands accepted for model ids.
var modelAliases = map[string]string{
	"20":    "2.0",
	"21":    "2.1",
	"20p":   "2.0p",
	"xlpro": "xl",
}

func normalizeModelID(id string) string {
	trimmed := strings.ToLower(strings.TrimSpace(id))
	if alias, ok := modelAliases[trimmed]; ok {
		return alias
	}
	return trimmed
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
