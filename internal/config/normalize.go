package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeParams()
	c.normalizeAPI()
	c.normalizeSpeech()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = defaultDataDir
	}
	if c.Storage.DataDir, err = expandPath(c.Storage.DataDir); err != nil {
		return fmt.Errorf("storage.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Storage.OutputDir) == "" {
		c.Storage.OutputDir = defaultOutputDir
	}
	if c.Storage.OutputDir, err = expandPath(c.Storage.OutputDir); err != nil {
		return fmt.Errorf("storage.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeParams() {
	c.Params.DefaultModel = normalizeModelID(c.Params.DefaultModel)
	c.Params.DefaultRatio = strings.ReplaceAll(strings.TrimSpace(c.Params.DefaultRatio), "：", ":")
}

func (c *Config) normalizeAPI() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	c.API.Cookie = strings.TrimSpace(c.API.Cookie)
	c.API.Sign = strings.TrimSpace(c.API.Sign)
	c.API.MsToken = strings.TrimSpace(c.API.MsToken)
	c.API.ABogus = strings.TrimSpace(c.API.ABogus)
}

func (c *Config) normalizeSpeech() {
	c.Speech.Key = strings.TrimSpace(c.Speech.Key)
	c.Speech.Endpoint = strings.TrimRight(strings.TrimSpace(c.Speech.Endpoint), "/")
	if strings.TrimSpace(c.Speech.Voice) == "" {
		c.Speech.Voice = defaultVoice
	}
	if strings.TrimSpace(c.Speech.OutputFormat) == "" {
		c.Speech.OutputFormat = defaultOutputFormat
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
