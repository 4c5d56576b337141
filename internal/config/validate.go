package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. It runs before any quota is
// consumed or network call attempted.
func (c *Config) Validate() error {
	if err := c.validateParams(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateParams() error {
	if len(c.Params.Models) == 0 {
		return errors.New("params.models must contain at least one model")
	}
	model, ok := c.Params.Models[c.Params.DefaultModel]
	if !ok {
		return fmt.Errorf("params.default_model %q is not present in params.models", c.Params.DefaultModel)
	}
	for id, m := range c.Params.Models {
		if strings.TrimSpace(m.RequestKey) == "" {
			return fmt.Errorf("params.models.%q.request_key must be set", id)
		}
		table, ok := c.Params.RatioTables[m.RatioTable]
		if !ok {
			return fmt.Errorf("params.models.%q references unknown ratio_table %q", id, m.RatioTable)
		}
		for ratioID, ratio := range table {
			if ratio.Width <= 0 || ratio.Height <= 0 {
				return fmt.Errorf("params.ratio_tables.%q.%q must have positive width and height", m.RatioTable, ratioID)
			}
		}
	}
	if _, ok := c.Params.RatioTables[model.RatioTable][c.Params.DefaultRatio]; !ok {
		return fmt.Errorf("params.default_ratio %q is not present in ratio_table %q", c.Params.DefaultRatio, model.RatioTable)
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if err := ensurePositiveMap(map[string]int{
		"generation.retry_delay":   c.Generation.RetryDelay,
		"generation.timeout":       c.Generation.Timeout,
		"generation.poll_interval": c.Generation.PollInterval,
	}); err != nil {
		return err
	}
	if c.Generation.MaxRetries < 0 {
		return errors.New("generation.max_retries must be >= 0")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must be set")
	}
	if c.API.RequestDelay < 0 {
		return errors.New("api.request_delay must be >= 0")
	}
	return nil
}

func (c *Config) validateQuota() error {
	if c.Quota.DailyAllowance < 0 {
		return errors.New("quota.daily_allowance must be >= 0")
	}
	if c.Quota.CostPerEntry <= 0 {
		return errors.New("quota.cost_per_entry must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.RetentionDays <= 0 {
		return errors.New("storage.retention_days must be positive")
	}
	return nil
}

// RequireImageCredentials verifies the opaque provider credentials are present.
// Called by commands that submit generation jobs, not by Load, so read-only
// modes (stats, download of cached artifacts) work without them.
func (c *Config) RequireImageCredentials() error {
	if c.API.Cookie == "" || c.API.Sign == "" {
		return errors.New("api.cookie and api.sign must be set to submit generation jobs")
	}
	return nil
}

// RequireSpeechCredentials verifies the speech service is configured.
func (c *Config) RequireSpeechCredentials() error {
	if c.Speech.Key == "" || c.Speech.Endpoint == "" {
		return errors.New("speech.key and speech.endpoint must be set to synthesize narration")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
