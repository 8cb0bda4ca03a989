package config

import (
	"errors"
	"fmt"
	"strings"

	"iptv/internal/alias"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateChannels(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ChannelFile) == "" {
		return errors.New("paths.channel_file must be set")
	}
	if c.Paths.DistDir == c.Paths.TmpDir {
		return fmt.Errorf("paths.dist_dir and paths.tmp_dir must differ (both %q)", c.Paths.DistDir)
	}
	return nil
}

func (c *Config) validateSources() error {
	if c.Sources.Concurrency < 1 {
		return fmt.Errorf("sources.concurrency must be at least 1 (got %d)", c.Sources.Concurrency)
	}
	if c.Sources.RequestTimeout <= 0 {
		return fmt.Errorf("sources.request_timeout must be positive (got %d)", c.Sources.RequestTimeout)
	}
	for _, url := range c.Sources.URLs {
		if strings.ContainsAny(url, " \t") {
			return fmt.Errorf("sources.urls: %q contains whitespace", url)
		}
	}
	return nil
}

func (c *Config) validateChannels() error {
	if c.Channels.Limit < 0 {
		return fmt.Errorf("channels.limit must be zero (unlimited) or positive (got %d)", c.Channels.Limit)
	}
	if chains := alias.New(c.Channels.Aliases).Chains(); len(chains) > 0 {
		return fmt.Errorf("channels.aliases: multi-hop aliases are not resolved, map directly to the final name: %s",
			strings.Join(chains, ", "))
	}
	return nil
}

func (c *Config) validatePolicy() error {
	if c.Policy.AllowBonus < 0 {
		return fmt.Errorf("policy.allow_bonus must not be negative (got %d)", c.Policy.AllowBonus)
	}
	return nil
}

func (c *Config) validateExport() error {
	if !c.Export.M3U && !c.Export.TXT && !c.Export.JSON {
		return errors.New("export: at least one of m3u, txt or json must be enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
