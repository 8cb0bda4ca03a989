package config

import (
	"fmt"
	"os"
	"strings"
)

// applyEnv layers the historical environment overrides on top of file values.
func (c *Config) applyEnv() {
	if value, ok := lookupEnv("IPTV_CHANNEL"); ok {
		c.Paths.ChannelFile = value
	}
	if value, ok := lookupEnv("IPTV_DIST"); ok {
		c.Paths.DistDir = value
	}
	if value, ok := lookupEnv("IPTV_TMP"); ok {
		c.Paths.TmpDir = value
	}
	if _, ok := os.LookupEnv("DEBUG"); ok {
		c.Diagnostics.Enabled = true
		c.Logging.Level = "debug"
	}
	if value, ok := lookupEnv("EPG_SOURCE"); ok {
		c.EPG.Source = value
	}
	if value, ok := lookupEnv("EPG_CHANNEL_MAP"); ok {
		c.EPG.MapFile = value
	}
	if _, ok := lookupEnv("EPG_GZ_DISABLED"); ok {
		c.EPG.Gzip = false
	}
	if value, ok := lookupEnv("NTFY_TOPIC"); ok && c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = value
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeChannels()
	c.normalizePolicy()
	c.normalizeExport()
	if err := c.normalizeEPG(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ChannelFile) == "" {
		c.Paths.ChannelFile = defaultChannelFile
	}
	if c.Paths.ChannelFile, err = expandPath(c.Paths.ChannelFile); err != nil {
		return fmt.Errorf("paths.channel_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.DistDir) == "" {
		c.Paths.DistDir = defaultDistDir
	}
	if c.Paths.DistDir, err = expandPath(c.Paths.DistDir); err != nil {
		return fmt.Errorf("paths.dist_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TmpDir) == "" {
		c.Paths.TmpDir = defaultTmpDir
	}
	if c.Paths.TmpDir, err = expandPath(c.Paths.TmpDir); err != nil {
		return fmt.Errorf("paths.tmp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
			return fmt.Errorf("paths.log_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSources() {
	c.Sources.URLs = dedupeTrimmed(c.Sources.URLs)
	if c.Sources.RequestTimeout <= 0 {
		c.Sources.RequestTimeout = defaultRequestTimeout
	}
	if c.Sources.Concurrency <= 0 {
		c.Sources.Concurrency = defaultConcurrency
	}
	if c.Sources.RatePerSecond < 0 {
		c.Sources.RatePerSecond = 0
	}
	c.Sources.UserAgent = strings.TrimSpace(c.Sources.UserAgent)
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = defaultUserAgent
	}
	if c.Sources.MaxBytes <= 0 {
		c.Sources.MaxBytes = defaultMaxBytes
	}
}

func (c *Config) normalizeChannels() {
	c.Channels.Aliases = trimMap(c.Channels.Aliases)
}

func (c *Config) normalizePolicy() {
	c.Policy.Deny = dedupeTrimmed(c.Policy.Deny)
	c.Policy.Allow = dedupeTrimmed(c.Policy.Allow)
}

func (c *Config) normalizeExport() {
	c.Export.LogoURLPrefix = strings.TrimRight(strings.TrimSpace(c.Export.LogoURLPrefix), "/")
	c.Export.CategoryLogos = trimMap(c.Export.CategoryLogos)
	c.Export.EPGURLs = dedupeTrimmed(c.Export.EPGURLs)
	c.Export.InfoURL = strings.TrimSpace(c.Export.InfoURL)
	if c.Export.InfoURL == "" {
		c.Export.InfoURL = defaultInfoURL
	}
}

func (c *Config) normalizeEPG() error {
	c.EPG.Source = strings.TrimSpace(c.EPG.Source)
	if c.EPG.Source == "" {
		c.EPG.Source = defaultEPGSource
	}
	if strings.TrimSpace(c.EPG.MapFile) != "" {
		var err error
		if c.EPG.MapFile, err = expandPath(c.EPG.MapFile); err != nil {
			return fmt.Errorf("epg.map_file: %w", err)
		}
	}
	c.EPG.Aliases = trimMap(c.EPG.Aliases)
	if c.EPG.Timeout <= 0 {
		c.EPG.Timeout = defaultEPGTimeout
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func dedupeTrimmed(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func trimMap(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
