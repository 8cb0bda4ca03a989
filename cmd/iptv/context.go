package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"iptv/internal/alias"
	"iptv/internal/canon"
	"iptv/internal/catalog"
	"iptv/internal/config"
	"iptv/internal/fetch"
	"iptv/internal/logging"
	"iptv/internal/pipeline"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

// engine bundles the pieces shared by commands that resolve channel names.
type engine struct {
	catalog  *catalog.Catalog
	canon    *canon.Canonicalizer
	resolver *pipeline.Resolver
	fetcher  *fetch.HTTPFetcher
}

func newEngine(cfg *config.Config, logger *slog.Logger, timeout time.Duration) (*engine, error) {
	cat, err := catalog.Load(cfg.Paths.ChannelFile)
	if err != nil {
		return nil, fmt.Errorf("load channel file: %w", err)
	}
	canonicalizer, err := canon.New(canon.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &engine{
		catalog:  cat,
		canon:    canonicalizer,
		resolver: pipeline.NewResolver(aliasMap(cfg), canonicalizer, logger),
		fetcher:  newFetcher(cfg, logger, timeout),
	}, nil
}

func aliasMap(cfg *config.Config) alias.Map {
	return alias.New(cfg.Channels.Aliases)
}

func newFetcher(cfg *config.Config, logger *slog.Logger, timeout time.Duration) *fetch.HTTPFetcher {
	return fetch.New(fetch.Options{
		Timeout:       timeout,
		UserAgent:     cfg.Sources.UserAgent,
		MaxBytes:      cfg.Sources.MaxBytes,
		RatePerSecond: cfg.Sources.RatePerSecond,
		Logger:        logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
