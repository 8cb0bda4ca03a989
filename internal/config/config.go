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

// Paths contains input and output locations.
type Paths struct {
	ChannelFile string `toml:"channel_file"`
	DistDir     string `toml:"dist_dir"`
	TmpDir      string `toml:"tmp_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Sources lists the playlist documents to aggregate and how to fetch them.
type Sources struct {
	URLs           []string `toml:"urls"`
	RequestTimeout int      `toml:"request_timeout"`
	Concurrency    int      `toml:"concurrency"`
	RatePerSecond  float64  `toml:"rate_per_second"`
	UserAgent      string   `toml:"user_agent"`
	MaxBytes       int64    `toml:"max_bytes"`
}

// Channels controls name resolution and per-channel export limits.
type Channels struct {
	Limit      int               `toml:"limit"`
	ExportIPv6 bool              `toml:"export_ipv6"`
	Aliases    map[string]string `toml:"aliases"`
}

// Policy contains the substring deny/allow lists applied to stream URIs.
type Policy struct {
	Deny       []string `toml:"deny"`
	Allow      []string `toml:"allow"`
	AllowBonus int      `toml:"allow_bonus"`
}

// Export contains configuration for the generated playlist files.
type Export struct {
	M3U           bool              `toml:"m3u"`
	TXT           bool              `toml:"txt"`
	JSON          bool              `toml:"json"`
	LogoURLPrefix string            `toml:"logo_url_prefix"`
	CategoryLogos map[string]string `toml:"category_logos"`
	EPGURLs       []string          `toml:"epg_urls"`
	DisableInfo   bool              `toml:"disable_info"`
	InfoURL       string            `toml:"info_url"`
}

// EPG contains configuration for the program-guide utility.
type EPG struct {
	Source  string            `toml:"source"`
	MapFile string            `toml:"map_file"`
	Aliases map[string]string `toml:"aliases"`
	Gzip    bool              `toml:"gzip"`
	Timeout int               `toml:"timeout"`
}

// Diagnostics toggles raw per-source channel tracking.
type Diagnostics struct {
	Enabled bool `toml:"enabled"`
}

// History contains configuration for the run history database.
type History struct {
	Enabled  bool `toml:"enabled"`
	KeepRuns int  `toml:"keep_runs"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for a run.
//
// Configuration sections by subsystem:
//   - Paths: catalog file, export and scratch directories
//   - Sources: playlist URLs and fetch limits
//   - Channels: alias table, URI cutoff and address-family toggle
//   - Policy: deny/allow substring lists
//   - Export: playlist formats and decorations
//   - EPG: program guide source and name map
//   - Diagnostics: raw source tracking
//   - History: sqlite run history
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Sources       Sources       `toml:"sources"`
	Channels      Channels      `toml:"channels"`
	Policy        Policy        `toml:"policy"`
	Export        Export        `toml:"export"`
	EPG           EPG           `toml:"epg"`
	Diagnostics   Diagnostics   `toml:"diagnostics"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		if value, ok := os.LookupEnv("IPTV_CONFIG"); ok {
			path = strings.TrimSpace(value)
		}
	}
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("iptv.toml")
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

// EnsureDirectories creates the export, scratch and state directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DistDir, c.Paths.TmpDir, c.Paths.StateDir}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
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
