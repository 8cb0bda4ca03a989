package config

const (
	defaultConfigPath       = "~/.config/iptv/config.toml"
	defaultChannelFile      = "channel.txt"
	defaultDistDir          = "dist"
	defaultTmpDir           = "tmp"
	defaultStateDir         = "~/.local/share/iptv"
	defaultRequestTimeout   = 10
	defaultConcurrency      = 4
	defaultMaxBytes         = 32 << 20
	defaultUserAgent        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	defaultLineLimit        = 10
	defaultAllowBonus       = 100
	defaultInfoURL          = "https://gcalic.v.myalicdn.com/gc/wgw05_1/index.m3u8?contentid=2820180516001"
	defaultEPGSource        = "http://epg.51zmt.top:8000/e.xml.gz"
	defaultEPGMapFile       = "epg.txt"
	defaultEPGTimeout       = 60
	defaultHistoryKeepRuns  = 100
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ChannelFile: defaultChannelFile,
			DistDir:     defaultDistDir,
			TmpDir:      defaultTmpDir,
			StateDir:    defaultStateDir,
		},
		Sources: Sources{
			RequestTimeout: defaultRequestTimeout,
			Concurrency:    defaultConcurrency,
			UserAgent:      defaultUserAgent,
			MaxBytes:       defaultMaxBytes,
		},
		Channels: Channels{
			Limit:      defaultLineLimit,
			ExportIPv6: true,
		},
		Policy: Policy{
			AllowBonus: defaultAllowBonus,
		},
		Export: Export{
			M3U:     true,
			TXT:     true,
			JSON:    true,
			InfoURL: defaultInfoURL,
		},
		EPG: EPG{
			Source:  defaultEPGSource,
			MapFile: defaultEPGMapFile,
			Gzip:    true,
			Timeout: defaultEPGTimeout,
		},
		History: History{
			Enabled:  true,
			KeepRuns: defaultHistoryKeepRuns,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
