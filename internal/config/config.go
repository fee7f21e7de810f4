package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the root of the TOML configuration file.
type Config struct {
	Servers  []Server `toml:"servers"`
	UI       UI       `toml:"ui"`
	DCC      DCC      `toml:"dcc"`
	Behavior Behavior `toml:"behavior"`
	Logging  Logging  `toml:"logging"`
	CTCP     CTCP     `toml:"ctcp"`
}

// Server configures one IRC network entry.
type Server struct {
	Name               string   `toml:"name"`
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	TLS                bool     `toml:"tls"`
	Nickname           string   `toml:"nickname"`
	Username           string   `toml:"username"`
	Realname           string   `toml:"realname"`
	Password           string   `toml:"password"`
	NickPassword       string   `toml:"nick_password"`
	SASLMechanism      string   `toml:"sasl_mechanism"`
	Channels           []string `toml:"channels"`
	AutoConnect        bool     `toml:"auto_connect"`
	AltNicks           []string `toml:"alt_nicks"`
	QuitMessage        string   `toml:"quit_message"`
	PartMessage        string   `toml:"part_message"`
	AcceptInvalidCerts bool     `toml:"accept_invalid_certs"`
}

type UI struct {
	// TimestampFormat is a Go reference-time layout, e.g. "15:04".
	TimestampFormat string `toml:"timestamp_format"`
	MaxScrollback   int    `toml:"max_scrollback"`
}

type DCC struct {
	DownloadDir      string `toml:"download_dir"`
	MaxFileSize      uint64 `toml:"max_file_size"`
	RejectPrivateIPs bool   `toml:"reject_private_ips"`
}

type Behavior struct {
	AutoRejoinOnKick bool   `toml:"auto_rejoin_on_kick"`
	RejoinDelaySecs  uint64 `toml:"rejoin_delay_secs"`
	BellOnMention    bool   `toml:"bell_on_mention"`
	BellOnPM         bool   `toml:"bell_on_pm"`
	QuitMessage      string `toml:"quit_message"`
	PartMessage      string `toml:"part_message"`
}

type Logging struct {
	Enabled     bool   `toml:"enabled"`
	Dir         string `toml:"dir"`
	LogChannels bool   `toml:"log_channels"`
	LogQueries  bool   `toml:"log_queries"`
}

type CTCP struct {
	ReplyVersion  bool   `toml:"reply_version"`
	ReplyPing     bool   `toml:"reply_ping"`
	ReplyTime     bool   `toml:"reply_time"`
	ReplyFinger   bool   `toml:"reply_finger"`
	VersionString string `toml:"version_string"`
	FingerString  string `toml:"finger_string"`
}

// Default returns a configuration that works out of the box: a directory of
// well-known networks, none of them auto-connected.
func Default() Config {
	networks := []struct {
		name, host string
	}{
		{"libera", "irc.libera.chat"},
		{"oftc", "irc.oftc.net"},
		{"efnet", "irc.efnet.org"},
		{"dalnet", "irc.dal.net"},
		{"rizon", "irc.rizon.net"},
		{"quakenet", "irc.quakenet.org"},
		{"snoonet", "irc.snoonet.org"},
		{"hackint", "irc.hackint.org"},
	}
	servers := make([]Server, 0, len(networks))
	for _, n := range networks {
		servers = append(servers, Server{
			Name:               n.name,
			Host:               n.host,
			Port:               6697,
			TLS:                true,
			Nickname:           "driftwood",
			AcceptInvalidCerts: false,
		})
	}
	return Config{
		Servers: servers,
		UI: UI{
			TimestampFormat: "15:04",
			MaxScrollback:   10000,
		},
		DCC: DCC{
			DownloadDir:      "~/Downloads",
			MaxFileSize:      500 * 1024 * 1024,
			RejectPrivateIPs: true,
		},
		Behavior: Behavior{
			AutoRejoinOnKick: false,
			RejoinDelaySecs:  3,
			BellOnMention:    true,
			BellOnPM:         true,
			QuitMessage:      "driftwood",
			PartMessage:      "Leaving",
		},
		Logging: Logging{
			Enabled:     false,
			Dir:         "~/.local/share/driftwood",
			LogChannels: true,
			LogQueries:  false,
		},
		CTCP: CTCP{
			ReplyVersion:  true,
			ReplyPing:     true,
			ReplyTime:     true,
			ReplyFinger:   false,
			VersionString: "driftwood IRC client",
			FingerString:  "driftwood user",
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "driftwood", "config.toml")
	}
	return "driftwood.toml"
}

// Load reads the config file at path, creating it with defaults on first run.
func Load(path string) (Config, error) {
	path = ExpandPath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		// Best effort: a read-only config dir still yields a usable client.
		if err := Save(path, cfg); err == nil {
			return cfg, nil
		}
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyFallbacks(&cfg)
	return cfg, nil
}

// Save writes the config as TOML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// applyFallbacks fills zero values that would otherwise break rendering or
// eviction with the defaults.
func applyFallbacks(cfg *Config) {
	def := Default()
	if cfg.UI.TimestampFormat == "" {
		cfg.UI.TimestampFormat = def.UI.TimestampFormat
	}
	if cfg.UI.MaxScrollback <= 0 {
		cfg.UI.MaxScrollback = def.UI.MaxScrollback
	}
	if cfg.DCC.DownloadDir == "" {
		cfg.DCC.DownloadDir = def.DCC.DownloadDir
	}
	if cfg.DCC.MaxFileSize == 0 {
		cfg.DCC.MaxFileSize = def.DCC.MaxFileSize
	}
	if cfg.Behavior.RejoinDelaySecs == 0 {
		cfg.Behavior.RejoinDelaySecs = def.Behavior.RejoinDelaySecs
	}
	if cfg.CTCP.VersionString == "" {
		cfg.CTCP.VersionString = def.CTCP.VersionString
	}
	for i := range cfg.Servers {
		if cfg.Servers[i].Port == 0 {
			cfg.Servers[i].Port = 6697
			cfg.Servers[i].TLS = true
		}
	}
}

// FindServer returns the configured server entry with the given name.
func (c *Config) FindServer(name string) (Server, bool) {
	for _, s := range c.Servers {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Server{}, false
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
