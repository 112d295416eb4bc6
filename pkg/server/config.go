package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxLineLen caps an unterminated input line. Matches the old
// 8KiB scanner buffer the server always ran with.
const DefaultMaxLineLen = 8192

// timeRound is the resolution used when printing durations to players.
const timeRound = time.Second

// Config holds server configuration, loadable from YAML.
type Config struct {
	MudName    string `yaml:"mud_name"`
	Port       int    `yaml:"port"`
	MaxLineLen int    `yaml:"max_line_len"`

	// TextDir holds welcome.txt / motd.txt / quit.txt overrides; files
	// are live-reloaded on change. Empty means built-in texts only.
	TextDir string `yaml:"text_dir"`

	// Store selects the account backend: "bolt" or "sqlite".
	Store      string `yaml:"store"`
	BoltPath   string `yaml:"bolt_path"`
	SQLitePath string `yaml:"sqlite_path"`

	// Web is the HTTP side: /metrics, /api/login, /ws.
	WebEnabled bool   `yaml:"web_enabled"`
	WebPort    int    `yaml:"web_port"`
	JWTSecret  string `yaml:"jwt_secret"`
	JWTExpiry  int    `yaml:"jwt_expiry"` // seconds
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MudName:    "EmberMUD",
		Port:       3389,
		MaxLineLen: DefaultMaxLineLen,
		Store:      "bolt",
		BoltPath:   "embermud.db",
		WebPort:    8080,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.MaxLineLen <= 0 {
		cfg.MaxLineLen = DefaultMaxLineLen
	}
	return cfg, nil
}
