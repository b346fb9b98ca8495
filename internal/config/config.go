package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr     = "127.0.0.1:7373"
	defaultPollInterval   = 100 * time.Millisecond
	defaultRateLimitRPS   = 50.0
	defaultRateLimitBurst = 100
	appDirName            = "MechvibesDX"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	DataDir              string
	ListenAddr           string
	PollInterval         time.Duration
	WatchFiles           bool
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// ConfigPath returns the location of the settings document.
func (c Config) ConfigPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

// ThemesPath returns the location of the themes document.
func (c Config) ThemesPath() string {
	return filepath.Join(c.DataDir, "themes.json")
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	DataDir              string        `yaml:"data_dir"`
	ListenAddr           string        `yaml:"listen_addr"`
	PollInterval         string        `yaml:"poll_interval"`
	WatchFiles           *bool         `yaml:"watch_files"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	DataDir        *string
	ListenAddr     *string
	PollInterval   *time.Duration
	WatchFiles     *bool
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables (lowest explicit source)
	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve data directory: %w", err)
		}
		cfg.DataDir = dir
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values. DataDir is resolved
// last so an explicit setting never touches the user's profile.
func defaultConfig() Config {
	return Config{
		ListenAddr:           defaultListenAddr,
		PollInterval:         defaultPollInterval,
		WatchFiles:           false,
		LogLevel:             "info",
		ShutdownGracePeriod:  5 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

func defaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.DataDir != "" {
		cfg.DataDir = yamlCfg.DataDir
	}
	if yamlCfg.ListenAddr != "" {
		cfg.ListenAddr = yamlCfg.ListenAddr
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.WatchFiles != nil {
		cfg.WatchFiles = *yamlCfg.WatchFiles
	}
	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	durations := []struct {
		raw string
		dst *time.Duration
		key string
	}{
		{yamlCfg.PollInterval, &cfg.PollInterval, "poll_interval"},
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod, "shutdown_grace_period"},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout, "read_header_timeout"},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout, "write_timeout"},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout, "idle_timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if dir := strings.TrimSpace(os.Getenv("MECHVIBES_DATA_DIR")); dir != "" {
		cfg.DataDir = dir
	}

	if addr := strings.TrimSpace(os.Getenv("MECHVIBES_LISTEN_ADDR")); addr != "" {
		cfg.ListenAddr = addr
	}

	if raw := strings.TrimSpace(os.Getenv("MECHVIBES_POLL_INTERVAL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}

	if raw := strings.TrimSpace(os.Getenv("MECHVIBES_WATCH_FILES")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.WatchFiles = v
		}
	}

	if level := strings.TrimSpace(os.Getenv("MECHVIBES_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.DataDir != nil && *overrides.DataDir != "" {
		cfg.DataDir = *overrides.DataDir
	}

	if overrides.ListenAddr != nil && *overrides.ListenAddr != "" {
		cfg.ListenAddr = *overrides.ListenAddr
	}

	if overrides.PollInterval != nil && *overrides.PollInterval > 0 {
		cfg.PollInterval = *overrides.PollInterval
	}

	if overrides.WatchFiles != nil {
		cfg.WatchFiles = *overrides.WatchFiles
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	return nil
}
