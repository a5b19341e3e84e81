// Package config loads scanner configuration from YAML files with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML files can say "5s" or "500ms".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// APIConfig holds the remote endpoints.
type APIConfig struct {
	HostURL string `yaml:"host_url"`
	CVEURL  string `yaml:"cve_url"`
}

// ScanConfig holds the scan engine settings.
type ScanConfig struct {
	Threads       int      `yaml:"threads"`
	Timeout       Duration `yaml:"timeout"`
	Delay         Duration `yaml:"delay"`
	RPS           float64  `yaml:"rps"`
	TargetBudget  Duration `yaml:"target_budget"`
	BlacklistFile string   `yaml:"blacklist_file"`
}

// BypassConfig holds the rate-limit evasion settings.
type BypassConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Sessions       int      `yaml:"sessions"`
	CallsPerMinute int      `yaml:"calls_per_minute"`
	CacheFile      string   `yaml:"cache_file"`
	CacheHours     int      `yaml:"cache_hours"`
	MinDelay       Duration `yaml:"min_delay"`
	MaxDelay       Duration `yaml:"max_delay"`
	ProxyFile      string   `yaml:"proxy_file"`
	Retries        int      `yaml:"retries"`
}

// ReportConfig holds the output destinations. Empty values disable the
// corresponding output.
type ReportConfig struct {
	JSONL    string `yaml:"jsonl"`
	CSV      string `yaml:"csv"`
	XML      string `yaml:"xml"`
	Database string `yaml:"database"`
	Webhook  string `yaml:"webhook"`
}

// Config holds application configuration.
type Config struct {
	API         APIConfig    `yaml:"api"`
	Scan        ScanConfig   `yaml:"scan"`
	Bypass      BypassConfig `yaml:"bypass"`
	Report      ReportConfig `yaml:"report"`
	Geolocation bool         `yaml:"geolocation"`
	LogLevel    string       `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			HostURL: "https://internetdb.shodan.io",
			CVEURL:  "https://cvedb.shodan.io",
		},
		Scan: ScanConfig{
			Threads:      50,
			Timeout:      Duration(10 * time.Second),
			RPS:          0,
			TargetBudget: Duration(60 * time.Second),
		},
		Bypass: BypassConfig{
			Enabled:        false,
			Sessions:       10,
			CallsPerMinute: 30,
			CacheFile:      "valac_cache.json",
			CacheHours:     24,
			MinDelay:       Duration(500 * time.Millisecond),
			MaxDelay:       Duration(2 * time.Second),
			Retries:        3,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment overrides, in that order. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from VALAC_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("VALAC_HOST_URL"); v != "" {
		c.API.HostURL = v
	}
	if v := os.Getenv("VALAC_CVE_URL"); v != "" {
		c.API.CVEURL = v
	}
	if v := os.Getenv("VALAC_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.Threads = n
		}
	}
	if v := os.Getenv("VALAC_CALLS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Bypass.CallsPerMinute = n
		}
	}
	if v := os.Getenv("VALAC_PROXY_FILE"); v != "" {
		c.Bypass.ProxyFile = v
	}
	if v := os.Getenv("VALAC_WEBHOOK"); v != "" {
		c.Report.Webhook = v
	}
	if v := os.Getenv("VALAC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.API.HostURL == "" {
		return fmt.Errorf("api.host_url must not be empty")
	}
	if c.Scan.Threads <= 0 {
		return fmt.Errorf("scan.threads must be positive, got %d", c.Scan.Threads)
	}
	if c.Bypass.Enabled && c.Bypass.CallsPerMinute < 0 {
		return fmt.Errorf("bypass.calls_per_minute must not be negative, got %d", c.Bypass.CallsPerMinute)
	}
	if c.Bypass.MinDelay > c.Bypass.MaxDelay {
		return fmt.Errorf("bypass.min_delay must not exceed bypass.max_delay")
	}
	return nil
}
