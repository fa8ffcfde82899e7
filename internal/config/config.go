// Package config loads sidecar settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinSyncInterval is the shortest accepted sync interval.
	MinSyncInterval = 5 * time.Second
	// MinProbeInterval is the floor for the connectivity probe interval.
	MinProbeInterval = 5 * time.Second

	// ConfigEnv names the environment variable holding the YAML file path.
	ConfigEnv = "STOCKFLOW_CONFIG"
)

// Settings holds every tunable of the sync core and sidecar.
type Settings struct {
	APIBaseURL        string        `yaml:"api_url"`
	SyncInterval      time.Duration `yaml:"sync_interval"`
	AutoSync          bool          `yaml:"auto_sync"`
	OfflineMode       bool          `yaml:"offline_mode"`
	LowStockThreshold int           `yaml:"low_stock_threshold"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	QueueMaxSize      int           `yaml:"queue_max_size"`
	DataDir           string        `yaml:"data_dir"`
	ListenAddr        string        `yaml:"listen_addr"`
	LogLevel          string        `yaml:"log_level"`
}

// Default returns the settings a fresh install starts with.
func Default() *Settings {
	return &Settings{
		APIBaseURL:        "http://localhost:8080/api",
		SyncInterval:      60 * time.Second,
		AutoSync:          true,
		OfflineMode:       false,
		LowStockThreshold: 10,
		ProbeTimeout:      5 * time.Second,
		RequestTimeout:    10 * time.Second,
		QueueMaxSize:      0,
		DataDir:           "./data",
		ListenAddr:        "127.0.0.1:8090",
		LogLevel:          "info",
	}
}

// Load builds Settings from defaults, the file named by STOCKFLOW_CONFIG
// (if set), and environment overrides, then validates the result.
func Load() (*Settings, error) {
	s := Default()

	if path := os.Getenv(ConfigEnv); path != "" {
		if err := s.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := s.applyEnv(); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads settings from a YAML file on top of the defaults.
func LoadFile(path string) (*Settings, error) {
	s := Default()
	if err := s.mergeFile(path); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (s *Settings) applyEnv() error {
	s.APIBaseURL = getEnv("STOCKFLOW_API_URL", s.APIBaseURL)
	s.DataDir = getEnv("DB_PATH", s.DataDir)
	s.ListenAddr = getEnv("STOCKFLOW_LISTEN_ADDR", s.ListenAddr)
	s.LogLevel = getEnv("LOG_LEVEL", s.LogLevel)

	var err error
	if s.SyncInterval, err = getDuration("STOCKFLOW_SYNC_INTERVAL", s.SyncInterval); err != nil {
		return err
	}
	if s.ProbeTimeout, err = getDuration("STOCKFLOW_PROBE_TIMEOUT", s.ProbeTimeout); err != nil {
		return err
	}
	if s.RequestTimeout, err = getDuration("STOCKFLOW_REQUEST_TIMEOUT", s.RequestTimeout); err != nil {
		return err
	}
	if s.AutoSync, err = getBool("STOCKFLOW_AUTO_SYNC", s.AutoSync); err != nil {
		return err
	}
	if s.OfflineMode, err = getBool("STOCKFLOW_OFFLINE_MODE", s.OfflineMode); err != nil {
		return err
	}
	if s.LowStockThreshold, err = getInt("STOCKFLOW_LOW_STOCK_THRESHOLD", s.LowStockThreshold); err != nil {
		return err
	}
	if s.QueueMaxSize, err = getInt("STOCKFLOW_QUEUE_MAX_SIZE", s.QueueMaxSize); err != nil {
		return err
	}
	return nil
}

// Validate checks that the settings can drive the sync core.
func (s *Settings) Validate() error {
	u, err := url.Parse(s.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url must be an absolute URL, got %q", s.APIBaseURL)
	}
	if s.SyncInterval < MinSyncInterval {
		return fmt.Errorf("sync_interval must be at least %s, got %s", MinSyncInterval, s.SyncInterval)
	}
	if s.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if s.LowStockThreshold < 0 {
		return fmt.Errorf("low_stock_threshold must not be negative")
	}
	if s.QueueMaxSize < 0 {
		return fmt.Errorf("queue_max_size must not be negative")
	}
	if s.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// ProbeInterval is max(5s, SyncInterval/2).
func (s *Settings) ProbeInterval() time.Duration {
	if half := s.SyncInterval / 2; half > MinProbeInterval {
		return half
	}
	return MinProbeInterval
}

// BaseURL returns APIBaseURL without a trailing slash.
func (s *Settings) BaseURL() string {
	return strings.TrimRight(s.APIBaseURL, "/")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getDuration accepts Go durations ("90s") or a bare number of milliseconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
