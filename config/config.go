package config

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Airtable   AirtableConfig   `yaml:"airtable"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push is disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`

	// AllowedOrigins may open the websocket besides the serving host.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AirtableConfig holds the connection settings for the hosted record store.
type AirtableConfig struct {
	BaseURL         string        `yaml:"base_url"`
	BaseID          string        `yaml:"base_id"`
	Token           string        `yaml:"token"`
	Collection      string        `yaml:"collection"`
	HTTPProxy       string        `yaml:"http_proxy"`
	PageSize        int           `yaml:"page_size"`
	RequestsPerSec  float64       `yaml:"requests_per_sec"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-"`
	StrictReads     bool          `yaml:"strict_reads"`
	BestEffortWrite bool          `yaml:"best_effort_writes"`
}

// DashboardConfig holds the board layout and the scheduling intervals.
type DashboardConfig struct {
	Tables                 int           `yaml:"tables"`
	Timezone               string        `yaml:"timezone"`
	RefreshIntervalSeconds int           `yaml:"refresh_interval_seconds"`
	RefreshInterval        time.Duration `yaml:"-"`
	ClockIntervalSeconds   int           `yaml:"clock_interval_seconds"`
	ClockInterval          time.Duration `yaml:"-"`
}

// Location resolves the configured timezone, falling back to the local zone.
func (d DashboardConfig) Location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		log.Warnf("invalid timezone %q: %v; using local time", d.Timezone, err)
		return time.Local
	}
	return loc
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path. Secrets may be
// supplied through the environment instead of the file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AIRTABLE_TOKEN"); v != "" {
		cfg.Airtable.Token = v
	}
	if v := os.Getenv("AIRTABLE_BASE_ID"); v != "" {
		cfg.Airtable.BaseID = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Airtable.BaseURL == "" {
		cfg.Airtable.BaseURL = "https://api.airtable.com/v0"
	}
	if cfg.Airtable.Collection == "" {
		cfg.Airtable.Collection = "Reservation"
	}
	if cfg.Airtable.PageSize <= 0 || cfg.Airtable.PageSize > 100 {
		cfg.Airtable.PageSize = 100
	}
	if cfg.Airtable.RequestsPerSec <= 0 {
		cfg.Airtable.RequestsPerSec = 5
	}
	if cfg.Airtable.TimeoutSeconds <= 0 {
		cfg.Airtable.TimeoutSeconds = 30
	}
	cfg.Airtable.Timeout = time.Duration(cfg.Airtable.TimeoutSeconds) * time.Second

	if cfg.Dashboard.Tables <= 0 {
		cfg.Dashboard.Tables = 10
	}
	if cfg.Dashboard.RefreshIntervalSeconds <= 0 {
		cfg.Dashboard.RefreshIntervalSeconds = 30
	}
	cfg.Dashboard.RefreshInterval = time.Duration(cfg.Dashboard.RefreshIntervalSeconds) * time.Second
	if cfg.Dashboard.ClockIntervalSeconds <= 0 {
		cfg.Dashboard.ClockIntervalSeconds = 1
	}
	cfg.Dashboard.ClockInterval = time.Duration(cfg.Dashboard.ClockIntervalSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "dashboard.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
