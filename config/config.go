package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/okxcandles/okx"
	"github.com/rustyeddy/okxcandles/schedule"
	"github.com/rustyeddy/okxcandles/sink"
	"github.com/rustyeddy/okxcandles/task"
)

// Config is the loader configuration
type Config struct {
	Exchange    ExchangeConfig `json:"exchange" yaml:"exchange"`
	Instruments []string       `json:"instruments" yaml:"instruments"`
	Fetch       FetchConfig    `json:"fetch" yaml:"fetch"`
	Sink        SinkConfig     `json:"sink" yaml:"sink"`
	Schedule    ScheduleConfig `json:"schedule" yaml:"schedule"`
	LogLevel    string         `json:"log_level" yaml:"log_level"`
}

// ExchangeConfig locates the REST API
type ExchangeConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Timeout string `json:"timeout" yaml:"timeout"` // e.g. "30s"
}

// FetchConfig shapes each candlestick request
type FetchConfig struct {
	Table string `json:"table" yaml:"table"`
	Limit int    `json:"limit" yaml:"limit"`
	Bar   string `json:"bar,omitempty" yaml:"bar,omitempty"` // exchange default when empty
}

// SinkConfig selects the store rows are appended to
type SinkConfig struct {
	Driver string `json:"driver" yaml:"driver"` // sqlite3, postgres, clickhouse or csv
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// ScheduleConfig drives the cron runner and backfills
type ScheduleConfig struct {
	Cron       string `json:"cron" yaml:"cron"`
	Attempts   int    `json:"attempts" yaml:"attempts"`
	Timeout    string `json:"timeout" yaml:"timeout"`
	RetryDelay string `json:"retry_delay" yaml:"retry_delay"`
	StartDate  string `json:"start_date" yaml:"start_date"` // RFC3339, first logical time of a backfill
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
// and applies environment overrides. A .env file next to the working
// directory is read first.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// dotEnvFile is read from the working directory when present.
const dotEnvFile = ".env"

// loadDotEnv sets variables from path without overriding the environment.
// A missing file is fine; a malformed one is not.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads path when set, otherwise starts from Default. Environment
// overrides apply either way.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}

	cfg := Default()
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from OKX_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("OKX_BASE_URL"); v != "" {
		c.Exchange.BaseURL = v
	}
	if v := os.Getenv("OKX_INSTRUMENTS"); v != "" {
		c.Instruments = splitList(v)
	}
	if v := os.Getenv("OKX_SINK_DRIVER"); v != "" {
		c.Sink.Driver = v
	}
	if v := os.Getenv("OKX_SINK_DSN"); v != "" {
		c.Sink.DSN = v
	}
	if v := os.Getenv("OKX_SINK_DIR"); v != "" {
		c.Sink.Dir = v
	}
	if v := os.Getenv("OKX_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url is required")
	}
	if _, err := parseDuration(c.Exchange.Timeout); err != nil {
		return fmt.Errorf("exchange.timeout: %w", err)
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for _, inst := range c.Instruments {
		if strings.TrimSpace(inst) == "" {
			return fmt.Errorf("instruments must not be blank")
		}
	}
	if c.Fetch.Table == "" {
		return fmt.Errorf("fetch.table is required")
	}
	if c.Fetch.Limit < 1 || c.Fetch.Limit > 100 {
		return fmt.Errorf("fetch.limit must be between 1 and 100")
	}
	if !slices.Contains(sink.Drivers, c.Sink.Driver) {
		return fmt.Errorf("sink.driver must be one of %v", sink.Drivers)
	}
	if c.Sink.Driver == sink.DriverCSV && c.Sink.Dir == "" {
		return fmt.Errorf("sink.dir required for csv driver")
	}
	if c.Sink.Driver != sink.DriverCSV && c.Sink.DSN == "" {
		return fmt.Errorf("sink.dsn required for %s driver", c.Sink.Driver)
	}
	if _, err := schedule.Parse(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron: %w", err)
	}
	if c.Schedule.Attempts < 1 {
		return fmt.Errorf("schedule.attempts must be at least 1")
	}
	if _, err := parseDuration(c.Schedule.Timeout); err != nil {
		return fmt.Errorf("schedule.timeout: %w", err)
	}
	if _, err := parseDuration(c.Schedule.RetryDelay); err != nil {
		return fmt.Errorf("schedule.retry_delay: %w", err)
	}
	if c.Schedule.StartDate != "" {
		if _, err := task.ParseLogicalTime(c.Schedule.StartDate); err != nil {
			return fmt.Errorf("schedule.start_date: %w", err)
		}
	}
	return nil
}

// ExchangeTimeout is the per-request HTTP timeout.
func (c *Config) ExchangeTimeout() time.Duration {
	d, _ := parseDuration(c.Exchange.Timeout)
	return d
}

// Policy converts the schedule section into a retry policy.
func (c *Config) Policy() schedule.Policy {
	timeout, _ := parseDuration(c.Schedule.Timeout)
	delay, _ := parseDuration(c.Schedule.RetryDelay)
	return schedule.Policy{
		Attempts:   c.Schedule.Attempts,
		Timeout:    timeout,
		RetryDelay: delay,
	}
}

// StartDate is the first logical time of a backfill, zero when unset.
func (c *Config) StartDate() time.Time {
	t, _ := task.ParseLogicalTime(c.Schedule.StartDate)
	return t
}

// SinkConfig converts the sink section for sink.Open.
func (c *Config) SinkConfig() sink.Config {
	return sink.Config{Driver: c.Sink.Driver, DSN: c.Sink.DSN, Dir: c.Sink.Dir}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Default returns the hourly BTC/ETH loader writing to a local SQLite file
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			BaseURL: okx.DefaultBaseURL,
			Timeout: "30s",
		},
		Instruments: []string{"BTC-USDT", "ETH-USDT"},
		Fetch: FetchConfig{
			Table: task.DefaultTable,
			Limit: task.DefaultLimit,
		},
		Sink: SinkConfig{
			Driver: sink.DriverSQLite,
			DSN:    "./candles.sqlite",
		},
		Schedule: ScheduleConfig{
			Cron:       schedule.DefaultCron,
			Attempts:   3,
			Timeout:    "10s",
			RetryDelay: "5s",
			StartDate:  "2021-01-01T00:00:00Z",
		},
		LogLevel: "info",
	}
}
