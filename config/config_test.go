package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "https://aws.okx.com", cfg.Exchange.BaseURL)
	assert.Equal(t, []string{"BTC-USDT", "ETH-USDT"}, cfg.Instruments)
	assert.Equal(t, "candlesticks_history", cfg.Fetch.Table)
	assert.Equal(t, 60, cfg.Fetch.Limit)
	assert.Equal(t, "0 * * * *", cfg.Schedule.Cron)
	assert.NoError(t, cfg.Validate())

	p := cfg.Policy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 10*time.Second, p.Timeout)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing base url", func(c *Config) { c.Exchange.BaseURL = "" }, "exchange.base_url is required"},
		{"bad exchange timeout", func(c *Config) { c.Exchange.Timeout = "soon" }, "exchange.timeout"},
		{"no instruments", func(c *Config) { c.Instruments = nil }, "at least one instrument"},
		{"blank instrument", func(c *Config) { c.Instruments = []string{"BTC-USDT", " "} }, "must not be blank"},
		{"missing table", func(c *Config) { c.Fetch.Table = "" }, "fetch.table is required"},
		{"limit too large", func(c *Config) { c.Fetch.Limit = 101 }, "fetch.limit"},
		{"unknown driver", func(c *Config) { c.Sink.Driver = "mongo" }, "sink.driver"},
		{"csv without dir", func(c *Config) { c.Sink.Driver = "csv" }, "sink.dir required"},
		{"sql without dsn", func(c *Config) { c.Sink.Driver = "postgres"; c.Sink.DSN = "" }, "sink.dsn required"},
		{"bad cron", func(c *Config) { c.Schedule.Cron = "hourly please" }, "schedule.cron"},
		{"zero attempts", func(c *Config) { c.Schedule.Attempts = 0 }, "schedule.attempts"},
		{"bad timeout", func(c *Config) { c.Schedule.Timeout = "10 seconds" }, "schedule.timeout"},
		{"bad start date", func(c *Config) { c.Schedule.StartDate = "last year" }, "schedule.start_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Instruments = []string{"SOL-USDT"}
			cfg.Sink.DSN = filepath.Join(tmpDir, "x.sqlite")
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Instruments, loaded.Instruments)
			assert.Equal(t, cfg.Sink, loaded.Sink)
			assert.Equal(t, cfg.Schedule, loaded.Schedule)
		})
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("instruments: [DOGE-USDT]\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGE-USDT"}, cfg.Instruments)
	assert.Equal(t, 60, cfg.Fetch.Limit)
	assert.Equal(t, "sqlite3", cfg.Sink.Driver)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OKX_BASE_URL", "http://localhost:9999")
	t.Setenv("OKX_INSTRUMENTS", "BTC-USDT, LTC-USDT")
	t.Setenv("OKX_SINK_DRIVER", "postgres")
	t.Setenv("OKX_SINK_DSN", "postgres://u:p@localhost/candles?sslmode=disable")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", cfg.Exchange.BaseURL)
	assert.Equal(t, []string{"BTC-USDT", "LTC-USDT"}, cfg.Instruments)
	assert.Equal(t, "postgres", cfg.Sink.Driver)
	assert.Equal(t, "postgres://u:p@localhost/candles?sslmode=disable", cfg.Sink.DSN)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))

	good := filepath.Join(dir, "good.env")
	require.NoError(t, os.WriteFile(good, []byte("OKX_TEST_DOTENV_LEVEL=debug\n"), 0644))
	t.Setenv("OKX_TEST_DOTENV_LEVEL", "")
	os.Unsetenv("OKX_TEST_DOTENV_LEVEL")
	require.NoError(t, loadDotEnv(good))
	assert.Equal(t, "debug", os.Getenv("OKX_TEST_DOTENV_LEVEL"))

	bad := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("OKX-BROKEN=1\n"), 0644))
	assert.Error(t, loadDotEnv(bad))
}

func TestLoadRejectsMalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OKX-BROKEN=1\n"), 0644))
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".env")
}
