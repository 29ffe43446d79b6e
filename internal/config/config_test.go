package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Source.PageLimit)
	assert.Equal(t, 3, cfg.Source.MaxRetries)
	assert.InDelta(t, 5, cfg.Source.RatePerSec, 0.001)
	assert.Equal(t, 60, cfg.OCR.TimeoutSecs)
	assert.Equal(t, 500, cfg.Sync.DailyQuota)
	assert.Equal(t, 2000, cfg.Sync.ThrottleMS)
	assert.Equal(t, 3, cfg.Sync.FailureCap)
	assert.Equal(t, 3, cfg.Sync.GracePeriod)
	assert.Equal(t, int32(10), cfg.Store.Pool.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.Pool.MinConns)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  database_url: postgres://localhost/docketwatch
log:
  level: debug
  format: console
sync:
  daily_quota: 50
  throttle_ms: 100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/docketwatch", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Sync.DailyQuota)
	assert.Equal(t, 100*time.Millisecond, cfg.Sync.ThrottleDelay())
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Sync.FailureCap)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
sync:
  daily_quota: 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DOCKETWATCH_LOG_LEVEL", "warn")
	t.Setenv("DOCKETWATCH_SYNC_DAILY_QUOTA", "75")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 75, cfg.Sync.DailyQuota)
}

func TestTableConfig_Overrides(t *testing.T) {
	var tc TableConfig
	tables := tc.Tables()
	assert.Equal(t, "docket.case_records", tables.Cases)

	tc.Cases = "legacy.cases"
	tables = tc.Tables()
	assert.Equal(t, "legacy.cases", tables.Cases)
	assert.Equal(t, "docket.clients", tables.Clients)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validSync returns a Config populated enough to pass sync validation.
func validSync() *Config {
	return &Config{
		Store:  StoreConfig{DatabaseURL: "postgres://localhost/docketwatch"},
		Source: SourceConfig{BaseURL: "https://data.example.gov/resource/abcd-1234.json"},
		OCR:    OCRConfig{WorkerURL: "http://ocr-worker:9000"},
		Sync:   SyncConfig{DailyQuota: 500, ThrottleMS: 2000, FailureCap: 3, GracePeriod: 3},
		Server: ServerConfig{Port: 8080},
	}
}

func TestValidateSync(t *testing.T) {
	assert.NoError(t, validSync().Validate("sync"))

	cfg := validSync()
	cfg.Store.DatabaseURL = ""
	cfg.OCR.WorkerURL = ""
	err := cfg.Validate("sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "ocr.worker_url is required")
}

func TestValidateMigrateNeedsOnlyDB(t *testing.T) {
	cfg := &Config{Store: StoreConfig{DatabaseURL: "postgres://localhost/docketwatch"}}
	assert.NoError(t, cfg.Validate("migrate"))
	assert.NoError(t, cfg.Validate("status"))
}

func TestValidateServePort(t *testing.T) {
	cfg := validSync()
	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validSync().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateSyncKnobBounds(t *testing.T) {
	cfg := validSync()
	cfg.Sync.DailyQuota = 0
	cfg.Sync.GracePeriod = 0
	err := cfg.Validate("sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.daily_quota must be >= 1")
	assert.Contains(t, err.Error(), "sync.grace_period must be >= 1")
}
