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

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10000, cfg.Synth.Rows)
	assert.Equal(t, int64(42), cfg.Synth.Seed)
	assert.Equal(t, "data/training.csv", cfg.Synth.Output)
	assert.Equal(t, 200, cfg.Train.Trees)
	assert.Equal(t, 0, cfg.Train.MaxDepth)
	assert.Equal(t, 2, cfg.Train.MinSamplesSplit)
	assert.InDelta(t, 1.0, cfg.Train.MaxFeatures, 1e-9)
	assert.Equal(t, 10, cfg.Train.MinRows)
	assert.Equal(t, "model/house_price_model.json.gz", cfg.Model.Path)
	assert.False(t, cfg.Predict.AllowUnknown)
	assert.InDelta(t, 32.760089, cfg.Geo.CenterLat, 1e-9)
	assert.Empty(t, cfg.Zoning.Layers)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Redis.TTL())
	assert.Equal(t, 1521, cfg.Database.Port)
	assert.Equal(t, "XE", cfg.Database.Service)

	for _, cmd := range []string{"synthesize", "train", "serve", "predict"} {
		assert.NoError(t, cfg.Validate(cmd), cmd)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
train:
  trees: 25
  holdout: 0.2
zoning:
  layers:
    - data/ADM_ZONING/ADM_ZONING.shp
    - data/ADM_ZONING_OVERLAY_DISTRICTS/ADM_ZONING_OVERLAY_DISTRICTS.shp
database:
  driver: sqlite
  dsn: appraisal.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 25, cfg.Train.Trees)
	assert.InDelta(t, 0.2, cfg.Train.TrainerConfig().Holdout, 1e-9)
	assert.Len(t, cfg.Zoning.Layers, 2)
	assert.Equal(t, "sqlite", cfg.Database.DBConfig().Driver)
	// Defaults still apply for unset values
	assert.Equal(t, 2, cfg.Train.MinSamplesSplit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("APPRAISAL_SERVER_PORT", "3000")
	t.Setenv("APPRAISAL_TRAIN_SEED", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, int64(7), cfg.Train.ForestConfig().Seed)
}

func TestLoadLegacyDatabaseEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DB_HOST", "adb.example.com")
	t.Setenv("DB_PORT", "1522")
	t.Setenv("DB_WALLET_LOCATION", "/opt/wallet")

	cfg, err := Load()
	require.NoError(t, err)
	db := cfg.Database.DBConfig()
	assert.Equal(t, "adb.example.com", db.Host)
	assert.Equal(t, "1522", db.Port)
	assert.Equal(t, "/opt/wallet", db.WalletLocation)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("APPRAISAL_MODEL_PATH=from-dotenv.json.gz\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("APPRAISAL_MODEL_PATH") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.json.gz", cfg.Model.Path)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)

	bad := *cfg
	bad.Train.Trees = 0
	bad.Train.Holdout = 1
	err = bad.Validate("train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trees must be at least 1")
	assert.Contains(t, err.Error(), "train.holdout")

	bad = *cfg
	bad.Server.Port = 0
	assert.ErrorContains(t, bad.Validate("serve"), "server.port")
	assert.NoError(t, bad.Validate("train"))

	bad = *cfg
	bad.Synth.Rows = 0
	assert.ErrorContains(t, bad.Validate("synthesize"), "synth.rows")

	bad = *cfg
	bad.Database.Driver = "mysql"
	assert.ErrorContains(t, bad.Validate("train"), "database.driver")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
