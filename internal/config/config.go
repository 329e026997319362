// Package config loads application settings and initialises logging.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"appraisal/internal/database"
	"appraisal/internal/forest"
	"appraisal/internal/geo"
	"appraisal/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Synth    SynthConfig    `yaml:"synth" mapstructure:"synth"`
	Train    TrainConfig    `yaml:"train" mapstructure:"train"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Predict  PredictConfig  `yaml:"predict" mapstructure:"predict"`
	Geo      GeoConfig      `yaml:"geo" mapstructure:"geo"`
	Zoning   ZoningConfig   `yaml:"zoning" mapstructure:"zoning"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SynthConfig configures dataset synthesis.
type SynthConfig struct {
	Rows        int    `yaml:"rows" mapstructure:"rows"`
	Seed        int64  `yaml:"seed" mapstructure:"seed"`
	FormulaFile string `yaml:"formula_file" mapstructure:"formula_file"` // empty uses the built-in formula
	Output      string `yaml:"output" mapstructure:"output"`
}

// TrainConfig configures the forest and the trainer.
type TrainConfig struct {
	Trees           int     `yaml:"trees" mapstructure:"trees"`
	MaxDepth        int     `yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesSplit int     `yaml:"min_samples_split" mapstructure:"min_samples_split"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf" mapstructure:"min_samples_leaf"`
	MaxFeatures     float64 `yaml:"max_features" mapstructure:"max_features"`
	Seed            int64   `yaml:"seed" mapstructure:"seed"`
	MinRows         int     `yaml:"min_rows" mapstructure:"min_rows"`
	Holdout         float64 `yaml:"holdout" mapstructure:"holdout"`
	Workers         int     `yaml:"workers" mapstructure:"workers"`
}

// ModelConfig locates the artifact.
type ModelConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PredictConfig configures the prediction command.
type PredictConfig struct {
	AllowUnknown  bool   `yaml:"allow_unknown" mapstructure:"allow_unknown"`
	EstimatesFile string `yaml:"estimates_file" mapstructure:"estimates_file"`
}

// GeoConfig sets the reference point for distance_to_center_mi.
type GeoConfig struct {
	CenterLat float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLon float64 `yaml:"center_lon" mapstructure:"center_lon"`
}

// ZoningConfig lists zoning shapefiles, base layer first.
type ZoningConfig struct {
	Layers []string `yaml:"layers" mapstructure:"layers"`
}

// ServerConfig configures the HTTP prediction service.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// RedisConfig configures the prediction cache. An empty address disables it.
type RedisConfig struct {
	Addr    string `yaml:"addr" mapstructure:"addr"`
	TTLSecs int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// DatabaseConfig configures the SQL dataset store.
type DatabaseConfig struct {
	Driver         string `yaml:"driver" mapstructure:"driver"`
	DSN            string `yaml:"dsn" mapstructure:"dsn"`
	Host           string `yaml:"host" mapstructure:"host"`
	Port           int    `yaml:"port" mapstructure:"port"`
	Service        string `yaml:"service" mapstructure:"service"`
	Username       string `yaml:"username" mapstructure:"username"`
	Password       string `yaml:"password" mapstructure:"password"`
	WalletLocation string `yaml:"wallet_location" mapstructure:"wallet_location"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("APPRAISAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Oracle variables keep their historical DB_* names.
	for key, env := range map[string]string{
		"database.host":            "DB_HOST",
		"database.port":            "DB_PORT",
		"database.service":         "DB_SERVICE",
		"database.username":        "DB_USERNAME",
		"database.password":        "DB_PASSWORD",
		"database.wallet_location": "DB_WALLET_LOCATION",
	} {
		if err := v.BindEnv(key, "APPRAISAL_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Defaults
	fc := forest.DefaultConfig()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("synth.rows", 10000)
	v.SetDefault("synth.seed", 42)
	v.SetDefault("synth.formula_file", "")
	v.SetDefault("synth.output", "data/training.csv")
	v.SetDefault("train.trees", fc.Trees)
	v.SetDefault("train.max_depth", fc.MaxDepth)
	v.SetDefault("train.min_samples_split", fc.MinSamplesSplit)
	v.SetDefault("train.min_samples_leaf", fc.MinSamplesLeaf)
	v.SetDefault("train.max_features", fc.MaxFeatures)
	v.SetDefault("train.seed", fc.Seed)
	v.SetDefault("train.min_rows", model.DefaultMinRows)
	v.SetDefault("train.holdout", 0.0)
	v.SetDefault("train.workers", 0)
	v.SetDefault("model.path", "model/house_price_model.json.gz")
	v.SetDefault("predict.allow_unknown", false)
	v.SetDefault("predict.estimates_file", "data/estimates.csv")
	v.SetDefault("geo.center_lat", geo.DefaultCenterLat)
	v.SetDefault("geo.center_lon", geo.DefaultCenterLon)
	v.SetDefault("zoning.layers", []string{})
	v.SetDefault("server.port", 8080)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl_secs", 3600)
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 1521)
	v.SetDefault("database.service", "XE")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.wallet_location", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Unknown commands only get
// the checks shared by every command.
func (c *Config) Validate(command string) error {
	var problems []string
	if c.Model.Path == "" {
		problems = append(problems, "model.path is required")
	}

	switch command {
	case "synthesize":
		if c.Synth.Rows < 1 {
			problems = append(problems, "synth.rows must be at least 1")
		}
		if c.Synth.Output == "" {
			problems = append(problems, "synth.output is required")
		}
	case "train":
		if err := c.Train.ForestConfig().Validate(); err != nil {
			problems = append(problems, err.Error())
		}
		if c.Train.MinRows < 1 {
			problems = append(problems, "train.min_rows must be at least 1")
		}
		if c.Train.Holdout < 0 || c.Train.Holdout >= 1 {
			problems = append(problems, "train.holdout must be within [0, 1)")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be within 1-65535")
		}
	}

	if c.Database.Driver != "" {
		switch c.Database.Driver {
		case "oracle", "sqlite", "postgres":
		default:
			problems = append(problems, "database.driver must be oracle, sqlite or postgres")
		}
	}
	if !geo.ValidCoordinates(c.Geo.CenterLat, c.Geo.CenterLon) {
		problems = append(problems, "geo center is not a valid coordinate")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ForestConfig converts the train section to forest hyperparameters.
func (t TrainConfig) ForestConfig() forest.Config {
	return forest.Config{
		Trees:           t.Trees,
		MaxDepth:        t.MaxDepth,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		MaxFeatures:     t.MaxFeatures,
		Seed:            t.Seed,
		Workers:         t.Workers,
	}
}

// TrainerConfig converts the train section to trainer configuration.
func (t TrainConfig) TrainerConfig() model.TrainConfig {
	return model.TrainConfig{
		Forest:  t.ForestConfig(),
		MinRows: t.MinRows,
		Holdout: t.Holdout,
	}
}

// TTL returns the cache entry lifetime.
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSecs) * time.Second
}

// DBConfig converts the database section to connection settings.
func (d DatabaseConfig) DBConfig() database.DBConfig {
	return database.DBConfig{
		Driver:         d.Driver,
		DSN:            d.DSN,
		Host:           d.Host,
		Port:           strconv.Itoa(d.Port),
		Service:        d.Service,
		Username:       d.Username,
		Password:       d.Password,
		WalletLocation: d.WalletLocation,
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
