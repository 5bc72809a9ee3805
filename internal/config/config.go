package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/saferoute/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Predict PredictConfig `yaml:"predict" mapstructure:"predict"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// Dataset sources.
const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// DatasetConfig locates the historical incident dataset.
type DatasetConfig struct {
	Source      string `yaml:"source" mapstructure:"source"` // csv, xlsx, sqlite, postgres; empty = infer from path
	Path        string `yaml:"path" mapstructure:"path"`
	Sheet       string `yaml:"sheet" mapstructure:"sheet"` // xlsx only; empty = first sheet
	Table       string `yaml:"table" mapstructure:"table"` // sqlite and postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	GeomColumn  string `yaml:"geom_column" mapstructure:"geom_column"` // postgres: read the point from a PostGIS column
}

// ResolvedSource returns Source, or the source implied by the path extension.
func (d DatasetConfig) ResolvedSource() string {
	if d.Source != "" {
		return strings.ToLower(d.Source)
	}
	switch strings.ToLower(filepath.Ext(d.Path)) {
	case ".csv":
		return SourceCSV
	case ".xlsx":
		return SourceXLSX
	case ".db", ".sqlite", ".sqlite3":
		return SourceSQLite
	}
	if d.DatabaseURL != "" {
		return SourcePostgres
	}
	return ""
}

// ModelConfig configures the fallback random forest.
type ModelConfig struct {
	Trees           int    `yaml:"trees" mapstructure:"trees"`
	Seed            uint64 `yaml:"seed" mapstructure:"seed"`
	MaxDepth        int    `yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesSplit int    `yaml:"min_samples_split" mapstructure:"min_samples_split"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf" mapstructure:"min_samples_leaf"`
	MaxFeatures     int    `yaml:"max_features" mapstructure:"max_features"`
	Workers         int    `yaml:"workers" mapstructure:"workers"`
}

// PredictConfig configures the vote/fallback boundary and request defaults.
type PredictConfig struct {
	RadiusKM     float64       `yaml:"radius_km" mapstructure:"radius_km"`
	MinNeighbors int           `yaml:"min_neighbors" mapstructure:"min_neighbors"`
	Epsilon      float64       `yaml:"epsilon" mapstructure:"epsilon"`
	FillDefaults bool          `yaml:"fill_defaults" mapstructure:"fill_defaults"`
	Defaults     model.Context `yaml:"defaults" mapstructure:"defaults"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimit       float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second; 0 disables
	RateBurst       int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	ShutdownSecs    int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	ReadTimeoutSecs int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFEROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.source", "")
	v.SetDefault("dataset.path", "new_crime_dataset.csv")
	v.SetDefault("dataset.sheet", "")
	v.SetDefault("dataset.table", "incidents")
	v.SetDefault("dataset.database_url", "")
	v.SetDefault("dataset.geom_column", "")
	v.SetDefault("model.trees", 300)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.max_depth", 0)
	v.SetDefault("model.min_samples_split", 2)
	v.SetDefault("model.min_samples_leaf", 1)
	v.SetDefault("model.max_features", 0)
	v.SetDefault("model.workers", 0)
	v.SetDefault("predict.radius_km", 2.0)
	v.SetDefault("predict.min_neighbors", 3)
	v.SetDefault("predict.epsilon", 0.001)
	v.SetDefault("predict.fill_defaults", false)
	v.SetDefault("predict.defaults.time_of_day", "Evening")
	v.SetDefault("predict.defaults.area_type", "Commercial")
	v.SetDefault("predict.defaults.street_lighting", 1)
	v.SetDefault("predict.defaults.cctv_nearby", 0)
	v.SetDefault("predict.defaults.police_distance_km", 0.86)
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings needed by mode ("serve", "predict" or
// "evaluate") and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1 when rate limiting is enabled")
		}
	case "predict", "evaluate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Dataset.ResolvedSource() {
	case SourceCSV, SourceXLSX, SourceSQLite:
		if c.Dataset.Path == "" {
			errs = append(errs, "dataset.path is required")
		}
	case SourcePostgres:
		if c.Dataset.DatabaseURL == "" {
			errs = append(errs, "dataset.database_url is required for the postgres source")
		}
	case "":
		errs = append(errs, "dataset.source cannot be inferred from dataset.path")
	default:
		errs = append(errs, "dataset.source must be one of csv, xlsx, sqlite, postgres")
	}
	if src := c.Dataset.ResolvedSource(); (src == SourceSQLite || src == SourcePostgres) && c.Dataset.Table == "" {
		errs = append(errs, "dataset.table is required for database sources")
	}

	if !(c.Predict.RadiusKM > 0) {
		errs = append(errs, "predict.radius_km must be > 0")
	}
	if c.Predict.MinNeighbors < 1 {
		errs = append(errs, "predict.min_neighbors must be >= 1")
	}
	if !(c.Predict.Epsilon > 0) {
		errs = append(errs, "predict.epsilon must be > 0")
	}
	if c.Model.Trees < 1 {
		errs = append(errs, "model.trees must be >= 1")
	}
	if c.Model.MaxDepth < 0 || c.Model.MaxFeatures < 0 || c.Model.Workers < 0 {
		errs = append(errs, "model.max_depth, model.max_features and model.workers must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
