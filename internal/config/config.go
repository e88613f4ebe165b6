package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Gateway   GatewayConfig   `yaml:"gateway" mapstructure:"gateway"`
	Dispatch  DispatchConfig  `yaml:"dispatch" mapstructure:"dispatch"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Sentiment SentimentConfig `yaml:"sentiment" mapstructure:"sentiment"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
}

// GatewayConfig holds the WhatsApp gateway connection settings.
type GatewayConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Token             string `yaml:"token" mapstructure:"token"`
	ReadyTimeoutSecs  int    `yaml:"ready_timeout_secs" mapstructure:"ready_timeout_secs"`
	ProbeIntervalSecs int    `yaml:"probe_interval_secs" mapstructure:"probe_interval_secs"`
}

// ReadyTimeout returns the ready timeout as a duration.
func (c GatewayConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSecs) * time.Second
}

// ProbeInterval returns the probe interval as a duration.
func (c GatewayConfig) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSecs) * time.Second
}

// DispatchConfig configures outbound batching.
type DispatchConfig struct {
	BatchSize    int     `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelayMs int     `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst    int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// BatchDelay returns the inter-batch delay as a duration.
func (c DispatchConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

// IngestConfig configures spreadsheet ingestion.
type IngestConfig struct {
	SkipRows   int `yaml:"skip_rows" mapstructure:"skip_rows"`
	SheetIndex int `yaml:"sheet_index" mapstructure:"sheet_index"`
}

// SentimentConfig configures feedback classification.
type SentimentConfig struct {
	LexiconFile string `yaml:"lexicon_file" mapstructure:"lexicon_file"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "store" (any command touching the database), "send" (outbound
// dispatch), "serve" (HTTP API, implies store and send).
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres", "sqlite":
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}
	checkSend := func() {
		if c.Gateway.BaseURL == "" {
			problems = append(problems, "gateway.base_url is required")
		}
		if c.Dispatch.BatchSize < 1 || c.Dispatch.BatchSize > 100 {
			problems = append(problems, "dispatch.batch_size must be between 1 and 100")
		}
		if c.Dispatch.BatchDelayMs < 0 {
			problems = append(problems, "dispatch.batch_delay_ms must be >= 0")
		}
	}

	switch mode {
	case "store":
		checkStore()
	case "send":
		checkSend()
	case "serve":
		checkStore()
		checkSend()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("gateway.base_url", "http://localhost:3000")
	v.SetDefault("gateway.ready_timeout_secs", 60)
	v.SetDefault("gateway.probe_interval_secs", 2)
	v.SetDefault("dispatch.batch_size", 5)
	v.SetDefault("dispatch.batch_delay_ms", 2000)
	v.SetDefault("dispatch.rate_per_sec", 0)
	v.SetDefault("dispatch.rate_burst", 1)
	v.SetDefault("ingest.skip_rows", 1)
	v.SetDefault("ingest.sheet_index", 0)
	v.SetDefault("server.port", 8080)
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
