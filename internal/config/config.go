package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Tracking TrackingConfig `yaml:"tracking" mapstructure:"tracking"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	NATS     NATSConfig     `yaml:"nats" mapstructure:"nats"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// BoundaryConfig selects the static boundary dataset. An empty Path uses the
// embedded Berlin dataset.
type BoundaryConfig struct {
	Path          string `yaml:"path" mapstructure:"path"`
	DistrictField string `yaml:"district_field" mapstructure:"district_field"`
	City          string `yaml:"city" mapstructure:"city"`
}

// TrackingConfig configures the location status controller.
type TrackingConfig struct {
	DebounceMs   int  `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	HighAccuracy bool `yaml:"high_accuracy" mapstructure:"high_accuracy"`
	TimeoutMs    int  `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	MaxAgeMs     int  `yaml:"max_age_ms" mapstructure:"max_age_ms"`
}

// SourceConfig selects where positions and permission come from.
type SourceConfig struct {
	Kind       string       `yaml:"kind" mapstructure:"kind"`             // fixed, replay, nats, none
	Permission string       `yaml:"permission" mapstructure:"permission"` // granted, denied, prompt, none
	Fixed      FixedConfig  `yaml:"fixed" mapstructure:"fixed"`
	Replay     ReplayConfig `yaml:"replay" mapstructure:"replay"`
}

// FixedConfig configures a static position source.
type FixedConfig struct {
	Lat      float64 `yaml:"lat" mapstructure:"lat"`
	Lon      float64 `yaml:"lon" mapstructure:"lon"`
	Accuracy float64 `yaml:"accuracy" mapstructure:"accuracy"`
	DelayMs  int     `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// ReplayConfig configures playback of a recorded sample file.
type ReplayConfig struct {
	Path string  `yaml:"path" mapstructure:"path"`
	Rate float64 `yaml:"rate" mapstructure:"rate"` // samples per second
	Loop bool    `yaml:"loop" mapstructure:"loop"`
}

// NATSConfig configures the NATS position feed.
type NATSConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Subject string `yaml:"subject" mapstructure:"subject"`
}

// ServerConfig configures the local status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var (
	sourceKinds       = map[string]bool{"fixed": true, "replay": true, "nats": true, "none": true}
	permissionSources = map[string]bool{"granted": true, "denied": true, "prompt": true, "none": true}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EASTWEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8787)
	v.SetDefault("boundary.path", "")
	v.SetDefault("boundary.district_field", "NAME")
	v.SetDefault("boundary.city", "")
	v.SetDefault("tracking.debounce_ms", 1000)
	v.SetDefault("tracking.high_accuracy", false)
	v.SetDefault("tracking.timeout_ms", 10000)
	v.SetDefault("tracking.max_age_ms", 30000)
	v.SetDefault("source.kind", "fixed")
	v.SetDefault("source.permission", "prompt")
	v.SetDefault("source.fixed.lat", 52.5200)
	v.SetDefault("source.fixed.lon", 13.4050)
	v.SetDefault("source.fixed.accuracy", 25.0)
	v.SetDefault("source.fixed.delay_ms", 200)
	v.SetDefault("source.replay.path", "")
	v.SetDefault("source.replay.rate", 1.0)
	v.SetDefault("source.replay.loop", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject", "eastwest.position")

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings and numeric ranges.
func (c *Config) Validate() error {
	var errs []string

	if !sourceKinds[strings.ToLower(c.Source.Kind)] {
		errs = append(errs, "source.kind must be one of fixed, replay, nats, none; got "+c.Source.Kind)
	}
	if !permissionSources[strings.ToLower(c.Source.Permission)] {
		errs = append(errs, "source.permission must be one of granted, denied, prompt, none; got "+c.Source.Permission)
	}
	if c.Tracking.DebounceMs < 0 {
		errs = append(errs, "tracking.debounce_ms must not be negative")
	}
	if c.Tracking.TimeoutMs <= 0 {
		errs = append(errs, "tracking.timeout_ms must be positive")
	}
	if c.Tracking.MaxAgeMs < 0 {
		errs = append(errs, "tracking.max_age_ms must not be negative")
	}
	if strings.EqualFold(c.Source.Kind, "replay") && c.Source.Replay.Path == "" {
		errs = append(errs, "source.replay.path is required for replay sources")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// InitLogger installs the global zap logger. Format is json or console; every
// entry carries an app field and ISO 8601 timestamps.
func InitLogger(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}

	var zapCfg zap.Config
	switch strings.ToLower(cfg.Format) {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.DisableStacktrace = true
	case "json", "":
		zapCfg = zap.NewProductionConfig()
	default:
		return eris.Errorf("config: unknown log format %q", cfg.Format)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]any{"app": "eastwest"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
