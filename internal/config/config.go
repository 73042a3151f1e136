// Package config loads the application configuration from config.yaml and
// THRIFTSCOUT_-prefixed environment variables, and initializes the global
// zap logger.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loopline/thriftscout/internal/discovery"
)

// StoreConfig selects and configures the persistence driver.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`
}

// PlacesConfig configures the place provider client.
type PlacesConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // override for tests/proxies
}

// ServerConfig configures the JSON API server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Config is the root configuration.
type Config struct {
	Store     StoreConfig      `mapstructure:"store"`
	Places    PlacesConfig     `mapstructure:"places"`
	Discovery discovery.Config `mapstructure:"discovery"`
	Server    ServerConfig     `mapstructure:"server"`
	Log       LogConfig        `mapstructure:"log"`
}

// Load reads configuration from the given file, or from config.yaml in the
// working directory and ~/.thriftscout when path is empty. Environment
// variables with the THRIFTSCOUT_ prefix override file values. A missing
// default config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "thriftscout.db")
	v.SetDefault("places.api_key", "")
	v.SetDefault("places.base_url", "")
	v.SetDefault("discovery.cache_ttl", 24*time.Hour)
	v.SetDefault("discovery.max_provider_results", 60)
	v.SetDefault("discovery.export_dir", "exports")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix("THRIFTSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrapf(err, "config: read %s", path)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.thriftscout")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, eris.Wrap(err, "config: read config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// InitLogger builds the global zap logger from the log section and installs
// it with zap.ReplaceGlobals.
func InitLogger(lc LogConfig) error {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return eris.Wrapf(err, "config: parse log level %q", lc.Level)
	}

	var zcfg zap.Config
	if lc.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
