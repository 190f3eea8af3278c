package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "LOANBOOK"

type Config struct {
	Store string      `mapstructure:"store"`
	Book  string      `mapstructure:"book"`
	Today string      `mapstructure:"today"`
	Redis RedisConfig `mapstructure:"redis"`
	Log   LogConfig   `mapstructure:"log"`
	HTTP  HTTPConfig  `mapstructure:"server"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"store":        "store",
	"book":         "book",
	"today":        "today",
	"redis-addr":   "redis.addr",
	"redis-prefix": "redis.prefix",
	"log-level":    "log.level",
	"addr":         "server.addr",
}

func defaults(v *viper.Viper) {
	v.SetDefault("store", "file")
	v.SetDefault("book", "loanbook.yaml")
	v.SetDefault("today", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "loanbook")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.addr", "0.0.0.0:3000")
}

// Build merges defaults, the config file, LOANBOOK_* environment variables
// and flags, in increasing order of precedence. An empty cfgFile looks for
// an optional loanbook.config.yaml in the working directory.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("loanbook.config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown store %q, expected file or redis", c.Store)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return nil
}

// LogLevel returns the parsed level, falling back to info.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
