/*
Package config loads application configuration with viper.

PURPOSE:
  One Config struct for the whole process: server, database, quota and
  logging settings. Values come from an optional YAML file plus
  OVERTIME_-prefixed environment variables (env wins), with sane
  defaults so the server starts with no file at all.

EXAMPLE (config.yaml):
  server:
    port: 8080
    cors:
      allow_origins: ["http://localhost:5173"]
  db:
    path: ./data/overtime.db
  quota:
    hours_per_employee: 2.5
  log:
    level: info
    format: json

ENVIRONMENT:
  OVERTIME_SERVER_PORT, OVERTIME_DB_PATH,
  OVERTIME_QUOTA_HOURS_PER_EMPLOYEE, OVERTIME_LOG_LEVEL, ...
*/
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Quota  QuotaConfig  `mapstructure:"quota"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type DBConfig struct {
	// Path is the SQLite database file; ":memory:" for ephemeral runs.
	Path string `mapstructure:"path"`
}

type QuotaConfig struct {
	// HoursPerEmployee is a supervisor's delegated monthly payout budget
	// per subordinate. Zero or negative disables fast-path approval
	// entirely, escalating every payout to the plant manager.
	HoursPerEmployee float64 `mapstructure:"hours_per_employee"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

// Load reads configuration from the given file (optional) and the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("db.path", "overtime.db")
	v.SetDefault("quota.hours_per_employee", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix("OVERTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return &cfg, nil
}
