package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all server configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Replay   ReplayConfig   `mapstructure:"replay"`
}

// ServerConfig holds listener settings
type ServerConfig struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// HTTPConfig holds the JSON API listener settings
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// GRPCConfig holds gRPC server settings
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"maxConcurrentStreams"`
}

// WebSocketConfig holds view push settings
type WebSocketConfig struct {
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	PingInterval time.Duration `mapstructure:"pingInterval"`
	SendBuffer   int           `mapstructure:"sendBuffer"`
}

// DatabaseConfig selects and configures the game store
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	URL        string `mapstructure:"url"`
	SQLitePath string `mapstructure:"sqlitePath"`
	MaxConns   int    `mapstructure:"maxConns"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RulesConfig points at an optional ruleset file. Empty means the built-in rules.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// ReplayConfig controls the per-game action journal
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

const envPrefix = "STAG"

// Load reads configuration from path, then applies STAG_* environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.readTimeout", 10*time.Second)
	v.SetDefault("server.http.writeTimeout", 10*time.Second)
	v.SetDefault("server.http.shutdownTimeout", 15*time.Second)
	v.SetDefault("server.grpc.address", ":17171")
	v.SetDefault("server.grpc.maxConcurrentStreams", 1000)
	v.SetDefault("server.websocket.writeTimeout", 5*time.Second)
	v.SetDefault("server.websocket.pingInterval", 30*time.Second)
	v.SetDefault("server.websocket.sendBuffer", 16)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlitePath", "data/stag.db")
	v.SetDefault("database.maxConns", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("rules.path", "")

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "data/replay")
}

// Validate checks settings that would otherwise fail late at startup
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlitePath is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Replay.Enabled && c.Replay.Dir == "" {
		return fmt.Errorf("replay.dir is required when replay is enabled")
	}
	return nil
}
