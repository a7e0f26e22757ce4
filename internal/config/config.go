package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Backend    Backend    `mapstructure:"backend"`
	Store      Store      `mapstructure:"store"`
	Server     Server     `mapstructure:"server"`
	Logger     Logger     `mapstructure:"logger"`
	DevBackend DevBackend `mapstructure:"devbackend"`
}

// Backend holds the configuration for the remote trading backend API.
type Backend struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Store holds the refresh timing of the trade store.
type Store struct {
	BalanceInterval time.Duration `mapstructure:"balance_interval"`
}

// Server holds the configuration for the dashboard web server.
type Server struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	Stderr     bool   `mapstructure:"stderr"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DevBackend holds the configuration for the local stand-in backend.
type DevBackend struct {
	Port int    `mapstructure:"port"`
	DSN  string `mapstructure:"dsn"`
	Seed bool   `mapstructure:"seed"`
}

func setDefaults() {
	viper.SetDefault("backend.base_url", "http://localhost:5000/api/v1")
	viper.SetDefault("backend.timeout", 15*time.Second)
	viper.SetDefault("backend.rate_limit", 10) // requests per second
	viper.SetDefault("backend.rate_limit_burst", 5)

	viper.SetDefault("store.balance_interval", 60*time.Second)

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.file", "")
	viper.SetDefault("logger.stderr", true)
	viper.SetDefault("logger.max_size", 50) // megabytes
	viper.SetDefault("logger.max_backups", 3)
	viper.SetDefault("logger.max_age", 7) // days

	viper.SetDefault("devbackend.port", 5000)
	viper.SetDefault("devbackend.dsn", "file:devbackend.db")
	viper.SetDefault("devbackend.seed", true)
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and the environment are used instead.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err = viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	err = config.Validate()
	return
}

// Validate checks the values the dashboard cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url must not be empty")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be positive")
	}
	if c.Store.BalanceInterval <= 0 {
		return errors.New("store.balance_interval must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	return nil
}

// OnChange watches the loaded config file and calls fn with the re-decoded
// configuration after every write. Decoding failures are passed as err.
func OnChange(fn func(cfg Config, err error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var cfg Config
		if err := viper.Unmarshal(&cfg); err != nil {
			fn(cfg, fmt.Errorf("failed to decode config after %s: %w", e.Name, err))
			return
		}
		fn(cfg, cfg.Validate())
	})
	viper.WatchConfig()
}
