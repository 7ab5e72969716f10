package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "SCHOOLBOARD"
	defaultHTTPAddress    = "0.0.0.0:3000"
	defaultDatabasePath   = "schoolboard.db"
	defaultStorageDriver  = StorageDriverSQLite
	defaultRedisAddress   = "localhost:6379"
	defaultAPIBaseURL     = "http://localhost:3000"
	defaultAPITimeoutSecs = 10
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

const (
	// StorageDriverSQLite persists records through GORM on SQLite.
	StorageDriverSQLite = "sqlite"
	// StorageDriverRedis persists records as Redis hashes.
	StorageDriverRedis = "redis"
)

// AppConfig captures runtime configuration for the API server and the CLI client.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	StorageDriver string
	RedisAddress  string
	RedisDB       int
	APIBaseURL    string
	APITimeout    time.Duration
	LogLevel      string
	LogFormat     string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("api.timeout_seconds", defaultAPITimeoutSecs)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
}

// LoadServer parses configuration for the API server and validates the
// listener and storage settings.
func LoadServer(configViper *viper.Viper) (AppConfig, error) {
	cfg := read(configViper)
	if err := cfg.validateServer(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// LoadClient parses configuration for CLI commands that talk to the API.
// Storage settings are not consulted.
func LoadClient(configViper *viper.Viper) (AppConfig, error) {
	cfg := read(configViper)
	if err := cfg.validateClient(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func read(configViper *viper.Viper) AppConfig {
	return AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		DatabasePath:  configViper.GetString("database.path"),
		StorageDriver: strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
		RedisAddress:  configViper.GetString("redis.address"),
		RedisDB:       configViper.GetInt("redis.db"),
		APIBaseURL:    strings.TrimRight(strings.TrimSpace(configViper.GetString("api.base_url")), "/"),
		APITimeout:    time.Duration(configViper.GetInt("api.timeout_seconds")) * time.Second,
		LogLevel:      configViper.GetString("log.level"),
		LogFormat:     configViper.GetString("log.format"),
	}
}

func (c AppConfig) validateServer() error {
	switch c.StorageDriver {
	case StorageDriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case StorageDriverRedis:
		if strings.TrimSpace(c.RedisAddress) == "" {
			return fmt.Errorf("redis.address is required")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", StorageDriverSQLite, StorageDriverRedis, c.StorageDriver)
	}
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	return nil
}

func (c AppConfig) validateClient() error {
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}
	return nil
}
