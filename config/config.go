// Package config loads and validates the dbboot configuration.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// DefaultDatabase is the project-wide database name used when the
// configuration does not name one. Deployments that need a different
// target set database.name explicitly.
const DefaultDatabase = "documents"

// DatabaseConfig holds the driver connection parameters. Everything except
// Name is opaque passthrough to the driver: dbboot assembles a URI from it
// but never interprets credentials or TLS material itself.
type DatabaseConfig struct {
	// URI is the full connection string. When set it wins over
	// Host/Port/Username/Password.
	URI      string `mapstructure:"uri"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Name is the target database. Empty means DefaultDatabase.
	Name string `mapstructure:"name"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

// Config holds all configuration for the dbboot service.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// LoadConfig loads configuration from file and environment variables.
// Search order: defaults, then config.yaml in . or ./config, then
// DBBOOT_-prefixed environment variables.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("database.uri", "")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 27017)
	viper.SetDefault("database.username", "")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "")
	viper.SetDefault("database.connect_timeout", 10*time.Second)
	viper.SetDefault("database.max_pool_size", 10)
	viper.SetDefault("log.level", "info")
}

func loadFromEnv() {
	viper.SetEnvPrefix("DBBOOT")
	viper.AutomaticEnv()

	// Explicit bindings so the common settings get short, clean env names
	_ = viper.BindEnv("database.uri", "DBBOOT_DATABASE_URI")
	_ = viper.BindEnv("database.host", "DBBOOT_DATABASE_HOST")
	_ = viper.BindEnv("database.port", "DBBOOT_DATABASE_PORT")
	_ = viper.BindEnv("database.username", "DBBOOT_DATABASE_USERNAME")
	_ = viper.BindEnv("database.password", "DBBOOT_DATABASE_PASSWORD")
	_ = viper.BindEnv("database.name", "DBBOOT_DATABASE_NAME")
	_ = viper.BindEnv("log.level", "DBBOOT_LOG_LEVEL")
}

// Validate performs structural checks on the configuration. Credentials are
// passthrough and deliberately not inspected beyond URL-escaping needs.
func (c *Config) Validate() error {
	db := &c.Database
	if db.URI == "" {
		if db.Host == "" {
			return fmt.Errorf("database.host is required when database.uri is not set")
		}
		if db.Port < 1 || db.Port > 65535 {
			return fmt.Errorf("database.port must be between 1 and 65535, got %d", db.Port)
		}
	}
	if db.ConnectTimeout < 0 {
		return fmt.Errorf("database.connect_timeout must not be negative")
	}
	return nil
}

// EffectiveDatabase returns the target database name, falling back to
// DefaultDatabase when the configuration leaves it empty.
func (c *Config) EffectiveDatabase() string {
	if c.Database.Name == "" {
		return DefaultDatabase
	}
	return c.Database.Name
}

// EffectiveURI returns the connection URI, assembling one from the
// host/port/credential fields when no explicit URI was configured.
func (c *Config) EffectiveURI() string {
	db := &c.Database
	if db.URI != "" {
		return db.URI
	}

	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
	}
	if db.Username != "" {
		if db.Password != "" {
			u.User = url.UserPassword(db.Username, db.Password)
		} else {
			u.User = url.User(db.Username)
		}
	}
	return u.String()
}
