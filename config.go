package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"tweetty/database"
	"tweetty/storage"
)

// Config is the configuration of the app. It's read from a .config.json file
// and TWEETTY_* environment variables, e.g. TWEETTY_DATABASE_HOST for database.host.
type Config struct {
	Port         int             `mapstructure:"port"`
	Env          string          `mapstructure:"env"`
	LogLevel     string          `mapstructure:"log_level"`
	APIKeyPrefix string          `mapstructure:"api_key_prefix"`
	Database     database.Config `mapstructure:"database"`
	Media        MediaConfig     `mapstructure:"media"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// MediaConfig configures where uploaded files go and the upload limits.
type MediaConfig struct {
	// Backend is either "disk" or "s3".
	Backend           string            `mapstructure:"backend"`
	Root              string            `mapstructure:"root"`
	URLPrefix         string            `mapstructure:"url_prefix"`
	MinSize           int64             `mapstructure:"min_size"`
	MaxSize           int64             `mapstructure:"max_size"`
	WriteRetries      int               `mapstructure:"write_retries"`
	InsertRetryBudget time.Duration     `mapstructure:"insert_retry_budget"`
	S3                storage.S3Config `mapstructure:"s3"`
}

// RateLimitConfig limits the api requests per client IP.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// IsProd reports whether the app runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// setDefaults registers the development defaults. Every key has to be known to
// viper for its environment variable to be picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 1111)
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "")
	v.SetDefault("api_key_prefix", "tweetty_")

	v.SetDefault("database.driver", database.DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "tweetty")
	v.SetDefault("database.dsn", "")

	v.SetDefault("media.backend", "disk")
	v.SetDefault("media.root", "media")
	v.SetDefault("media.url_prefix", "/static")
	v.SetDefault("media.min_size", 1)
	v.SetDefault("media.max_size", 100<<20)
	v.SetDefault("media.write_retries", 3)
	v.SetDefault("media.insert_retry_budget", 5*time.Second)
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.region", "auto")
	v.SetDefault("media.s3.endpoint", "")
	v.SetDefault("media.s3.access_key_id", "")
	v.SetDefault("media.s3.secret_access_key", "")
	v.SetDefault("media.s3.public_url", "")

	v.SetDefault("rate_limit.requests", 600)
	v.SetDefault("rate_limit.window", time.Minute)
}

// LoadConfig loads the configuration from the config file, if present, and the
// environment. A .env file is loaded into the environment first. In production
// the config file is required and a missing one is an error.
func LoadConfig(v *viper.Viper, configFile string, isProd bool) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("err loading .env file: %w", err)
	}

	setDefaults(v)
	v.SetEnvPrefix("tweetty")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configFile)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		if isProd || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("err reading %s: %w", configFile, err)
		}
	} else {
		logrus.WithField("file", configFile).Info("loaded config file")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("err decoding config: %w", err)
	}
	if isProd {
		c.Env = "prod"
	}
	return c, nil
}

// setupLogging configures the standard logrus logger for the app.
// Logs are written as json to stdout.
func setupLogging(c Config) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level := c.LogLevel
	if level == "" {
		level = "debug"
		if c.IsProd() {
			level = "info"
		}
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}
