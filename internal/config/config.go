package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Env      string `mapstructure:"ENV"`
	Port     int    `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	// Redis (rate limiting and idempotency; optional)
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Mailer: "smtp", "ses" or "log"
	MailerDriver string `mapstructure:"MAILER_DRIVER"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPFromName string `mapstructure:"SMTP_FROM_NAME"`
	AWSRegion    string `mapstructure:"AWS_REGION"`
	SESFromEmail string `mapstructure:"SES_FROM_EMAIL"`

	// Delivery worker
	WorkerPollInterval time.Duration `mapstructure:"WORKER_POLL_INTERVAL"`
	WorkerBatchSize    int           `mapstructure:"WORKER_BATCH_SIZE"`
	WorkerSendTimeout  time.Duration `mapstructure:"WORKER_SEND_TIMEOUT"`

	// Base URL of the SPA, used for deep links in reminder emails.
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Per-user rate limit on the write path
	RateLimit       int           `mapstructure:"RATE_LIMIT"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; environment variables alone are enough.
func LoadConfig(path string) (config Config, err error) {
	viper.SetDefault("ENV", "development")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "hevaul")
	viper.SetDefault("DB_PASSWORD", "")
	viper.SetDefault("DB_NAME", "hevaul")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("MAILER_DRIVER", "smtp")
	viper.SetDefault("SMTP_HOST", "localhost")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_FROM", "noreply@hevaul.local")
	viper.SetDefault("SMTP_FROM_NAME", "Hevaul AI")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("SES_FROM_EMAIL", "noreply@hevaul.local")

	viper.SetDefault("WORKER_POLL_INTERVAL", "60s")
	viper.SetDefault("WORKER_BATCH_SIZE", 10)
	viper.SetDefault("WORKER_SEND_TIMEOUT", "30s")

	viper.SetDefault("FRONTEND_URL", "http://localhost:5173")

	viper.SetDefault("RATE_LIMIT", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	// Prefer environment variables over the config file
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
		if err = viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return
			}
			err = nil
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	err = validateConfig(config)
	return
}

func validateConfig(config Config) error {
	switch config.MailerDriver {
	case "smtp", "ses", "log":
	default:
		return fmt.Errorf("MAILER_DRIVER must be smtp, ses or log, got %q", config.MailerDriver)
	}
	if config.WorkerBatchSize <= 0 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if config.WorkerPollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}
	return nil
}
