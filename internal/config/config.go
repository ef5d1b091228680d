package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "HuongHan Store"
	defaultAppEnv          = "development"
	defaultPort            = "3000"
	defaultLogLevel        = "info"
	defaultMongoDB         = "storefront"
	defaultSessionCookie   = "storefront.sid"
	defaultSessionTTL      = 24 * time.Hour
	defaultOTPTTL          = 60 * time.Second
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultSMTPHost        = "smtp.gmail.com"
	defaultSMTPPort        = "587"
	defaultLoginRate       = 5
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	Env            string
	Port           string
	LogLevel       string
	DatabaseURL    string
	MongoURI       string
	MongoDB        string
	RedisURL       string
	SessionCookie  string
	SessionTTL     time.Duration
	OTPTTL         time.Duration
	BcryptCost     int
	LoginRate      int
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	SMTP           SMTPConfig
}

// SMTPConfig holds outbound mail settings. An empty Host disables SMTP delivery.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Enabled reports whether enough settings are present to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Username != ""
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		Env:            getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDB:        getEnv("MONGO_DB", defaultMongoDB),
		RedisURL:       os.Getenv("REDIS_URL"),
		SessionCookie:  getEnv("SESSION_COOKIE", defaultSessionCookie),
		SessionTTL:     defaultSessionTTL,
		OTPTTL:         defaultOTPTTL,
		BcryptCost:     10,
		LoginRate:      defaultLoginRate,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", defaultSMTPHost),
			Port:     getEnv("SMTP_PORT", defaultSMTPPort),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
		},
	}
	cfg.SMTP.From = getEnv("SMTP_FROM", fmt.Sprintf("%q <%s>", cfg.AppName, cfg.SMTP.Username))

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationFromEnv("", "SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationFromEnv("", "OTP_TTL", cfg.OTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = intFromEnv("BCRYPT_COST", cfg.BcryptCost); err != nil {
		return Config{}, err
	}
	if cfg.LoginRate, err = intFromEnv("LOGIN_RATE_PER_MINUTE", cfg.LoginRate); err != nil {
		return Config{}, err
	}

	if cfg.OTPTTL <= 0 {
		return Config{}, fmt.Errorf("OTP_TTL must be positive")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" && cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or MONGO_URI must be set when APP_ENV=%s", cfg.Env)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.Env)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the service runs in a local development environment,
// where in-memory stores stand in for Postgres/Mongo and Redis.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
