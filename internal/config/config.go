package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath    = "CONFIG_PATH"
	EnvDBConnection  = "DB_CONNECTION"
	EnvJWTSecret     = "JWT_SECRET"
	EnvJWTExpiry     = "JWT_EXPIRY"
	EnvBrokerKey     = "BROKER_API_KEY"
	EnvBrokerSecret  = "BROKER_API_SECRET"
	EnvBrokerURL     = "BROKER_API_URL"
	EnvBrokerDataURL = "BROKER_DATA_API_URL"
	EnvBrokerMode    = "BROKER_MODE"
	EnvRedisAddr     = "RATELIMIT_REDIS_ADDR"
	EnvRedisPassword = "RATELIMIT_REDIS_PASSWORD"
	EnvLoginLimit    = "LOGIN_RATE_LIMIT"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds session token secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// Broker operating modes.
const (
	BrokerModeLive = "live"
	BrokerModeStub = "stub"
)

// BrokerConfig holds brokerage gateway connection settings.
type BrokerConfig struct {
	BaseURL     string        `yaml:"base-url"`
	DataBaseURL string        `yaml:"data-base-url"`
	APIKey      string        `yaml:"api-key"`
	APISecret   string        `yaml:"api-secret"`
	Mode        string        `yaml:"mode"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RateLimitConfig holds login throttling settings.
type RateLimitConfig struct {
	LoginLimit    int           `yaml:"login-limit"`
	Window        time.Duration `yaml:"window"`
	RedisAddr     string        `yaml:"redis-addr"`
	RedisPassword string        `yaml:"redis-password"`
	RedisDB       int           `yaml:"redis-db"`
	RedisPrefix   string        `yaml:"redis-prefix"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates session expiry.
const defaultJWTExpiry = 24 * time.Hour

// LoadJWTConfig loads session token settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for session token settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// defaultBrokerTimeout bounds every gateway round trip.
const defaultBrokerTimeout = 30 * time.Second

// LoadBrokerConfig loads brokerage gateway settings from the YAML config file
// with environment overrides.
func LoadBrokerConfig(configPath string) (BrokerConfig, error) {
	// fileConfig maps the YAML fields needed for broker settings.
	type fileConfig struct {
		Broker BrokerConfig `yaml:"broker"`
	}

	result := BrokerConfig{Mode: BrokerModeLive, Timeout: defaultBrokerTimeout}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Broker
		}
	}

	if url := strings.TrimSpace(os.Getenv(EnvBrokerURL)); url != "" {
		result.BaseURL = url
	}
	if url := strings.TrimSpace(os.Getenv(EnvBrokerDataURL)); url != "" {
		result.DataBaseURL = url
	}
	if key := strings.TrimSpace(os.Getenv(EnvBrokerKey)); key != "" {
		result.APIKey = key
	}
	if secret := strings.TrimSpace(os.Getenv(EnvBrokerSecret)); secret != "" {
		result.APISecret = secret
	}
	if mode := strings.TrimSpace(os.Getenv(EnvBrokerMode)); mode != "" {
		result.Mode = mode
	}

	switch result.Mode {
	case "", BrokerModeLive:
		result.Mode = BrokerModeLive
	case BrokerModeStub:
	default:
		return BrokerConfig{}, fmt.Errorf("unknown broker mode: %q", result.Mode)
	}

	if result.Timeout <= 0 {
		result.Timeout = defaultBrokerTimeout
	}

	if result.Mode == BrokerModeLive {
		if strings.TrimSpace(result.BaseURL) == "" {
			return BrokerConfig{}, errors.New("missing broker base-url")
		}
		if strings.TrimSpace(result.APIKey) == "" || strings.TrimSpace(result.APISecret) == "" {
			return BrokerConfig{}, errors.New("missing broker api credentials")
		}
		if strings.TrimSpace(result.DataBaseURL) == "" {
			result.DataBaseURL = result.BaseURL
		}
	}
	return result, nil
}

// Login throttling defaults: attempts per source address per window.
const (
	defaultLoginLimit      = 10
	defaultLoginWindow     = time.Minute
	defaultRateLimitPrefix = "brokergate:ratelimit"
)

// LoadRateLimitConfig loads login throttling settings from the YAML config
// file with environment overrides.
func LoadRateLimitConfig(configPath string) (RateLimitConfig, error) {
	// fileConfig maps the YAML fields needed for throttling settings.
	type fileConfig struct {
		RateLimit RateLimitConfig `yaml:"rate-limit"`
	}

	result := RateLimitConfig{
		LoginLimit:  defaultLoginLimit,
		Window:      defaultLoginWindow,
		RedisPrefix: defaultRateLimitPrefix,
	}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.RateLimit
		}
	}
	if result.LoginLimit <= 0 {
		result.LoginLimit = defaultLoginLimit
	}
	if result.Window <= 0 {
		result.Window = defaultLoginWindow
	}
	if strings.TrimSpace(result.RedisPrefix) == "" {
		result.RedisPrefix = defaultRateLimitPrefix
	}

	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		result.RedisAddr = addr
	}
	if password := strings.TrimSpace(os.Getenv(EnvRedisPassword)); password != "" {
		result.RedisPassword = password
	}
	if limitRaw := strings.TrimSpace(os.Getenv(EnvLoginLimit)); limitRaw != "" {
		limit, errParse := strconv.Atoi(limitRaw)
		if errParse != nil || limit < 0 {
			return RateLimitConfig{}, fmt.Errorf("invalid %s: %q", EnvLoginLimit, limitRaw)
		}
		result.LoginLimit = limit
	}

	if result.RedisDB < 0 {
		result.RedisDB = 0
	}
	return result, nil
}
