package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

// IsProduction reports whether the service runs in production mode.
// Secure cookies are only issued in production.
func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds SQL store configuration.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SQLitePath      string        `yaml:"sqlite_path"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RedisConfig holds Redis configuration. Redis is optional; an empty
// host disables it.
type RedisConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig holds session lifetime policy.
type SessionConfig struct {
	Lifetime    time.Duration `yaml:"lifetime"`
	RenewWithin time.Duration `yaml:"renew_within"`
}

// OAuthProviderConfig holds the client registration for one provider.
type OAuthProviderConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether the provider has credentials.
func (c OAuthProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// OAuthConfig holds external login provider settings.
type OAuthConfig struct {
	GitHub       OAuthProviderConfig `yaml:"github"`
	Google       OAuthProviderConfig `yaml:"google"`
	GoogleIssuer string              `yaml:"google_issuer"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	CookieDomain        string        `yaml:"cookie_domain"`
	TrustedProxies      []string      `yaml:"trusted_proxies"`
	RateLimitEnabled    bool          `yaml:"rate_limit_enabled"`
	RateLimitRPS        int           `yaml:"rate_limit_rps"`
	RateLimitBurst      int           `yaml:"rate_limit_burst"`
	MaxLoginFailures    int           `yaml:"max_login_failures"`
	LoginFailureWindow  time.Duration `yaml:"login_failure_window"`
	MaxConcurrentHashes int64         `yaml:"max_concurrent_hashes"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:        "toolshed",
			Environment: "development",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			User:            "toolshed",
			Database:        "toolshed",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			SQLitePath:      "./data/toolshed.db",
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Port:         6379,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Session: SessionConfig{
			Lifetime:    30 * 24 * time.Hour,
			RenewWithin: 15 * 24 * time.Hour,
		},
		OAuth: OAuthConfig{
			GoogleIssuer: "https://accounts.google.com",
		},
		Security: SecurityConfig{
			RateLimitEnabled:    true,
			RateLimitRPS:        10,
			RateLimitBurst:      20,
			MaxLoginFailures:    10,
			LoginFailureWindow:  15 * time.Minute,
			MaxConcurrentHashes: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from environment variables on top of Defaults.
func Load() *Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a YAML file on top of Defaults, then applies environment
// overrides. Environment variables always win over the file.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Environment = getEnv("APP_ENV", c.App.Environment)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)
	c.Database.SQLitePath = getEnv("DB_SQLITE_PATH", c.Database.SQLitePath)
	c.Database.AutoMigrate = getEnvBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.MinIdleConns = getEnvInt("REDIS_MIN_IDLE_CONNS", c.Redis.MinIdleConns)

	c.Session.Lifetime = getEnvDuration("SESSION_LIFETIME", c.Session.Lifetime)
	c.Session.RenewWithin = getEnvDuration("SESSION_RENEW_WITHIN", c.Session.RenewWithin)

	c.OAuth.GitHub.ClientID = getEnv("GITHUB_CLIENT_ID", c.OAuth.GitHub.ClientID)
	c.OAuth.GitHub.ClientSecret = getEnv("GITHUB_CLIENT_SECRET", c.OAuth.GitHub.ClientSecret)
	c.OAuth.GitHub.RedirectURL = getEnv("GITHUB_REDIRECT_URL", c.OAuth.GitHub.RedirectURL)
	c.OAuth.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", c.OAuth.Google.ClientID)
	c.OAuth.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.OAuth.Google.ClientSecret)
	c.OAuth.Google.RedirectURL = getEnv("GOOGLE_REDIRECT_URL", c.OAuth.Google.RedirectURL)
	c.OAuth.GoogleIssuer = getEnv("GOOGLE_ISSUER", c.OAuth.GoogleIssuer)

	c.Security.CookieDomain = getEnv("COOKIE_DOMAIN", c.Security.CookieDomain)
	c.Security.TrustedProxies = getEnvList("TRUSTED_PROXIES", c.Security.TrustedProxies)
	c.Security.RateLimitEnabled = getEnvBool("RATE_LIMIT_ENABLED", c.Security.RateLimitEnabled)
	c.Security.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", c.Security.RateLimitRPS)
	c.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.Security.RateLimitBurst)
	c.Security.MaxLoginFailures = getEnvInt("MAX_LOGIN_FAILURES", c.Security.MaxLoginFailures)
	c.Security.LoginFailureWindow = getEnvDuration("LOGIN_FAILURE_WINDOW", c.Security.LoginFailureWindow)
	c.Security.MaxConcurrentHashes = int64(getEnvInt("MAX_CONCURRENT_HASHES", int(c.Security.MaxConcurrentHashes)))

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

// Validate reports settings that would make the service misbehave.
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.Driver == DriverSQLite && c.Database.SQLitePath == "" {
		problems = append(problems, "sqlite path is required for the sqlite driver")
	}
	if c.Session.Lifetime <= 0 {
		problems = append(problems, "session lifetime must be positive")
	}
	if c.Session.RenewWithin <= 0 || c.Session.RenewWithin >= c.Session.Lifetime {
		problems = append(problems, "session renew window must be positive and shorter than the lifetime")
	}
	if c.Security.MaxConcurrentHashes < 1 {
		problems = append(problems, "max concurrent hashes must be at least 1")
	}
	if c.OAuth.GitHub.Enabled() && c.OAuth.GitHub.RedirectURL == "" {
		problems = append(problems, "github redirect url is required when github login is enabled")
	}
	if c.OAuth.Google.Enabled() && c.OAuth.Google.RedirectURL == "" {
		problems = append(problems, "google redirect url is required when google login is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
