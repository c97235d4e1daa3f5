package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tunetally/internal/calendar"
)

// DefaultEnvFile is read, when present, before the process environment is consulted.
const DefaultEnvFile = "config/local.env"

// Config holds all application configuration
type Config struct {
	Env string

	Database  DatabaseConfig
	Server    ServerConfig
	Security  SecurityConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Voting    VotingConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds session token settings
type SecurityConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// VotingConfig decides where a voting day starts and ends.
type VotingConfig struct {
	TimeZone string
	Location *time.Location
}

// RedisConfig enables the shared lock when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// RateLimitConfig throttles write requests per client. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from envFile (ignored if missing) and the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{Env: strings.ToLower(getEnvOrDefault("ENV", "development"))}

	loaders := []struct {
		name string
		fn   func() error
	}{
		{"database", cfg.loadDatabase},
		{"server", cfg.loadServer},
		{"security", cfg.loadSecurity},
		{"voting", cfg.loadVoting},
		{"redis", cfg.loadRedis},
		{"rate limit", cfg.loadRateLimit},
	}
	for _, l := range loaders {
		if err := l.fn(); err != nil {
			return nil, fmt.Errorf("load %s config: %w", l.name, err)
		}
	}

	cfg.loadCORS()
	cfg.loadLogging()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadTooling reads the subset of configuration the migrate and seed commands
// need. Serving secrets are not required.
func LoadTooling(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{Env: strings.ToLower(getEnvOrDefault("ENV", "development"))}
	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if err := cfg.loadVoting(); err != nil {
		return nil, fmt.Errorf("load voting config: %w", err)
	}
	cfg.loadLogging()

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("validate config: DATABASE_URL is required (or DB_USER and DB_NAME)")
	}
	return cfg, nil
}

func (c *Config) loadDatabase() error {
	c.Database.URL = os.Getenv("DATABASE_URL")
	if c.Database.URL != "" {
		return nil
	}

	c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
	c.Database.User = os.Getenv("DB_USER")
	c.Database.Password = os.Getenv("DB_PASSWORD")
	c.Database.Name = os.Getenv("DB_NAME")
	c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	c.Database.Port = port

	if c.Database.User != "" && c.Database.Name != "" {
		c.Database.URL = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
			c.Database.SSLMode,
		)
	}
	return nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	return nil
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")

	ttl, err := time.ParseDuration(getEnvOrDefault("TOKEN_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	c.Security.TokenTTL = ttl
	return nil
}

func (c *Config) loadVoting() error {
	c.Voting.TimeZone = getEnvOrDefault("VOTE_TIMEZONE", "Local")
	loc, err := calendar.LoadLocation(c.Voting.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid VOTE_TIMEZONE: %w", err)
	}
	c.Voting.Location = loc
	return nil
}

func (c *Config) loadRedis() error {
	c.Redis.Addr = os.Getenv("REDIS_ADDR")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	db, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	c.Redis.DB = db
	return nil
}

func (c *Config) loadRateLimit() error {
	rps, err := strconv.ParseFloat(getEnvOrDefault("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	burst, err := strconv.Atoi(getEnvOrDefault("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	c.RateLimit.RPS = rps
	c.RateLimit.Burst = burst
	return nil
}

func (c *Config) loadCORS() {
	raw := getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.CORS.AllowedOrigins = origins
}

func (c *Config) loadLogging() {
	c.Logging.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	c.Logging.Format = strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json"))
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var problems []string

	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required (or DB_USER and DB_NAME)")
	}

	if c.Security.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if len(c.Security.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		problems = append(problems, "RATE_LIMIT_BURST must be at least 1 when rate limiting is on")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
