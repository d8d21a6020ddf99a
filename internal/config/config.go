package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel                string
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	JWTSecret               string
	JWTAccessTTL            time.Duration
	ResetTokenTTL           time.Duration
	ResetTokenSingleUse     bool
	ResetURLBase            string
	TokenCleanupInterval    time.Duration
	BcryptCost              int
	HashWorkers             int
	CORSOrigins             []string
	TrustProxyHeaders       bool
	RateLimitRPM            int
	AuthRateLimitRPM        int
	Mail                    MailConfig
}

type MailConfig struct {
	From     string
	Server   string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Missing lists the unset mail settings by their environment names.
func (m MailConfig) Missing() []string {
	missing := make([]string, 0)
	if m.From == "" {
		missing = append(missing, "MAIL_FROM")
	}
	if m.Server == "" {
		missing = append(missing, "MAIL_SERVER")
	}
	if m.Port <= 0 {
		missing = append(missing, "MAIL_PORT")
	}
	if m.Username == "" {
		missing = append(missing, "MAIL_USERNAME")
	}
	if m.Password == "" {
		missing = append(missing, "MAIL_PASSWORD")
	}
	return missing
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:                LoadLogLevel(),
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:            getDuration("JWT_ACCESS_TTL", 30*time.Minute),
		ResetTokenTTL:           getDuration("RESET_TOKEN_TTL", 15*time.Minute),
		ResetTokenSingleUse:     getBool("RESET_TOKEN_SINGLE_USE", true),
		ResetURLBase:            getEnv("RESET_URL_BASE", "http://localhost:5173/reset-password"),
		TokenCleanupInterval:    getDuration("TOKEN_CLEANUP_INTERVAL", 10*time.Minute),
		BcryptCost:              getInt("BCRYPT_COST", 12),
		HashWorkers:             getInt("HASH_WORKERS", runtime.NumCPU()),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		TrustProxyHeaders:       getBool("TRUST_PROXY_HEADERS", false),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 20),
		Mail: MailConfig{
			From:     strings.TrimSpace(os.Getenv("MAIL_FROM")),
			Server:   strings.TrimSpace(os.Getenv("MAIL_SERVER")),
			Port:     getInt("MAIL_PORT", 0),
			Username: strings.TrimSpace(os.Getenv("MAIL_USERNAME")),
			Password: os.Getenv("MAIL_PASSWORD"),
			Timeout:  getDuration("MAIL_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadLogLevel reads LOG_LEVEL after .env is applied, so the logger can be
// set up before the full configuration is validated.
func LoadLogLevel() string {
	_ = godotenv.Load()
	return getEnv("LOG_LEVEL", "info")
}

// LoadDatabaseURL reads only DATABASE_URL, for commands that never serve
// requests and so need no signing secret.
func LoadDatabaseURL() (string, error) {
	_ = godotenv.Load()

	url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if url == "" {
		return "", fmt.Errorf("DATABASE_URL is required")
	}
	return url, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS and DB_MAX_CONNS must satisfy 0 <= min <= max, max > 0")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}

	if c.ResetTokenTTL <= 0 {
		return fmt.Errorf("RESET_TOKEN_TTL must be positive")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}

	if c.HashWorkers <= 0 {
		return fmt.Errorf("HASH_WORKERS must be positive")
	}

	if c.Mail.Timeout <= 0 {
		return fmt.Errorf("MAIL_TIMEOUT must be positive")
	}

	if strings.TrimSpace(c.ResetURLBase) == "" {
		return fmt.Errorf("RESET_URL_BASE cannot be empty")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
