package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Realtime RealtimeConfig
	AWS      AWSConfig
	Admin    AdminConfig
	Store    StoreConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	ShutdownTimeout    int
	CORSAllowedOrigins []string // "*" allows all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/showcase?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// RealtimeConfig tunes the websocket coordinator.
type RealtimeConfig struct {
	PersistTimeout time.Duration
	SendBuffer     int
	InboxBuffer    int
	AllowedOrigins []string
}

// AWSConfig holds AWS credentials and the archive bucket. An empty bucket disables archive upload.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ArchiveBucket        string
	PresignExpireMinutes int
}

// AdminConfig is the bootstrap admin account created on startup when missing.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			ShutdownTimeout:    getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
			CORSAllowedOrigins: splitTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "showcase"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 0),
			MinConns: getEnvInt("DB_MIN_CONNS", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Realtime: RealtimeConfig{
			PersistTimeout: time.Duration(getEnvInt("REALTIME_PERSIST_TIMEOUT_MS", 5000)) * time.Millisecond,
			SendBuffer:     getEnvInt("REALTIME_SEND_BUFFER", 256),
			InboxBuffer:    getEnvInt("REALTIME_INBOX_BUFFER", 64),
			AllowedOrigins: splitTrim(getEnv("REALTIME_ALLOWED_ORIGINS", "*"), ","),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ArchiveBucket:        getEnv("AWS_S3_ARCHIVE_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Admin"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Realtime.PersistTimeout <= 0 {
		return errors.New("REALTIME_PERSIST_TIMEOUT_MS must be positive")
	}
	if c.Realtime.SendBuffer <= 0 || c.Realtime.InboxBuffer <= 0 {
		return errors.New("realtime buffers must be positive")
	}
	return nil
}

// OriginSet returns the allowed websocket origins as a lookup set.
func (c RealtimeConfig) OriginSet() map[string]bool {
	m := make(map[string]bool, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		m[o] = true
	}
	return m
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
