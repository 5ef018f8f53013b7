package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	ShutdownGrace time.Duration
	AdminToken    string
	JWT           JWTConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Audit         AuditConfig
	LocationsCSV  string
	Log           LogConfig
	// Zone decides which calendar day "today" is when a request omits a date.
	Zone          *time.Location
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
}

// DatabaseConfig selects the donation record store. An empty URL keeps
// records in memory.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig selects the donor profile store. An empty URL keeps profiles
// in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig selects the audit sink. Without brokers, events stay in memory.
type AuditConfig struct {
	Brokers    []string
	Topic      string
	BufferSize int
}

type LogConfig struct {
	Level  string
	Format string
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	intVar := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be a non-negative integer", key))
			return def
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		v, err := time.ParseDuration(raw)
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be a positive duration", key))
			return def
		}
		return v
	}

	cfg := Server{
		Addr:          getenv("DONORCAL_ADDR", ":8080"),
		ShutdownGrace: durationVar("SHUTDOWN_GRACE", 10*time.Second),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		JWT: JWTConfig{
			// Use a default for development - should be overridden in production
			SigningKey: getenv("JWT_SIGNING_KEY", devSigningKey),
			Issuer:     getenv("JWT_ISSUER", "donorcal"),
			Audience:   getenv("JWT_AUDIENCE", "donorcal-api"),
			TokenTTL:   durationVar("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: intVar("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: intVar("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intVar("REDIS_POOL_SIZE", 10),
			MinIdleConns: intVar("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationVar("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationVar("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationVar("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:      getenv("AUDIT_TOPIC", "donorcal.audit"),
			BufferSize: intVar("AUDIT_BUFFER_SIZE", 1024),
		},
		LocationsCSV: os.Getenv("LOCATIONS_CSV"),
		Zone:         time.UTC,
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}

	zone := getenv("DONORCAL_TIMEZONE", "Asia/Tokyo")
	if loc, err := time.LoadLocation(zone); err != nil {
		errs = append(errs, fmt.Sprintf("DONORCAL_TIMEZONE %q is not a known zone", zone))
	} else {
		cfg.Zone = loc
	}
	if cfg.Audit.BufferSize == 0 {
		errs = append(errs, "AUDIT_BUFFER_SIZE must be positive")
	}
	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// UsesDevSigningKey reports whether tokens are signed with the built-in key.
func (s Server) UsesDevSigningKey() bool {
	return s.JWT.SigningKey == devSigningKey
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
