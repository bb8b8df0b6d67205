package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

// BackendConfig describes the remote REST backend the portal forwards to.
type BackendConfig struct {
	URL                string
	Timeout            time.Duration
	StatusCheckTimeout time.Duration
	DefaultRole        models.Role
}

// GuardConfig tunes route protection.
type GuardConfig struct {
	// Wait is how long a navigation blocks on a status check before showing the pending page.
	Wait time.Duration
	// FreshWindow is how long a backend-confirmed session is trusted without a new check.
	FreshWindow        time.Duration
	RevalidateSchedule string
}

// SessionConfig configures visitor cookies and snapshot persistence.
type SessionConfig struct {
	Secret          string
	CookieName      string
	SecureCookie    bool
	SnapshotBackend string
	SnapshotDir     string
	SnapshotTTL     time.Duration
	ViewerTTL       time.Duration
}

type Config struct {
	Repositories RepositoriesConfig
	Backend      BackendConfig
	Guard        GuardConfig
	Session      SessionConfig
	ServerPort   string
	MetricsAddr  string
	PprofAddr    string
	OTLPEndpoint string
	ServiceName  string

	// AllowedOrigins lists extra origins that may call the portal with credentials.
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
}

const (
	SnapshotMemory   = "memory"
	SnapshotFile     = "file"
	SnapshotPostgres = "postgres"
)

func Load() (*Config, error) {
	defaultRole, ok := models.ParseRole(getEnvOrDefault("DEFAULT_ROLE", "CUSTOMER"))
	if !ok || defaultRole == models.RoleNone {
		return nil, fmt.Errorf("DEFAULT_ROLE must be CUSTOMER or AGENT")
	}

	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5454"),
				DB:       getEnvOrDefault("POSTGRES_DB", "estate_portal"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 10,
				MinConns: 2,
			},
		},
		Backend: BackendConfig{
			URL:                strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://localhost:8080"), "/"),
			Timeout:            getDurationOrDefault("BACKEND_TIMEOUT", 15*time.Second),
			StatusCheckTimeout: getDurationOrDefault("STATUS_CHECK_TIMEOUT", 5*time.Second),
			DefaultRole:        defaultRole,
		},
		Guard: GuardConfig{
			Wait:               getDurationOrDefault("GUARD_WAIT", 2*time.Second),
			FreshWindow:        getDurationOrDefault("FRESH_WINDOW", 30*time.Second),
			RevalidateSchedule: getEnvOrDefault("REVALIDATE_SCHEDULE", "@every 1m"),
		},
		Session: SessionConfig{
			Secret:          getEnvOrDefault("SESSION_SECRET", ""),
			CookieName:      getEnvOrDefault("SESSION_COOKIE", "portal_visitor"),
			SecureCookie:    getBoolOrDefault("SESSION_COOKIE_SECURE", false),
			SnapshotBackend: strings.ToLower(getEnvOrDefault("SNAPSHOT_BACKEND", SnapshotMemory)),
			SnapshotDir:     getEnvOrDefault("SNAPSHOT_DIR", "./data/snapshots"),
			SnapshotTTL:     getDurationOrDefault("SNAPSHOT_TTL", 7*24*time.Hour),
			ViewerTTL:       getDurationOrDefault("VIEWER_TTL", 2*time.Hour),
		},
		ServerPort:     getEnvOrDefault("SERVER_PORT", "8091"),
		MetricsAddr:    getEnvOrDefault("METRICS_ADDR", ":9092"),
		PprofAddr:      getEnvOrDefault("PPROF_ADDR", ":6060"),
		OTLPEndpoint:   getEnvOrDefault("OTLP_ENDPOINT", "localhost:4318"),
		ServiceName:    getEnvOrDefault("SERVICE_NAME", "estate-portal"),
		AllowedOrigins: getListOrDefault("CORS_ALLOWED_ORIGINS", nil),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "console"),
	}

	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required (min 32 chars)")
	}

	switch cfg.Session.SnapshotBackend {
	case SnapshotMemory, SnapshotFile:
	case SnapshotPostgres:
		if cfg.Repositories.Postgres.Password == "" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required for the postgres snapshot backend")
		}
	default:
		return nil, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", cfg.Session.SnapshotBackend)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func getListOrDefault(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
