package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC listener

	Env      string // "dev" | "prod"
	LogLevel string

	// Storage
	Store       string // memory | sqlite | postgres
	DBPath      string // e.g. "./data/gatekeeper.db"
	PostgresDSN string

	// Rate limiting; RedisAddr switches from the in-process limiter to Redis.
	RedisAddr       string
	RateLimitMax    int
	RateLimitWindow time.Duration
	// TrustedProxies lists CIDRs or addresses whose X-Forwarded-For is
	// honoured.  Empty keys the limiter on the TCP peer only.
	TrustedProxies []string

	LogWriteTimeout time.Duration

	// Access log retention
	AccessLogRetentionDays int // 0 = keep forever
	PruneIntervalHours     int

	// AdminToken guards /v1/admin.  Empty leaves the admin API unmounted.
	AdminToken string

	// SeedDev loads the fixed development tenants at startup.  Off unless
	// GATEKEEPER_SEED_DEV is set; ignored in prod.
	SeedDev bool
}

// Load reads an optional .env file (existing environment wins) and then
// builds the config from the environment.
func Load(envFiles ...string) Config {
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("GATEKEEPER_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	storeKind := strings.ToLower(getenvDefault("GATEKEEPER_STORE", StoreSQLite))
	switch storeKind {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		storeKind = StoreSQLite
	}

	return Config{
		HTTPAddr: getenvDefault("GATEKEEPER_HTTP_ADDR", ":8080"),
		GRPCAddr: strings.TrimSpace(os.Getenv("GATEKEEPER_GRPC_ADDR")),

		Env:      env,
		LogLevel: getenvDefault("GATEKEEPER_LOG_LEVEL", "info"),

		Store:       storeKind,
		DBPath:      getenvDefault("GATEKEEPER_DB_PATH", "./data/gatekeeper.db"),
		PostgresDSN: strings.TrimSpace(os.Getenv("GATEKEEPER_POSTGRES_DSN")),

		RedisAddr:       strings.TrimSpace(os.Getenv("GATEKEEPER_REDIS_ADDR")),
		RateLimitMax:    getenvInt("GATEKEEPER_RATE_LIMIT_MAX", 60),
		RateLimitWindow: time.Duration(getenvInt("GATEKEEPER_RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		TrustedProxies:  getenvList("GATEKEEPER_TRUSTED_PROXIES"),

		LogWriteTimeout: time.Duration(getenvInt("GATEKEEPER_LOG_WRITE_TIMEOUT_MS", 2000)) * time.Millisecond,

		AccessLogRetentionDays: getenvInt("GATEKEEPER_ACCESS_LOG_RETENTION_DAYS", 365),
		PruneIntervalHours:     getenvInt("GATEKEEPER_PRUNE_INTERVAL_HOURS", 6),

		AdminToken: strings.TrimSpace(os.Getenv("GATEKEEPER_ADMIN_TOKEN")),

		SeedDev: getenvBool("GATEKEEPER_SEED_DEV", false),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvList splits a comma separated value, dropping empty entries.
func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
