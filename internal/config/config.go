package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/gatehouse.db"

	KnownNodes []string

	// Cloud correlation
	RedisAddr        string // empty selects the in-process channel
	RequestTopic     string
	ResponseTopic    string
	CheckoutTopic    string
	CloudTimeout     time.Duration
	FallbackResource string

	FreshnessWindow time.Duration

	// Heartbeat retention
	HeartbeatRetentionDays int // 0 = keep forever
	PruneIntervalHours     int // how often the pruner runs (default 6)

	LogLevel string // "debug" | "info" | "warn" | "error"
}

// FromEnv loads configuration from the environment, after merging in a
// .env file if one is present. Every value is fail-soft: malformed input
// falls back to a safe default rather than aborting startup.
func FromEnv() Config {
	// Missing .env is the normal case outside local dev.
	_ = godotenv.Load()

	addr := getenvDefault("GATEHOUSE_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("GATEHOUSE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("GATEHOUSE_DB_PATH", "./data/gatehouse.db")

	knownNodes := splitCSV(os.Getenv("GATEHOUSE_KNOWN_NODES"))

	redisAddr := strings.TrimSpace(os.Getenv("GATEHOUSE_REDIS_ADDR"))

	cloudTimeout := getenvDuration("GATEHOUSE_CLOUD_TIMEOUT", 5*time.Second)
	freshness := getenvDuration("GATEHOUSE_FRESHNESS_WINDOW", 4*time.Hour)

	retentionDays := getenvInt("GATEHOUSE_HEARTBEAT_RETENTION_DAYS", 30)
	pruneInterval := getenvInt("GATEHOUSE_PRUNE_INTERVAL_HOURS", 6)

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		KnownNodes: knownNodes,

		RedisAddr:        redisAddr,
		RequestTopic:     getenvDefault("GATEHOUSE_REQUEST_TOPIC", "gatehouse.auth.requests"),
		ResponseTopic:    getenvDefault("GATEHOUSE_RESPONSE_TOPIC", "gatehouse.auth.responses"),
		CheckoutTopic:    getenvDefault("GATEHOUSE_CHECKOUT_TOPIC", "gatehouse.checkout.events"),
		CloudTimeout:     cloudTimeout,
		FallbackResource: getenvDefault("GATEHOUSE_FALLBACK_RESOURCE", "cart-unassigned"),

		FreshnessWindow: freshness,

		HeartbeatRetentionDays: retentionDays,
		PruneIntervalHours:     pruneInterval,

		LogLevel: strings.ToLower(getenvDefault("GATEHOUSE_LOG_LEVEL", "info")),
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

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
