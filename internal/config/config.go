package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	RedisAddr       string
	RateLimitPerMin int
	ResultsCacheTTL time.Duration

	RabbitURL   string
	Exchange    string
	Queue       string
	BindKey     string
	Concurrency int

	JWTSecret   string
	JWKSURL     string
	CORSOrigins []string

	SweepInterval time.Duration
	GracePeriod   time.Duration

	LogProd   bool
	DDEnabled bool
	Service   string
}

// Load reads .env when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     getenv("APP_PORT", "8080"),
		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "townsquare"),

		RedisAddr:       getenv("REDIS_ADDR", ""),
		RateLimitPerMin: geti("RATE_LIMIT_PER_MIN", 30),
		ResultsCacheTTL: time.Duration(geti("RESULTS_CACHE_SECONDS", 15)) * time.Second,

		RabbitURL:   getenv("RABBIT_URL", ""),
		Exchange:    getenv("RABBIT_EXCHANGE", "townsquare.events"),
		Queue:       getenv("RABBIT_QUEUE", "townsquare.notify"),
		BindKey:     getenv("RABBIT_BIND_KEY", "vote.cast"),
		Concurrency: geti("RABBIT_CONCURRENCY", 4),

		JWTSecret:   getenv("JWT_SECRET", ""),
		JWKSURL:     getenv("AUTH_JWKS_URL", ""),
		CORSOrigins: split(getenv("CORS_ORIGINS", "http://localhost:5173")),

		SweepInterval: time.Duration(geti("SWEEP_INTERVAL_SECONDS", 300)) * time.Second,
		GracePeriod:   time.Duration(geti("GRACE_PERIOD_HOURS", 48)) * time.Hour,

		LogProd:   getb("LOG_PROD", false),
		DDEnabled: getb("DD_ENABLED", false),
		Service:   getenv("DD_SERVICE", "townsquare-voting"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func geti(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getb(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func split(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
