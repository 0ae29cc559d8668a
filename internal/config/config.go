package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ServerAddr string
	Timezone   *time.Location

	DatabaseURL string
	MongoURI    string
	MongoDB     string

	RedisURL        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	FrontendOrigins    []string
	RateLimitBooking   int
	RateLimitWindowSec int

	AdminAPIKey       string
	AdminUser         string
	AdminPassword     string
	AdminPasswordHash string
	AdminSetupKey     string
	JWTSecret         string
	AccessTTLMinutes  int
	RefreshTTLMinutes int
	CookieSecure      bool

	KafkaBrokers    string
	OutboxPollMS    int
	OutboxBatchSize int

	OTelEnabled      bool
	OTelEndpoint     string
	OTelSampleRatio  float64
	AvailabilityDays int
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func Load() (*Config, error) {
	// Real environment wins over .env; a missing file is fine.
	_ = godotenv.Load(".env")

	loc, err := time.LoadLocation(getEnv("TZ", "Europe/Istanbul"))
	if err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGO_URI", "")
	mongoDB := getEnv("MONGO_DB", "")
	if mongoDB == "" {
		mongoDB = mongoDBFromURI(mongoURI)
	}
	if mongoDB == "" {
		mongoDB = "booking"
	}

	sampleRatio := getEnvFloat("OTEL_SAMPLING_RATIO", 1)
	if sampleRatio < 0 || sampleRatio > 1 {
		sampleRatio = 1
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		Timezone:           loc,
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MongoURI:           mongoURI,
		MongoDB:            mongoDB,
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 60),
		FrontendOrigins:    splitList(getEnv("FRONTEND_ORIGINS", "http://localhost:3000")),
		RateLimitBooking:   getEnvInt("RATE_LIMIT_BOOKING", 10),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		AdminAPIKey:        getEnv("ADMIN_API_KEY", ""),
		AdminUser:          getEnv("ADMIN_USER", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminSetupKey:      getEnv("ADMIN_SETUP_KEY", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AccessTTLMinutes:   getEnvInt("ACCESS_TTL_MINUTES", 15),
		RefreshTTLMinutes:  getEnvInt("REFRESH_TTL_MINUTES", 43200),
		CookieSecure:       getEnvBool("COOKIE_SECURE", false),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", ""),
		OutboxPollMS:       getEnvInt("OUTBOX_POLL_MS", 2000),
		OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 50),
		OTelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio:    sampleRatio,
		AvailabilityDays:   getEnvInt("AVAILABILITY_DAYS", 30),
	}

	return cfg, nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSec) * time.Second
}

func (c *Config) OutboxPollInterval() time.Duration {
	return time.Duration(c.OutboxPollMS) * time.Millisecond
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mongoDBFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}
