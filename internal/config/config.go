package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPAddr             string
	MetricsAddr          string
	StorageDriver        string
	PostgresDSN          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	KafkaBrokers         []string
	KafkaEventsTopic     string
	KafkaSettlementTopic string
	KafkaGroupID         string
	JWTSecret            string
	JWTTTL               time.Duration
	OTLPEndpoint         string
	Currency             string
	CatalogCacheTTL      time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		MetricsAddr:          getenv("METRICS_ADDR", ":9090"),
		StorageDriver:        getenv("STORAGE_DRIVER", DriverPostgres),
		PostgresDSN:          getenv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=ledger sslmode=disable"),
		RedisAddr:            getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getint("REDIS_DB", 0),
		KafkaBrokers:         splitList(getenv("KAFKA_BROKER", "localhost:9092")),
		KafkaEventsTopic:     getenv("KAFKA_EVENTS_TOPIC", "ledger-events"),
		KafkaSettlementTopic: getenv("KAFKA_SETTLEMENT_TOPIC", "back-office"),
		KafkaGroupID:         getenv("KAFKA_GROUP_ID", "ledger-service"),
		JWTSecret:            getenv("JWT_SECRET", "supersecret"),
		JWTTTL:               getduration("JWT_TTL", time.Hour),
		OTLPEndpoint:         getenv("OTLP_ENDPOINT", "localhost:4318"),
		Currency:             strings.ToUpper(getenv("CURRENCY", "USD")),
		CatalogCacheTTL:      getduration("CATALOG_CACHE_TTL", 24*time.Hour),
	}

	if cfg.StorageDriver != DriverPostgres && cfg.StorageDriver != DriverMemory {
		slog.Warn("unknown storage driver, falling back to postgres", "driver", cfg.StorageDriver)
		cfg.StorageDriver = DriverPostgres
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"storage_driver", cfg.StorageDriver,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"currency", cfg.Currency)
	return cfg
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

func getint(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		slog.Warn("invalid integer, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
