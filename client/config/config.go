package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"flowLedger/client/poller"
)

type Config struct {
	BaseURL         string
	Token           string
	HTTPTimeout     time.Duration
	PollInterval    time.Duration
	PollTimeout     time.Duration
	FetchRetries    int
	WorkerCount     int
	MaxFileSize     int64
	ReceiptMaxWidth int
	Env             string

	// Empty values disable the integration.
	RedisAddr    string
	DatabaseURL  string
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string
	MetricsAddr  string
}

func Load() *Config {
	return &Config{
		BaseURL:         getEnv("FLOWLEDGER_BASE_URL", "http://localhost:8000/api"),
		Token:           getEnv("FLOWLEDGER_TOKEN", ""),
		HTTPTimeout:     getEnvAsDuration("FLOWLEDGER_HTTP_TIMEOUT", 10*time.Second),
		PollInterval:    getEnvAsDuration("FLOWLEDGER_POLL_INTERVAL", poller.DefaultPollInterval),
		PollTimeout:     getEnvAsDuration("FLOWLEDGER_POLL_TIMEOUT", poller.DefaultTimeout),
		FetchRetries:    getEnvAsInt("FLOWLEDGER_FETCH_RETRIES", 0),
		WorkerCount:     getEnvAsInt("FLOWLEDGER_WORKER_COUNT", 4),
		MaxFileSize:     getEnvAsInt64("MAX_FILE_SIZE", 100*1024*1024),
		ReceiptMaxWidth: getEnvAsInt("RECEIPT_MAX_WIDTH", 1600),
		Env:             getEnv("ENV", "development"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "flowledger.task-events"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "flowledger-cli"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
	}
}

// Brokers splits the comma-separated KAFKA_BROKERS value.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *Config) PollerConfig() poller.Config {
	return poller.Config{
		PollInterval: c.PollInterval,
		Timeout:      c.PollTimeout,
		FetchRetries: c.FetchRetries,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
