package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database. Empty keeps the ledger in memory.
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Ledger cadence
	HeartbeatInterval         time.Duration
	CompoundInterval          time.Duration
	HeartbeatCompoundInterval time.Duration

	// Write throttling
	RateLimitPerMinute int
	RateLimitBurst     int

	// Upgrade handling
	SnapshotOnShutdown bool

	// Event stream
	Kafka KafkaConfig

	// S3 snapshot archive
	S3 S3Config
}

// KafkaConfig holds the event stream settings. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether events should be written to Kafka
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Enabled reports whether upgrade snapshots should be archived
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	heartbeat, err := getDuration("HEARTBEAT_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	compound, err := getDuration("USER_COMPOUND_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	heartbeatCompound, err := getDuration("HEARTBEAT_COMPOUND_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	perMinute, err := getInt("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	burst, err := getInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		Port:                      getEnv("PORT", "8080"),
		CORSOrigins:               strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:                       getEnv("ENV", "development"),
		HeartbeatInterval:         heartbeat,
		CompoundInterval:          compound,
		HeartbeatCompoundInterval: heartbeatCompound,
		RateLimitPerMinute:        perMinute,
		RateLimitBurst:            burst,
		SnapshotOnShutdown:        getEnv("SNAPSHOT_ON_SHUTDOWN", "false") == "true",
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "ledger_events"),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive")
	}
	if c.CompoundInterval <= 0 || c.HeartbeatCompoundInterval <= 0 {
		return fmt.Errorf("compound intervals must be positive")
	}
	if c.RateLimitPerMinute <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
