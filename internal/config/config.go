package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values come from an optional YAML file (CONFIG_FILE), then .env, then the
// environment, so the binary runs locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	UpstreamURL     string        `yaml:"upstream_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisGeoKey   string `yaml:"redis_geo_key"`

	KafkaBrokers       []string `yaml:"kafka_brokers"`
	KafkaLocationTopic string   `yaml:"kafka_location_topic"`
	KafkaBidTopic      string   `yaml:"kafka_bid_topic"`

	PGDSN string `yaml:"pg_dsn"`

	OSRMURL         string  `yaml:"osrm_url"`
	DefaultSpeedMps float64 `yaml:"default_speed_mps"`
	ETATopN         int     `yaml:"eta_top_n"`

	StripeKey       string `yaml:"stripe_key"`
	PaymentCurrency string `yaml:"payment_currency"`

	AWSRegion  string        `yaml:"aws_region"`
	S3Bucket   string        `yaml:"s3_bucket"`
	PresignTTL time.Duration `yaml:"presign_ttl"`

	CompetitiveThreshold float64 `yaml:"competitive_threshold"`
	EarthRadiusKm        float64 `yaml:"earth_radius_km"`
	NearbyTopN           int     `yaml:"nearby_top_n"`
	NearbyRadiusKm       float64 `yaml:"nearby_radius_km"`

	CollectorStaleAfter time.Duration `yaml:"collector_stale_after"`
	JWTSecret           string        `yaml:"jwt_secret"`

	LogLevel      string `yaml:"log_level"`
	RunMigrations bool   `yaml:"migrate"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:             ":8080",
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         10 * time.Second,
		IdleTimeout:          120 * time.Second,
		ShutdownTimeout:      15 * time.Second,
		UpstreamURL:          "http://localhost:5000/api",
		UpstreamTimeout:      5 * time.Second,
		RedisGeoKey:          "collectors_geo",
		KafkaLocationTopic:   "collector-locations",
		KafkaBidTopic:        "bid-events",
		DefaultSpeedMps:      8,
		ETATopN:              5,
		PaymentCurrency:      "inr",
		AWSRegion:            "ap-south-1",
		PresignTTL:           5 * time.Minute,
		CompetitiveThreshold: 0.9,
		EarthRadiusKm:        6371,
		NearbyTopN:           10,
		NearbyRadiusKm:       10,
		CollectorStaleAfter:  5 * time.Minute,
		LogLevel:             "info",
	}
}

// ConsumerConfig is the location consumer's configuration.
type ConsumerConfig struct {
	MetricsAddr   string        `yaml:"metrics_addr"`
	KafkaBrokers  []string      `yaml:"kafka_brokers"`
	KafkaTopic    string        `yaml:"kafka_location_topic"`
	KafkaGroup    string        `yaml:"kafka_group"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisGeoKey   string        `yaml:"redis_geo_key"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	LogLevel      string        `yaml:"log_level"`
}

func defaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		MetricsAddr:   ":2112",
		KafkaBrokers:  []string{"localhost:9092"},
		KafkaTopic:    "collector-locations",
		KafkaGroup:    "scrap-bidding-consumer",
		RedisAddr:     "localhost:6379",
		RedisGeoKey:   "collectors_geo",
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
		LogLevel:      "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	loadDotEnv()
	loadYAML(&cfg, &errs)

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	setStringFromEnv(&cfg.UpstreamURL, "UPSTREAM_API_URL")
	setDurationFromEnv(&cfg.UpstreamTimeout, "UPSTREAM_TIMEOUT", &errs)

	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	setStringFromEnv(&cfg.RedisPassword, "REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaLocationTopic, "KAFKA_LOCATION_TOPIC")
	setStringFromEnv(&cfg.KafkaBidTopic, "KAFKA_BID_TOPIC")

	setStringFromEnv(&cfg.PGDSN, "PG_DSN")

	setStringFromEnv(&cfg.OSRMURL, "OSRM_URL")
	setFloatFromEnv(&cfg.DefaultSpeedMps, "DEFAULT_SPEED_MPS", &errs)
	setIntFromEnv(&cfg.ETATopN, "ETA_TOP_N", &errs)

	setStringFromEnv(&cfg.StripeKey, "STRIPE_API_KEY")
	setStringFromEnv(&cfg.PaymentCurrency, "PAYMENT_CURRENCY")

	setStringFromEnv(&cfg.AWSRegion, "AWS_REGION")
	setStringFromEnv(&cfg.S3Bucket, "S3_BUCKET")
	setDurationFromEnv(&cfg.PresignTTL, "PRESIGN_TTL", &errs)

	setFloatFromEnv(&cfg.CompetitiveThreshold, "COMPETITIVE_THRESHOLD", &errs)
	setFloatFromEnv(&cfg.EarthRadiusKm, "EARTH_RADIUS_KM", &errs)
	setIntFromEnv(&cfg.NearbyTopN, "NEARBY_TOP_N", &errs)
	setFloatFromEnv(&cfg.NearbyRadiusKm, "NEARBY_RADIUS_KM", &errs)
	setDurationFromEnv(&cfg.CollectorStaleAfter, "COLLECTOR_STALE_AFTER", &errs)
	setStringFromEnv(&cfg.JWTSecret, "JWT_SECRET")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("MIGRATE"); v != "" {
		cfg.RunMigrations = strings.EqualFold(v, "true")
	}

	if cfg.CompetitiveThreshold <= 0 || cfg.CompetitiveThreshold > 1 {
		errs = append(errs, fmt.Errorf("COMPETITIVE_THRESHOLD must be in (0,1]"))
	}
	if cfg.EarthRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("EARTH_RADIUS_KM must be > 0"))
	}
	if cfg.NearbyTopN <= 0 {
		errs = append(errs, fmt.Errorf("NEARBY_TOP_N must be > 0"))
	}
	if cfg.NearbyRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("NEARBY_RADIUS_KM must be > 0"))
	}
	if cfg.CollectorStaleAfter <= 0 {
		errs = append(errs, fmt.Errorf("COLLECTOR_STALE_AFTER must be > 0"))
	}
	if cfg.ETATopN < 0 {
		errs = append(errs, fmt.Errorf("ETA_TOP_N must be >= 0"))
	}
	if cfg.UpstreamURL == "" {
		errs = append(errs, fmt.Errorf("UPSTREAM_API_URL is required"))
	}

	return cfg, errors.Join(errs...)
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := defaultConsumerConfig()
	var errs []error

	loadDotEnv()
	loadYAML(&cfg, &errs)

	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_LOCATION_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	setStringFromEnv(&cfg.RedisPassword, "REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")
	setIntFromEnv(&cfg.RetryAttempts, "REDIS_RETRY_ATTEMPTS", &errs)
	setDurationFromEnv(&cfg.RetryDelay, "REDIS_RETRY_DELAY", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must not be empty"))
	}
	if cfg.RetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("REDIS_RETRY_ATTEMPTS must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// loadDotEnv is best effort; a missing .env is the normal case outside local dev.
func loadDotEnv() {
	_ = godotenv.Load()
}

func loadYAML(target any, errs *[]error) {
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("read %s: %w", path, err))
		return
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", path, err))
	}
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
