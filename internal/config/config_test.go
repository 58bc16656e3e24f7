package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 0.9, cfg.CompetitiveThreshold)
	assert.Equal(t, 6371.0, cfg.EarthRadiusKm)
	assert.Equal(t, "collector-locations", cfg.KafkaLocationTopic)
	assert.Equal(t, 5*time.Minute, cfg.CollectorStaleAfter)
}

func TestLoadServerConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("COMPETITIVE_THRESHOLD", "0.75")
	t.Setenv("EARTH_RADIUS_KM", "1")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("MIGRATE", "TRUE")
	t.Setenv("COLLECTOR_STALE_AFTER", "90s")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.CompetitiveThreshold)
	assert.Equal(t, 1.0, cfg.EarthRadiusKm)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, 90*time.Second, cfg.CollectorStaleAfter)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoadServerConfigCollectsErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("COMPETITIVE_THRESHOLD", "1.5")
	t.Setenv("NEARBY_TOP_N", "zero")
	t.Setenv("HTTP_READ_TIMEOUT", "soon")

	_, err := LoadServerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMPETITIVE_THRESHOLD")
	assert.Contains(t, err.Error(), "invalid NEARBY_TOP_N")
	assert.Contains(t, err.Error(), "invalid HTTP_READ_TIMEOUT")
}

func TestLoadServerConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\ncompetitive_threshold: 0.8\nnearby_radius_km: 25\nkafka_brokers: [\"k1:9092\"]\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("NEARBY_RADIUS_KM", "30")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 0.8, cfg.CompetitiveThreshold)
	assert.Equal(t, 30.0, cfg.NearbyRadiusKm, "env wins over yaml")
	assert.Equal(t, []string{"k1:9092"}, cfg.KafkaBrokers)
}

func TestLoadConsumerConfig(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("KAFKA_GROUP", "g1")
	t.Setenv("REDIS_RETRY_DELAY", "50ms")
	cfg, err := LoadConsumerConfig()
	require.NoError(t, err)
	assert.Equal(t, "g1", cfg.KafkaGroup)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoadConsumerConfigRejectsZeroRetries(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REDIS_RETRY_ATTEMPTS", "0")
	_, err := LoadConsumerConfig()
	assert.ErrorContains(t, err, "REDIS_RETRY_ATTEMPTS")
}
