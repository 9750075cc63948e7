package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("DROP_DURATION", "")

	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 72*time.Hour, cfg.DropDuration)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("DROP_DURATION", "24h")
	t.Setenv("WORKER_CONCURRENCY", "3")
	t.Setenv("CLAIM_TIMEOUT", "not-a-duration")

	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 24*time.Hour, cfg.DropDuration)
	assert.Equal(t, 3, cfg.WorkerConcurrency)
	assert.Equal(t, 5*time.Second, cfg.ClaimTimeout)
}
