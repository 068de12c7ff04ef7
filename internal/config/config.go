package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort        string
	DatabaseURL     string   // empty = in-memory store
	DBPoolSize      int
	RedisURL        string   // empty = snapshot cache disabled
	RedisPoolSize   int
	CacheTTL        int      // seconds
	KafkaBrokers    []string // empty = event journal disabled
	KafkaTopic      string
	KafkaPartitions int
	IDScheme        string   // friendly | uuid
	HubSendBuffer   int
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once from env).
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = &Config{
			HTTPPort:        getEnv("HTTP_PORT", "8080"),
			DatabaseURL:     os.Getenv("DATABASE_URL"),
			DBPoolSize:      getIntEnv("DB_POOL_SIZE", 50),
			RedisURL:        os.Getenv("REDIS_URL"),
			RedisPoolSize:   getIntEnv("REDIS_POOL_SIZE", 100),
			CacheTTL:        getIntEnv("CACHE_TTL_SEC", 300),
			KafkaBrokers:    getSliceEnv("KAFKA_BROKERS"),
			KafkaTopic:      getEnv("KAFKA_EVENT_TOPIC", "list-events"),
			KafkaPartitions: getIntEnv("KAFKA_PARTITIONS", 4),
			IDScheme:        getEnv("ID_SCHEME", "friendly"),
			HubSendBuffer:   getIntEnv("HUB_SEND_BUFFER", 16),
		}
	})
	return cfg
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getSliceEnv(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
