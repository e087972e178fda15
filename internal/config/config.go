package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP
	HTTPPort string

	// Postgres
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int32

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Streaming
	StreamBufferSize     int
	KeepaliveIntervalSec int

	// Live state cache
	LiveStateTTLSeconds int

	// Rate limiting
	RateLimitMax           int
	RateLimitWindowSeconds int

	// Auth
	AuthCacheTTLSeconds int
	ValidAPIKeys        []string

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		HTTPPort:               getEnv("HTTP_PORT", "8000"),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		DBUser:                 getEnv("DB_USER", "auv_user"),
		DBPassword:             getEnv("DB_PASSWORD", "auv_password"),
		DBName:                 getEnv("DB_NAME", "auv_monitor"),
		DBMaxConns:             int32(getEnvInt("DB_MAX_CONNS", 15)),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		StreamBufferSize:       getEnvInt("STREAM_BUFFER_SIZE", 64),
		KeepaliveIntervalSec:   getEnvInt("KEEPALIVE_INTERVAL_SECONDS", 30),
		LiveStateTTLSeconds:    getEnvInt("LIVE_STATE_TTL_SECONDS", 60),
		RateLimitMax:           getEnvInt("RATE_LIMIT_MAX", 120),
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		AuthCacheTTLSeconds:    getEnvInt("AUTH_CACHE_TTL_SECONDS", 300),
		ValidAPIKeys:           strings.Split(getEnv("VALID_API_KEYS", ""), ","),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
