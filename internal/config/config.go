package config

import (
	"os"
	"strconv"
)

type ServiceConfig struct {
	Port          string
	MaxUploadSize int64
	PostgresCfg   PostgresConfig
	RabbitMQCfg   RabbitMQConfig
	RedisCfg      RedisConfig
	MinioCfg      MinioConfig
	ShopeeCfg     ShopeeConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MinioConfig struct {
	MinioURL       string
	MinioAccessKey string
	MinioSecretKey string
	MinioLocation  string
	MinioSecure    string
}

type ShopeeConfig struct {
	DefaultEndpoint   string
	PageLimit         int
	MaxPages          int
	SyncIntervalHours int
	SyncWindowDays    int
}

func New() *ServiceConfig {
	return &ServiceConfig{
		Port:          getEnvOrDefault("PORT", "8086"),
		MaxUploadSize: getEnvInt64OrDefault("MAX_UPLOAD_SIZE", 20*1024*1024),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "affiliate"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       0,
		},
		MinioCfg: MinioConfig{
			MinioURL:       getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9407"),
			MinioAccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:  getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:    getEnvOrDefault("MINIO_SECURE", "false"),
		},
		ShopeeCfg: ShopeeConfig{
			DefaultEndpoint:   getEnvOrDefault("SHOPEE_ENDPOINT", "https://open-api.affiliate.shopee.com.br/graphql"),
			PageLimit:         getEnvIntOrDefault("SHOPEE_PAGE_LIMIT", 100),
			MaxPages:          getEnvIntOrDefault("SHOPEE_MAX_PAGES", 100),
			SyncIntervalHours: getEnvIntOrDefault("SHOPEE_SYNC_INTERVAL_HOURS", 6),
			SyncWindowDays:    getEnvIntOrDefault("SHOPEE_SYNC_WINDOW_DAYS", 7),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
