package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Kafka    KafkaConfig    `json:"kafka"`
	Logger   LoggerConfig   `json:"logger"`
	Coupon   CouponConfig   `json:"coupon"`
}

// ServerConfig holds the ops HTTP server settings.
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig holds the PostgreSQL settings.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds the Redis settings.
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig holds the Kafka consumer settings.
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics lists the Kafka topics the service consumes.
type Topics struct {
	Customers string `json:"customers"`
}

// LoggerConfig holds the logger settings.
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// CouponConfig holds the coupon issuance and rule lifecycle settings.
//
// Salt has no default and must be set in the environment; code generation
// refuses to start without it.
type CouponConfig struct {
	Enabled            bool    `json:"enabled"`
	Salt               string  `json:"-"`
	NamePrefix         string  `json:"name_prefix"`
	DiscountPercent    float64 `json:"discount_percent"`
	CustomerGroupIDs   []int64 `json:"customer_group_ids"`
	WebsiteID          int64   `json:"website_id"`
	EpochDate          string  `json:"epoch_date"`
	CodeLength         int     `json:"code_length"`
	LockTTLSeconds     int     `json:"lock_ttl_seconds"`
	PruneIntervalHours int     `json:"prune_interval_hours"`
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "coupon_user"),
			Password: getEnv("DB_PASSWORD", "coupon_pass"),
			DBName:   getEnv("DB_NAME", "coupon_system"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "employee-coupon"),
			Topics: Topics{
				Customers: getEnv("KAFKA_TOPIC_CUSTOMERS", "customers"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Coupon: CouponConfig{
			Enabled:            getEnvAsBool("COUPON_ENABLED", true),
			Salt:               getEnv("COUPON_SALT", ""),
			NamePrefix:         getEnv("COUPON_NAME_PREFIX", "Employee coupons"),
			DiscountPercent:    getEnvAsFloat("COUPON_DISCOUNT_PERCENT", 10.0),
			CustomerGroupIDs:   getEnvAsInt64Slice("COUPON_CUSTOMER_GROUP_IDS", []int64{1}),
			WebsiteID:          int64(getEnvAsInt("COUPON_WEBSITE_ID", 1)),
			EpochDate:          getEnv("COUPON_EPOCH_DATE", "2024-12-29"),
			CodeLength:         getEnvAsInt("COUPON_CODE_LENGTH", 6),
			LockTTLSeconds:     getEnvAsInt("COUPON_LOCK_TTL_SECONDS", 30),
			PruneIntervalHours: getEnvAsInt("COUPON_PRUNE_INTERVAL_HOURS", 24),
		},
	}
}

// getEnv reads an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as int with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat reads an environment variable as float64 with a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool reads an environment variable as bool with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "true" || valueStr == "1" || valueStr == "yes" {
		return true
	}
	if valueStr == "false" || valueStr == "0" || valueStr == "no" {
		return false
	}
	return defaultValue
}

// getEnvAsInt64Slice reads a comma-separated environment variable as []int64.
// Entries that fail to parse are skipped; an empty result falls back to the default.
func getEnvAsInt64Slice(key string, defaultValue []int64) []int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []int64
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.ParseInt(part, 10, 64); err == nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
