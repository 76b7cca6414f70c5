package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Engine   EngineConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EngineConfig struct {
	// AutoApproveGraceHours is the delivered -> auto_approved grace window.
	AutoApproveGraceHours int
	// SweepCronSpec drives the auto-approval sweep (six-field cron spec).
	SweepCronSpec  string
	SweepBatchSize int
	// Split percentages applied when a quote is accepted.
	SupervisorPct  float64
	PlatformPct    float64
	StatsQueueSize int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "doerdesk"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Engine: EngineConfig{
			AutoApproveGraceHours: getEnvAsInt("AUTO_APPROVE_GRACE_HOURS", 48),
			SweepCronSpec:         getEnv("SWEEP_CRON_SPEC", "0 */5 * * * *"),
			SweepBatchSize:        getEnvAsInt("SWEEP_BATCH_SIZE", 50),
			SupervisorPct:         getEnvAsFloat("SUPERVISOR_PCT", 0.15),
			PlatformPct:           getEnvAsFloat("PLATFORM_PCT", 0.10),
			StatsQueueSize:        getEnvAsInt("STATS_QUEUE_SIZE", 256),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Engine.SupervisorPct < 0 || c.Engine.PlatformPct < 0 ||
		c.Engine.SupervisorPct+c.Engine.PlatformPct >= 1 {
		return fmt.Errorf("invalid commission split: supervisor=%v platform=%v",
			c.Engine.SupervisorPct, c.Engine.PlatformPct)
	}

	return nil
}

// DSN builds a postgres connection string usable by both lib/pq and pgx.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}
