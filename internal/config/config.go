package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Bot      BotConfig
	Access   AccessConfig
	HTTP     HTTPConfig
}

type DatabaseConfig struct {
	Host              string `validate:"required"`
	Port              int    `validate:"min=1,max=65535"`
	User              string `validate:"required"`
	Password          string `validate:"required"`
	Name              string `validate:"required"`
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type BotConfig struct {
	Token          string `validate:"required"`
	Username       string `validate:"required"`
	ChannelID      int64  `validate:"required"` // storage channel anchor
	ForceSubChanID int64  // 0 disables the membership check
	AdminIDs       []int64
	ProtectContent bool
	CustomCaption  string
	StartMessage   string
	LogLevel       string
}

type AccessConfig struct {
	VerifyEnabled   bool
	TutorialURL     string `validate:"omitempty,url"`
	CleanupInterval time.Duration
}

type HTTPConfig struct {
	Port string
}

var validate = validator.New()

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "filestorebot"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Bot: BotConfig{
			Token:          getEnv("BOT_TOKEN", ""),
			Username:       strings.TrimPrefix(getEnv("BOT_USERNAME", ""), "@"),
			ChannelID:      getEnvAsInt64("DB_CHANNEL_ID", 0),
			ForceSubChanID: getEnvAsInt64("FORCE_SUB_CHANNEL_ID", 0),
			AdminIDs:       parseAdminIDs(getEnv("ADMIN_IDS", "")),
			ProtectContent: getEnvAsBool("PROTECT_CONTENT", false),
			CustomCaption:  getEnv("CUSTOM_CAPTION", ""),
			StartMessage:   getEnv("START_MESSAGE", "Hello! Send me a file link to get started."),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
		},
		Access: AccessConfig{
			VerifyEnabled:   getEnvAsBool("VERIFY_ENABLED", false),
			TutorialURL:     getEnv("VERIFY_TUTORIAL_URL", ""),
			CleanupInterval: getEnvAsDuration("TOKEN_CLEANUP_INTERVAL", 1*time.Hour),
		},
		HTTP: HTTPConfig{
			Port: getEnv("HTTP_PORT", "8080"),
		},
	}

	if cfg.Access.VerifyEnabled && cfg.Access.TutorialURL == "" {
		return nil, fmt.Errorf("VERIFY_TUTORIAL_URL is required when VERIFY_ENABLED is set")
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// IsAdmin reports whether the user id is in the configured admin list
func (c *BotConfig) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func parseAdminIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
