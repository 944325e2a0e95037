package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"life-agent/internal/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Auth     AuthConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	// StreamTimeout bounds how long a streaming chat response may hold
	// the connection open before the server terminates it.
	StreamTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LLMConfig holds model endpoint configuration
type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	SystemPrompt  string
	Referer       string
	MaxToolRounds int
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret       []byte
	TokenExpiration time.Duration
}

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{}

	// Load Server config
	config.Server = ServerConfig{
		Port:          getEnvOrDefault("SERVER_PORT", "8080"),
		StreamTimeout: getEnvAsDuration("STREAM_TIMEOUT", 2*time.Minute),
	}

	// Load Database config
	config.Database = DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "postgres"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     getEnvOrDefault("DB_USER", "postgres"),
		Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:     getEnvOrDefault("DB_NAME", "lifeagent"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}

	// Load LLM config
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		logger.Log.Warn("OPENROUTER_API_KEY environment variable not set")
	}

	config.LLM = LLMConfig{
		APIKey:        apiKey,
		BaseURL:       getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		Model:         getEnvOrDefault("OPENROUTER_MODEL", "mistralai/mistral-small-3.1-24b-instruct:free"),
		SystemPrompt:  getEnvOrDefault("OPENROUTER_SYSTEM_PROMPT", DefaultSystemPrompt),
		Referer:       getEnvOrDefault("OPENROUTER_REFERER", "http://localhost:3000"),
		MaxToolRounds: getEnvAsInt("OPENROUTER_MAX_TOOL_ROUNDS", 5),
	}

	// Load Auth config
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable must be set")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters (current length: %d)", len(jwtSecret))
	}

	config.Auth = AuthConfig{
		JWTSecret:       []byte(jwtSecret),
		TokenExpiration: getEnvAsDuration("JWT_TOKEN_EXPIRATION", 24*time.Hour),
	}

	return config, nil
}

// DefaultSystemPrompt is the canonical operating instruction text; the
// turn orchestrator guarantees it is the single leading system message
// of every primed conversation.
const DefaultSystemPrompt = "You are a helpful AI life agent. When you use a tool like 'getWorkouts' and receive data (like a list of workouts) as a tool result, generate a concise, natural language summary of that data for the user. For other tools that might return a simple message (like 'recordWorkout'), present that message clearly."

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
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
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
