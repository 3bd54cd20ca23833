package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI   string
	AgentAPIURL   string
	AgentAPIToken string
	ListenAddr    string
	Timezone      string
	LogLevel      string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	return &Config{
		DatabaseURI:   os.Getenv("DATABASE_URI"),
		AgentAPIURL:   os.Getenv("AGENT_API_URL"),
		AgentAPIToken: os.Getenv("AGENT_API_TOKEN"),
		ListenAddr:    getEnvOrDefault("LISTEN_ADDR", ":8080"),
		Timezone:      getEnvOrDefault("TIMEZONE", "Local"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
