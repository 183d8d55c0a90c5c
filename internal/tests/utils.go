package tests

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/vibe-labs/vibe-rewards/internal/config"
)

// GetDbConfigFromEnv returns nil when no test database is configured.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	host := os.Getenv("VIBE_REWARDS_DATABASE_HOST")
	if host == "" {
		return nil
	}
	port, err := strconv.Atoi(os.Getenv("VIBE_REWARDS_DATABASE_PORT"))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("VIBE_REWARDS_DATABASE_USER"),
		Password: os.Getenv("VIBE_REWARDS_DATABASE_PASSWORD"),
		DbName:   os.Getenv("VIBE_REWARDS_DATABASE_DB_NAME"),
	}
}

func GenerateTestDbName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("test_%s", strings.ReplaceAll(id.String(), "-", "")), nil
}
