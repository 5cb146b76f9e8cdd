package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order before the config file is expanded. Values
// already present in the process environment are never overwritten.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, envPath := range envFiles {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			slog.Warn("Failed to load environment file", "path", envPath, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", envPath)
	}
}
