package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; variables already set are never overwritten,
// so earlier files win.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// A malformed .env file must not block startup; Validate reports
		// whatever ends up missing.
		_ = godotenv.Load(f)
	}
}
