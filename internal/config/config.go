package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the process-level settings. Everything has a default
// so the server starts with no environment at all, using the
// in-memory store.
type Config struct {
	Addr           string
	DatabaseURL    string
	AppEnv         string
	VehicleCatalog string
}

// Load reads .env if present, then the environment. A missing .env is
// not an error; containers set variables directly.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getenv("ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AppEnv:         getenv("APP_ENV", "development"),
		VehicleCatalog: os.Getenv("VEHICLE_CATALOG"),
	}
}

func (c Config) Production() bool { return c.AppEnv == "production" }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
