package config

import "os"

// GetEnv reads an environment variable. The .env file is loaded once in main
// via godotenv, so this is a plain lookup.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvDefault reads an environment variable with a fallback value.
func GetEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
