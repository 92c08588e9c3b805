package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// First admin bootstrap (seeded on startup if no admin exists)
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Domain appended to bare usernames at login/registration
	LoginDomain string
}

func Load() *Config {
	tokenMinutes, _ := strconv.Atoi(getEnv("JWT_EXP_MINUTES", "720"))
	return &Config{
		Port:                   getEnv("PORT", "8090"),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		DBUser:                 getEnv("DB_USER", "postgres"),
		DBPassword:             getEnv("DB_PASSWORD", ""),
		DBName:                 getEnv("DB_NAME", "workplatform"),
		DBSSLMode:              getEnv("DB_SSLMODE", "disable"),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		TokenTTL:               time.Duration(tokenMinutes) * time.Minute,
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		LoginDomain:            getEnv("LOGIN_DOMAIN", "workplatform.local"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
