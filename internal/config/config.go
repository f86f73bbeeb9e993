package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// devJWTSecret is only ever used outside production.
const devJWTSecret = "greenwich-development-secret"

// devAdminPassword seeds the default admin outside production.
const devAdminPassword = "Admin123!"

type Config struct {
	Port              string
	Environment       string
	LogLevel          string
	MongoDBURI        string
	MongoDBPassword   string
	MongoDBDatabase   string
	JWTSecret         string
	JWTTTL            time.Duration
	RedisAddr         string
	CORSOrigins       []string
	AdminEmail        string
	AdminPassword     string
	AuthRatePerMinute int

	// Warnings collects non-fatal fallbacks applied while loading.
	Warnings []string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnvWithDefault("PORT", "5000"),
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		MongoDBURI:      os.Getenv("MONGODB_URI"),
		MongoDBPassword: os.Getenv("MONGODB_PASSWORD"),
		MongoDBDatabase: getEnvWithDefault("MONGODB_DATABASE", "greenwich"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		CORSOrigins:     splitList(getEnvWithDefault("CORS_ORIGINS", "http://localhost:3000")),
		AdminEmail:      getEnvWithDefault("ADMIN_EMAIL", "admin@greenwich.com"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
	}

	ttl, err := time.ParseDuration(getEnvWithDefault("JWT_TTL", "168h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be a positive duration, got %q", os.Getenv("JWT_TTL"))
	}
	cfg.JWTTTL = ttl

	rate, err := strconv.Atoi(getEnvWithDefault("AUTH_RATE_PER_MINUTE", "20"))
	if err != nil || rate < 1 {
		return nil, fmt.Errorf("AUTH_RATE_PER_MINUTE must be a positive integer, got %q", os.Getenv("AUTH_RATE_PER_MINUTE"))
	}
	cfg.AuthRatePerMinute = rate

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using the development secret")
	}

	if cfg.AdminPassword == "" && !cfg.IsProduction() {
		cfg.AdminPassword = devAdminPassword
	}

	if cfg.MongoDBURI == "" {
		cfg.Warnings = append(cfg.Warnings, "MONGODB_URI not set, running on the in-memory store")
	}

	return cfg, nil
}

// MongoURI returns the connection string with the <password> placeholder filled in.
func (c *Config) MongoURI() string {
	return strings.Replace(c.MongoDBURI, "<password>", c.MongoDBPassword, 1)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
