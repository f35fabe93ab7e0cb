package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Env             string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DatabaseURL string
	DBMaxConns  int

	CORSAllowedOrigins []string
	DefaultSellerID    string

	Media MediaConfig
}

type MediaConfig struct {
	CloudinaryURL string
	// Source is "buffer" or "path".
	Source        string
	SpoolDir      string
	Folder        string
	MaxUploadSize int64
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	cloudinaryURL := os.Getenv("CLOUDINARY_URL")
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("CLOUDINARY_URL must be set")
	}

	source := getEnv("UPLOAD_SOURCE", "buffer")
	if source != "buffer" && source != "path" {
		return nil, fmt.Errorf("UPLOAD_SOURCE must be \"buffer\" or \"path\", got %q", source)
	}

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		DatabaseURL: databaseURL,
		DBMaxConns:  getEnvAsInt("DB_MAX_CONNS", 10),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		DefaultSellerID:    os.Getenv("DEFAULT_SELLER_ID"),

		Media: MediaConfig{
			CloudinaryURL: cloudinaryURL,
			Source:        source,
			SpoolDir:      getEnv("UPLOAD_DIR", os.TempDir()),
			Folder:        getEnv("UPLOAD_FOLDER", "marketplace/products"),
			MaxUploadSize: int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
