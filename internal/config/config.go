package config

import (
	"os"
	"strings"
)

type Config struct {
	Port          string
	Env           string
	MongoURI      string
	MongoDB       string
	WebhookURL    string
	WebhookToken  string
	DefaultLocale string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		Env:           getEnv("ENV", "development"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGODB_DATABASE", "attendance"),
		WebhookURL:    strings.TrimRight(getEnv("NOTIFY_WEBHOOK_URL", ""), "/"),
		WebhookToken:  getEnv("NOTIFY_WEBHOOK_TOKEN", ""),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
