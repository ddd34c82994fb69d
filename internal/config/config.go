package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	APIBaseURL           string
	RealtimeURL          string
	DatabaseDSN          string
	HTTPPort             string
	Secret               string
	RequestTimeout       time.Duration
	MaxReconnectAttempts int
	SessionTTL           time.Duration
}

// Load reads configuration from .env and environment variables with reasonable defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("API_BASE_URL", "https://api.comandago.com/")
	v.SetDefault("REALTIME_URL", "wss://messages.comandago.com")
	v.SetDefault("DATABASE_DSN", "file:pos.db")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("SECRET", "dev_secret")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("REALTIME_MAX_RECONNECTS", 5)
	v.SetDefault("SESSION_TTL", "24h")
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	base := v.GetString("API_BASE_URL")
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	port := v.GetString("HTTP_PORT")
	if strings.TrimLeft(port, "0123456789") != "" || port == "" {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	timeout := v.GetDuration("REQUEST_TIMEOUT")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := v.GetDuration("SESSION_TTL")
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	attempts := v.GetInt("REALTIME_MAX_RECONNECTS")
	if attempts < 0 {
		attempts = 0
	}

	return Config{
		APIBaseURL:           base,
		RealtimeURL:          v.GetString("REALTIME_URL"),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		HTTPPort:             port,
		Secret:               v.GetString("SECRET"),
		RequestTimeout:       timeout,
		MaxReconnectAttempts: attempts,
		SessionTTL:           ttl,
	}
}
