package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg := FromViper(newViper())

	assert.Equal(t, "https://api.comandago.com/", cfg.APIBaseURL)
	assert.Equal(t, "wss://messages.comandago.com", cfg.RealtimeURL)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestFromViper_AddsTrailingSlashToBaseURL(t *testing.T) {
	v := viper.New()
	v.Set("API_BASE_URL", "http://localhost:9000")

	cfg := FromViper(v)
	assert.Equal(t, "http://localhost:9000/", cfg.APIBaseURL)
}

func TestFromViper_InvalidPortFallsBack(t *testing.T) {
	v := newViper()
	v.Set("HTTP_PORT", "eighty")

	cfg := FromViper(v)
	assert.Equal(t, "8080", cfg.HTTPPort)
}

func TestFromViper_ReadsEnvironment(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("REALTIME_MAX_RECONNECTS", "2")

	cfg := FromViper(newViper())
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.MaxReconnectAttempts)
}
