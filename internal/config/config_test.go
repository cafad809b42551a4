package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	c := Load()

	assert.Equal(t, "8080", c.ServerPort)
	assert.Equal(t, 24*time.Hour, c.SessionTTL)
	assert.Equal(t, 10, c.MessageRateLimit)
	assert.Equal(t, 2*time.Hour, c.MessageRateWindow)
	assert.False(t, c.CookieSecure)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("MESSAGE_RATE_LIMIT", "3")
	t.Setenv("MESSAGE_RATE_WINDOW", "bogus")

	c := Load()

	assert.Equal(t, "9090", c.ServerPort)
	assert.Equal(t, time.Hour, c.SessionTTL)
	assert.True(t, c.CookieSecure)
	assert.Equal(t, 3, c.MessageRateLimit)
	assert.Equal(t, 2*time.Hour, c.MessageRateWindow, "invalid duration falls back to default")
}

func TestDSN(t *testing.T) {
	c := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://other"
	assert.Equal(t, "postgres://other", c.DSN())
}
