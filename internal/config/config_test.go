package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "mixed", cfg.QuestionMode)
	assert.Equal(t, 5, cfg.QuestionCount)
	assert.Equal(t, 60*time.Second, cfg.OpenAITimeout)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.AdminEnabled())
	assert.False(t, cfg.Auth0Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("AUTH0_DOMAIN", "example.auth0.com/")
	t.Setenv("AUTH0_CLIENT_ID", "cid")
	t.Setenv("AUTH0_CLIENT_SECRET", "csecret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.IsProd())
	assert.True(t, cfg.AdminEnabled())
	assert.True(t, cfg.Auth0Enabled())
	assert.Equal(t, "https://example.auth0.com", cfg.Auth0BaseURL())
}
