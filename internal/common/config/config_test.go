package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Discord.Token)
	assert.Equal(t, "🎉", cfg.Giveaway.EntryEmoji)
	assert.Equal(t, AdminPolicySnapshot, cfg.Giveaway.AdminPolicy)
	assert.Equal(t, 720*time.Hour, cfg.Giveaway.MaxDuration)
	assert.Equal(t, 25, cfg.Giveaway.MaxWinners)
	assert.Equal(t, 3, cfg.Giveaway.ProvisionWorker)
	assert.Equal(t, time.Second, cfg.Giveaway.RetryDelay)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 2*time.Second, cfg.Giveaway.RefreshDelay)
	assert.False(t, cfg.Giveaway.ReconcileReactions)
	assert.Equal(t, "bot:events", cfg.Redis.Stream)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestParse_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")

	_, err := Parse()
	require.Error(t, err)
}

func TestParse_RolePolicyRequiresRole(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("GIVEAWAY_ADMIN_POLICY", AdminPolicyRole)

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GIVEAWAY_ADMIN_ROLE_ID")

	t.Setenv("GIVEAWAY_ADMIN_ROLE_ID", "42")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "42", cfg.Giveaway.AdminRoleID)
}

func TestParse_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"GIVEAWAY_ADMIN_POLICY":          "everyone",
		"GIVEAWAY_MAX_WINNERS":           "0",
		"GIVEAWAY_PROVISION_CONCURRENCY": "0",
		"GIVEAWAY_PLATFORM_RETRIES":      "0",
		"GIVEAWAY_MAX_DURATION":          "0s",
		"LOG_FORMAT":                     "xml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("DISCORD_BOT_TOKEN", "token")
			t.Setenv(key, value)

			_, err := Parse()
			assert.Error(t, err)
		})
	}
}
