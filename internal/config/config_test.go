package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"T0001", []string{"T0001"}},
		{"T0001,T0002", []string{"T0001", "T0002"}},
		{" T0001 , T0002 ,T0003", []string{"T0001", "T0002", "T0003"}},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, splitList(tc.raw), "raw %q", tc.raw)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/slackgate")
	t.Setenv("SLACK_COMMAND", "/myapp")
	t.Setenv("SLACK_TEAM_IDS", "T0001, T0002")
	t.Setenv("AUTH_BYPASS_LOCAL", "true")

	cfg, err := LoadConfig()

	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "/myapp", cfg.SlackCommand)
	assert.Equal(t, []string{"T0001", "T0002"}, cfg.SlackTeamIDs)
	assert.True(t, cfg.AuthBypassLocal)
	assert.Equal(t, "SyncWorker", cfg.SyncWorkerName)
	assert.Equal(t, "AsyncWorker", cfg.AsyncWorkerName)
	assert.Equal(t, "https://slack.com/api/oauth.v2.access", cfg.SlackOAuthURL)
}
