package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	fileSys := afero.NewMemMapFs()

	cfg, err := Load(fileSys, "")
	require.NoError(t, err)

	assert.Equal(t, "hey steve", cfg.WakeWord)
	assert.Equal(t, "goodbye steve", cfg.GoodbyeWord)
	assert.Equal(t, 4.0, cfg.SilenceDurationS)
	assert.Equal(t, 0.5, cfg.MinSpeechDurationS)
	assert.Equal(t, 20.0, cfg.MaxRecordingTimeS)
	assert.Equal(t, 200, cfg.MaxDailyCalls)
	assert.Equal(t, 30, cfg.MaxHourlyCalls)
	assert.Equal(t, 5.00, cfg.MaxSessionCost)
	assert.Equal(t, 20, cfg.MaxConversationTurns)
	assert.Equal(t, 8000, cfg.MaxHistoryTokens)
	assert.True(t, cfg.EnableHistory)
	assert.Equal(t, 0.8, cfg.UsageWarningFraction)
	assert.True(t, cfg.EnableChimes)
}

func TestLoadOverridesKeepUnsetDefaults(t *testing.T) {
	fileSys := afero.NewMemMapFs()
	yaml := []byte("wake_word: hey computer\nmax_daily_calls: 5\n")
	require.NoError(t, afero.WriteFile(fileSys, "assistant.yaml", yaml, 0o644))

	cfg, err := Load(fileSys, "assistant.yaml")
	require.NoError(t, err)

	assert.Equal(t, "hey computer", cfg.WakeWord)
	assert.Equal(t, 5, cfg.MaxDailyCalls)
	// untouched keys keep defaults
	assert.Equal(t, "goodbye steve", cfg.GoodbyeWord)
	assert.Equal(t, 30, cfg.MaxHourlyCalls)
	assert.True(t, cfg.EnableHistory)
}

func TestLoadMissingFileFails(t *testing.T) {
	fileSys := afero.NewMemMapFs()

	_, err := Load(fileSys, "nope.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty wake word", func(c *Config) { c.WakeWord = "" }},
		{"zero silence duration", func(c *Config) { c.SilenceDurationS = 0 }},
		{"cap below min speech", func(c *Config) { c.MaxRecordingTimeS = 0.1 }},
		{"zero daily calls", func(c *Config) { c.MaxDailyCalls = 0 }},
		{"negative session cost", func(c *Config) { c.MaxSessionCost = -1 }},
		{"memory percent over 100", func(c *Config) { c.MaxMemoryPercent = 120 }},
		{"warning fraction over 1", func(c *Config) { c.UsageWarningFraction = 1.2 }},
		{"zero queue", func(c *Config) { c.UtteranceQueueSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
