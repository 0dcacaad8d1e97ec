package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushSettings_StripsNeverGlobalKeys(t *testing.T) {
	s := newTestState(t)
	s.PushSettings(map[string]string{"BOT_NAME": "Global Bot", "AI_PROVIDER": "anthropic"})

	got := s.GetSettings()
	assert.Empty(t, got["BOT_NAME"])
	assert.Equal(t, "anthropic", got["AI_PROVIDER"])
}

func TestPushSettings_FirstVsSubsequent(t *testing.T) {
	s := newTestState(t)
	assert.True(t, s.PushSettings(map[string]string{"AI_PROVIDER": "anthropic"}))
	assert.False(t, s.PushSettings(map[string]string{"AI_PROVIDER": "openrouter"}))
}

func TestGetSettingsForBot_AppliesOverrideAndModelNormalization(t *testing.T) {
	s := newTestState(t)
	s.PushSettings(map[string]string{"AI_PROVIDER": "anthropic", "MODEL_DEFAULT": "openrouter-only/model"})
	s.SetAppSettings("bot1", map[string]string{"BOT_NAME": "Bot One"})

	merged := s.GetSettingsForBot("bot1")
	assert.Equal(t, "Bot One", merged["BOT_NAME"])
	// "/"-qualified model is incompatible with a non-openrouter provider, so
	// it falls back to that provider's default.
	assert.Equal(t, "claude-sonnet-4-5", merged["MODEL_DEFAULT"])

	other := s.GetSettingsForBot("bot2")
	assert.Empty(t, other["BOT_NAME"])
}

func TestGetSettingsForBot_OpenRouterAllowsSlashQualifiedModel(t *testing.T) {
	s := newTestState(t)
	s.PushSettings(map[string]string{"AI_PROVIDER": "openrouter", "MODEL_FAST": "anthropic/claude-haiku"})

	merged := s.GetSettingsForBot("any")
	assert.Equal(t, "anthropic/claude-haiku", merged["MODEL_FAST"])
}
