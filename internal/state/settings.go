package state

import "strings"

// modelSettingKeys are the provider-compatibility-normalized model keys
// from spec's simulator-settings table.
var modelSettingKeys = [3]string{"MODEL_FAST", "MODEL_DEFAULT", "MODEL_THINKING"}

// neverGlobalKeys never take effect from the flat global settings map; they
// only apply from a bot's own _app_settings override.
var neverGlobalKeys = [4]string{"BOT_NAME", "BOT_PERSONALITY", "bot_name", "bot_personality"}

// Default models per provider; openrouter is the only provider whose model
// names are "/"-qualified.
const (
	defaultAnthropicModel  = "claude-sonnet-4-5"
	defaultOpenRouterModel = "anthropic/claude-sonnet-4-5"
)

func providerDefaultModel(provider string) string {
	if provider == "openrouter" {
		return defaultOpenRouterModel
	}
	return defaultAnthropicModel
}

// normalizeModelValue enforces the provider-compatibility rule: a
// "/"-qualified model name is only valid under the openrouter provider;
// anything incompatible or missing falls back to the provider's default.
func normalizeModelValue(provider, value string) string {
	if value == "" {
		return providerDefaultModel(provider)
	}
	if strings.Contains(value, "/") && provider != "openrouter" {
		return providerDefaultModel(provider)
	}
	return value
}

// GetSettings returns a copy of the flat simulator settings map.
func (s *State) GetSettings() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out
}

// SetSettings replaces the flat simulator settings map.
func (s *State) SetSettings(settings map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// PushSettings replaces the flat simulator settings map, stripping the keys
// that never apply globally, and reports whether this was the first push of
// the process. On every push after the first, the settings handler sends
// each connected bot a "restart_requested" events_api envelope; the bots'
// connections are not closed.
func (s *State) PushSettings(settings map[string]string) (first bool) {
	clean := make(map[string]string, len(settings))
	for k, v := range settings {
		clean[k] = v
	}
	for _, k := range neverGlobalKeys {
		delete(clean, k)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	first = !s.settingsPushed
	s.settingsPushed = true
	s.settings = clean
	return first
}

// GetSettingsForBot returns the flat settings merged with the bot's
// `_app_settings` submap (the per-bot override layer, bot-specific keys
// winning over the flat defaults), with the MODEL_* keys normalized for
// provider compatibility against the resulting AI_PROVIDER.
func (s *State) GetSettingsForBot(botID string) map[string]string {
	s.mu.Lock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	if override, ok := s.appSettings[botID]; ok {
		for k, v := range override {
			out[k] = v
		}
	}
	s.mu.Unlock()

	provider := out["AI_PROVIDER"]
	for _, k := range modelSettingKeys {
		out[k] = normalizeModelValue(provider, out[k])
	}
	return out
}

// SetAppSettings replaces the per-bot settings override submap.
func (s *State) SetAppSettings(botID string, settings map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appSettings[botID] = settings
}
