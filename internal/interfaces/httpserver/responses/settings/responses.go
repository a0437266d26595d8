package settingsresponses

import "modelarena/internal/domain/settings"

// SettingsResponse is the wire shape of the model configuration.
type SettingsResponse struct {
	Object     string   `json:"object"`
	Models     []string `json:"models"`
	BaseURL    string   `json:"base_url"`
	APIKey     string   `json:"api_key"`
	Layout     int      `json:"layout"`
	Configured bool     `json:"configured"`
}

// NewSettingsResponse converts domain settings.
func NewSettingsResponse(s settings.Settings) *SettingsResponse {
	return &SettingsResponse{
		Object:     "settings",
		Models:     s.Models,
		BaseURL:    s.BaseURL,
		APIKey:     s.APIKey,
		Layout:     s.Layout,
		Configured: s.Configured(),
	}
}
