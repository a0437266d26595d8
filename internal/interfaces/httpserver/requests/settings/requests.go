package settingsrequests

// UpdateSettingsRequest replaces the model configuration
type UpdateSettingsRequest struct {
	Models  []string `json:"models" binding:"required"`
	BaseURL string   `json:"base_url"`
	APIKey  string   `json:"api_key"`
	Layout  int      `json:"layout"`
}
