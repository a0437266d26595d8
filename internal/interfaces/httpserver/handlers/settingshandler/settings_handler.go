package settingshandler

import (
	"context"

	"modelarena/internal/domain/settings"
	settingsrequests "modelarena/internal/interfaces/httpserver/requests/settings"
	settingsresponses "modelarena/internal/interfaces/httpserver/responses/settings"
	"modelarena/internal/utils/platformerrors"
)

// SettingsHandler handles model configuration requests
type SettingsHandler struct {
	settings *settings.Service
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(service *settings.Service) *SettingsHandler {
	return &SettingsHandler{settings: service}
}

// GetSettings returns the current model configuration.
func (h *SettingsHandler) GetSettings(ctx context.Context) *settingsresponses.SettingsResponse {
	return settingsresponses.NewSettingsResponse(h.settings.Get())
}

// UpdateSettings replaces the model configuration. Turns already
// dispatched keep the target model set they snapshotted.
func (h *SettingsHandler) UpdateSettings(
	ctx context.Context,
	req settingsrequests.UpdateSettingsRequest,
) (*settingsresponses.SettingsResponse, error) {
	updated, err := h.settings.Update(settings.Settings{
		Models:  req.Models,
		BaseURL: req.BaseURL,
		APIKey:  req.APIKey,
		Layout:  req.Layout,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to update settings")
	}
	return settingsresponses.NewSettingsResponse(updated), nil
}
