package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modelarena/internal/interfaces/httpserver/handlers/settingshandler"
	settingsrequests "modelarena/internal/interfaces/httpserver/requests/settings"
	"modelarena/internal/interfaces/httpserver/responses"
	"modelarena/internal/utils/platformerrors"
)

type SettingsRoute struct {
	handler *settingshandler.SettingsHandler
}

func NewSettingsRoute(handler *settingshandler.SettingsHandler) *SettingsRoute {
	return &SettingsRoute{handler: handler}
}

func (route *SettingsRoute) RegisterRouter(router gin.IRouter) {
	router.GET("/settings", route.getSettings)
	router.PUT("/settings", route.updateSettings)
}

func (route *SettingsRoute) getSettings(reqCtx *gin.Context) {
	reqCtx.JSON(http.StatusOK, route.handler.GetSettings(reqCtx.Request.Context()))
}

func (route *SettingsRoute) updateSettings(reqCtx *gin.Context) {
	var req settingsrequests.UpdateSettingsRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid settings payload")
		return
	}
	resp, err := route.handler.UpdateSettings(reqCtx.Request.Context(), req)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to update settings")
		return
	}
	reqCtx.JSON(http.StatusOK, resp)
}
