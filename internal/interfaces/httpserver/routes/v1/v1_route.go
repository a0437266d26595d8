package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modelarena/internal/interfaces/httpserver/routes/v1/conversation"
	"modelarena/internal/interfaces/httpserver/routes/v1/settings"
)

// Version is stamped at build time.
var Version = "dev"

type V1Route struct {
	conversation *conversation.ConversationRoute
	settings     *settings.SettingsRoute
}

func NewV1Route(
	conversation *conversation.ConversationRoute,
	settings *settings.SettingsRoute,
) *V1Route {
	return &V1Route{
		conversation,
		settings,
	}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/version", GetVersion)

	v1Route.conversation.RegisterRouter(v1Router)
	v1Route.settings.RegisterRouter(v1Router)
}

func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}
