package conversation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modelarena/internal/interfaces/httpserver/handlers/conversationhandler"
	conversationrequests "modelarena/internal/interfaces/httpserver/requests/conversation"
	"modelarena/internal/interfaces/httpserver/responses"
	"modelarena/internal/utils/platformerrors"
)

type ConversationRoute struct {
	handler *conversationhandler.ConversationHandler
}

func NewConversationRoute(handler *conversationhandler.ConversationHandler) *ConversationRoute {
	return &ConversationRoute{handler: handler}
}

func (route *ConversationRoute) RegisterRouter(router gin.IRouter) {
	conversations := router.Group("/conversations")
	conversations.GET("", route.listConversations)
	conversations.POST("", route.createConversation)
	conversations.GET("/:conv_id", route.getConversation)
	conversations.POST("/:conv_id", route.updateConversation)
	conversations.DELETE("/:conv_id", route.deleteConversation)
	conversations.POST("/:conv_id/clear", route.clearConversation)
	conversations.GET("/:conv_id/turns", route.listTurns)
	conversations.POST("/:conv_id/turns", route.submitTurn)
}

func (route *ConversationRoute) listConversations(reqCtx *gin.Context) {
	reqCtx.JSON(http.StatusOK, route.handler.ListConversations(reqCtx.Request.Context()))
}

func (route *ConversationRoute) createConversation(reqCtx *gin.Context) {
	var req conversationrequests.CreateConversationRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body")
		return
	}
	reqCtx.JSON(http.StatusCreated, route.handler.CreateConversation(reqCtx.Request.Context(), req))
}

func (route *ConversationRoute) getConversation(reqCtx *gin.Context) {
	resp, err := route.handler.GetConversation(reqCtx.Request.Context(), reqCtx.Param("conv_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to get conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, resp)
}

func (route *ConversationRoute) updateConversation(reqCtx *gin.Context) {
	var req conversationrequests.UpdateConversationRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body")
		return
	}
	resp, err := route.handler.UpdateConversation(reqCtx.Request.Context(), reqCtx.Param("conv_id"), req)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to update conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, resp)
}

func (route *ConversationRoute) deleteConversation(reqCtx *gin.Context) {
	resp, err := route.handler.DeleteConversation(reqCtx.Request.Context(), reqCtx.Param("conv_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to delete conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, resp)
}

func (route *ConversationRoute) clearConversation(reqCtx *gin.Context) {
	resp, err := route.handler.ClearConversation(reqCtx.Request.Context(), reqCtx.Param("conv_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to clear conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, resp)
}

func (route *ConversationRoute) listTurns(reqCtx *gin.Context) {
	resp, err := route.handler.ListTurns(reqCtx.Request.Context(), reqCtx.Param("conv_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list turns")
		return
	}
	reqCtx.JSON(http.StatusOK, resp)
}

// submitTurn accepts the prompt and returns 202: the turn is appended
// with every slot pending, and settlements stream into the store as the
// model calls finish.
func (route *ConversationRoute) submitTurn(reqCtx *gin.Context) {
	var req conversationrequests.SubmitTurnRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "content is required")
		return
	}
	resp, err := route.handler.SubmitTurn(reqCtx.Request.Context(), reqCtx.Param("conv_id"), req)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to submit turn")
		return
	}
	reqCtx.JSON(http.StatusAccepted, resp)
}
