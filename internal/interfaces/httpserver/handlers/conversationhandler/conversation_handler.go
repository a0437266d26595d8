package conversationhandler

import (
	"context"
	"errors"
	"fmt"

	"modelarena/internal/domain/conversation"
	"modelarena/internal/domain/dispatch"
	"modelarena/internal/infrastructure/metrics"
	conversationrequests "modelarena/internal/interfaces/httpserver/requests/conversation"
	conversationresponses "modelarena/internal/interfaces/httpserver/responses/conversation"
	"modelarena/internal/utils/platformerrors"
)

// ConversationHandler handles conversation-related HTTP requests
type ConversationHandler struct {
	store      *conversation.Store
	dispatcher *dispatch.Dispatcher
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(store *conversation.Store, dispatcher *dispatch.Dispatcher) *ConversationHandler {
	return &ConversationHandler{
		store:      store,
		dispatcher: dispatcher,
	}
}

// CreateConversation creates a new conversation. Title defaults to
// "New chat N", the system prompt to the stock assistant prompt.
func (h *ConversationHandler) CreateConversation(
	ctx context.Context,
	req conversationrequests.CreateConversationRequest,
) *conversationresponses.ConversationResponse {
	title := fmt.Sprintf("New chat %d", len(h.store.ListConversations())+1)
	if req.Title != nil && *req.Title != "" {
		title = *req.Title
	}
	systemPrompt := conversation.DefaultSystemPrompt
	if req.SystemPrompt != nil {
		systemPrompt = *req.SystemPrompt
	}

	conv := h.store.CreateConversation(title, systemPrompt)
	metrics.ConversationsCreatedTotal.Inc()
	return conversationresponses.NewConversationResponse(conv)
}

// ListConversations returns all conversations in creation order.
func (h *ConversationHandler) ListConversations(ctx context.Context) *conversationresponses.ConversationListResponse {
	return conversationresponses.NewConversationListResponse(h.store.ListConversations())
}

// GetConversation retrieves a conversation by ID
func (h *ConversationHandler) GetConversation(
	ctx context.Context,
	conversationID string,
) (*conversationresponses.ConversationResponse, error) {
	conv, err := h.store.GetConversation(conversationID)
	if err != nil {
		return nil, h.wrapStoreError(ctx, err, "failed to get conversation")
	}
	return conversationresponses.NewConversationResponse(conv), nil
}

// UpdateConversation updates title and/or system prompt.
func (h *ConversationHandler) UpdateConversation(
	ctx context.Context,
	conversationID string,
	req conversationrequests.UpdateConversationRequest,
) (*conversationresponses.ConversationResponse, error) {
	if req.Title != nil {
		if err := h.store.UpdateTitle(conversationID, *req.Title); err != nil {
			return nil, h.wrapStoreError(ctx, err, "failed to update title")
		}
	}
	if req.SystemPrompt != nil {
		if err := h.store.UpdateSystemPrompt(conversationID, *req.SystemPrompt); err != nil {
			return nil, h.wrapStoreError(ctx, err, "failed to update system prompt")
		}
	}
	return h.GetConversation(ctx, conversationID)
}

// DeleteConversation removes the conversation. In-flight completions
// addressed at its turns are dropped by the store when they settle.
func (h *ConversationHandler) DeleteConversation(
	ctx context.Context,
	conversationID string,
) (*conversationresponses.DeletedResponse, error) {
	if err := h.store.DeleteConversation(conversationID); err != nil {
		return nil, h.wrapStoreError(ctx, err, "failed to delete conversation")
	}
	return &conversationresponses.DeletedResponse{
		ID:      conversationID,
		Object:  "conversation.deleted",
		Deleted: true,
	}, nil
}

// ClearConversation removes all turns but keeps the conversation.
func (h *ConversationHandler) ClearConversation(
	ctx context.Context,
	conversationID string,
) (*conversationresponses.ConversationResponse, error) {
	if err := h.store.ClearTurns(conversationID); err != nil {
		return nil, h.wrapStoreError(ctx, err, "failed to clear conversation")
	}
	return h.GetConversation(ctx, conversationID)
}

// SubmitTurn dispatches the prompt to every configured model and returns
// the appended turn with all slots pending. Results land asynchronously.
func (h *ConversationHandler) SubmitTurn(
	ctx context.Context,
	conversationID string,
	req conversationrequests.SubmitTurnRequest,
) (*conversationresponses.TurnResponse, error) {
	turn, err := h.dispatcher.Submit(ctx, conversationID, req.Content)
	if err != nil {
		return nil, h.wrapStoreError(ctx, err, "failed to submit turn")
	}
	if turn == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler,
			platformerrors.ErrorTypeNotFound, "conversation deleted during submit", nil)
	}
	return conversationresponses.NewTurnResponse(turn), nil
}

// ListTurns returns the conversation's turns in creation order.
func (h *ConversationHandler) ListTurns(
	ctx context.Context,
	conversationID string,
) (*conversationresponses.TurnListResponse, error) {
	conv, err := h.store.GetConversation(conversationID)
	if err != nil {
		return nil, h.wrapStoreError(ctx, err, "failed to list turns")
	}
	data := make([]*conversationresponses.TurnResponse, len(conv.Turns))
	for i := range conv.Turns {
		data[i] = conversationresponses.NewTurnResponse(&conv.Turns[i])
	}
	return &conversationresponses.TurnListResponse{Object: "list", Data: data}, nil
}

func (h *ConversationHandler) wrapStoreError(ctx context.Context, err error, message string) error {
	if errors.Is(err, conversation.ErrNotFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerHandler,
			platformerrors.ErrorTypeNotFound, "conversation not found", err)
	}
	return platformerrors.AsError(ctx, platformerrors.LayerHandler, err, message)
}
