package conversationresponses

import (
	"time"

	"modelarena/internal/domain/conversation"
)

// TurnResponse is the wire shape of one turn and its per-model slots.
type TurnResponse struct {
	ID           string                                `json:"id"`
	Object       string                                `json:"object"`
	Seq          uint64                                `json:"seq"`
	UserContent  string                                `json:"user_content"`
	TargetModels []string                              `json:"target_models,omitempty"`
	Responses    map[string]conversation.ModelResponse `json:"responses"`
	CreatedAt    time.Time                             `json:"created_at"`
}

// NewTurnResponse converts a domain turn.
func NewTurnResponse(turn *conversation.Turn) *TurnResponse {
	clone := turn.Clone()
	return &TurnResponse{
		ID:           clone.ID,
		Object:       "conversation.turn",
		Seq:          clone.Seq,
		UserContent:  clone.UserContent,
		TargetModels: clone.TargetModels,
		Responses:    clone.Responses,
		CreatedAt:    clone.CreatedAt,
	}
}

// TurnListResponse lists turns in creation order.
type TurnListResponse struct {
	Object string          `json:"object"`
	Data   []*TurnResponse `json:"data"`
}

// ConversationResponse is the wire shape of a conversation.
type ConversationResponse struct {
	ID           string          `json:"id"`
	Object       string          `json:"object"`
	Title        string          `json:"title"`
	SystemPrompt string          `json:"system_prompt"`
	Turns        []*TurnResponse `json:"turns"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewConversationResponse converts a domain conversation.
func NewConversationResponse(conv *conversation.Conversation) *ConversationResponse {
	turns := make([]*TurnResponse, len(conv.Turns))
	for i := range conv.Turns {
		turns[i] = NewTurnResponse(&conv.Turns[i])
	}
	return &ConversationResponse{
		ID:           conv.ID,
		Object:       "conversation",
		Title:        conv.Title,
		SystemPrompt: conv.SystemPrompt,
		Turns:        turns,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
}

// ConversationListResponse lists conversations in creation order.
type ConversationListResponse struct {
	Object string                  `json:"object"`
	Data   []*ConversationResponse `json:"data"`
}

// NewConversationListResponse converts an ordered collection.
func NewConversationListResponse(convs []*conversation.Conversation) *ConversationListResponse {
	data := make([]*ConversationResponse, len(convs))
	for i, conv := range convs {
		data[i] = NewConversationResponse(conv)
	}
	return &ConversationListResponse{Object: "list", Data: data}
}

// DeletedResponse acknowledges a deletion.
type DeletedResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
