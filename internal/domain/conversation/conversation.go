package conversation

import (
	"time"

	"modelarena/internal/utils/idgen"
)

// DefaultSystemPrompt seeds new conversations until the user edits it.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// ResponseStatus is the lifecycle state of one model's slot within a turn.
type ResponseStatus string

const (
	ResponseStatusPending ResponseStatus = "pending"
	ResponseStatusSuccess ResponseStatus = "success"
	ResponseStatusError   ResponseStatus = "error"
)

// SystemModelID is the reserved slot used for synthetic responses that do
// not originate from a configured model, e.g. the missing-configuration
// error surfaced before any dispatch.
const SystemModelID = "system"

// ModelResponse is the mutable cell holding one model's response lifecycle
// for one turn. pending -> success|error; terminal states never transition.
type ModelResponse struct {
	Status     ResponseStatus `json:"status"`
	Text       string         `json:"text,omitempty"`
	ElapsedMS  int64          `json:"elapsed_ms,omitempty"`
	TokenCount int            `json:"token_count,omitempty"`
}

// Terminal reports whether the slot reached success or error.
func (r ModelResponse) Terminal() bool {
	return r.Status == ResponseStatusSuccess || r.Status == ResponseStatusError
}

// Turn is one user prompt plus the per-model responses it elicited.
// ID and UserContent are immutable after creation; only Responses entries
// mutate, and only through Store.PatchResponse for that exact slot.
type Turn struct {
	ID           string                   `json:"id"`
	Seq          uint64                   `json:"seq"`
	UserContent  string                   `json:"user_content"`
	TargetModels []string                 `json:"target_models,omitempty"`
	Responses    map[string]ModelResponse `json:"responses"`
	CreatedAt    time.Time                `json:"created_at"`
}

// Clone returns a deep copy safe to hand outside the store.
func (t *Turn) Clone() Turn {
	clone := *t
	if t.TargetModels != nil {
		clone.TargetModels = append([]string(nil), t.TargetModels...)
	}
	clone.Responses = make(map[string]ModelResponse, len(t.Responses))
	for modelID, resp := range t.Responses {
		clone.Responses[modelID] = resp
	}
	return clone
}

// Conversation is an ordered log of turns plus the system prompt applied
// to every dispatch inside it.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SystemPrompt string    `json:"system_prompt"`
	Turns        []Turn    `json:"turns"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand outside the store.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Turns = make([]Turn, len(c.Turns))
	for i := range c.Turns {
		clone.Turns[i] = c.Turns[i].Clone()
	}
	return &clone
}

// NewConversation creates a conversation with a fresh public ID.
func NewConversation(title, systemPrompt string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:           idgen.MustGenerateSecureID("conv", 16),
		Title:        title,
		SystemPrompt: systemPrompt,
		Turns:        []Turn{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
