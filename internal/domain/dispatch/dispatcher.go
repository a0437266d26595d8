package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelarena/internal/domain/conversation"
	"modelarena/internal/domain/settings"
	"modelarena/internal/infrastructure/metrics"
)

const tracerName = "modelarena/dispatch"

// missingConfigText is surfaced in the synthetic system slot when no
// endpoint or credential is configured.
const missingConfigText = "No endpoint configured. Set the base URL and API key in settings before sending prompts."

// genericFailureText replaces empty adapter failure messages.
const genericFailureText = "request failed"

// Completion is the normalized success payload from one model call.
type Completion struct {
	Text       string
	TokenCount int
	ElapsedMS  int64
}

// ModelClient issues one completion call against one model. Failures of
// any kind (transport, auth, upstream) are returned as a plain error; the
// dispatcher does not branch on the failure subtype.
type ModelClient interface {
	Complete(ctx context.Context, userContent, systemPrompt, modelID string) (*Completion, error)
}

// ClientFactory builds a ModelClient bound to the endpoint and credential
// captured at dispatch time.
type ClientFactory func(baseURL, apiKey string) ModelClient

// Dispatcher fans one user turn out to every configured model. Each
// model's settlement independently patches its own slot in the store;
// nothing joins on the aggregate.
type Dispatcher struct {
	store     *conversation.Store
	settings  *settings.Service
	newClient ClientFactory
	log       zerolog.Logger
}

func NewDispatcher(store *conversation.Store, settings *settings.Service, newClient ClientFactory, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		settings:  settings,
		newClient: newClient,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
}

// Submit appends a new turn for userContent and launches one completion
// call per configured model. It returns once all calls are launched; all
// further effects land in the store as each call settles. The only
// synchronous failure is an unknown conversation. With incomplete
// configuration it appends a synthetic system-origin error turn instead
// and contacts no model.
func (d *Dispatcher) Submit(ctx context.Context, conversationID, userContent string) (*conversation.Turn, error) {
	conv, err := d.store.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}

	cfg := d.settings.Get()

	turnID, seq := d.store.NextTurnID()
	turn := conversation.Turn{
		ID:          turnID,
		Seq:         seq,
		UserContent: userContent,
		Responses:   map[string]conversation.ModelResponse{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := d.store.AppendTurn(conversationID, turn); err != nil {
		return nil, err
	}

	if !cfg.Configured() || len(cfg.Models) == 0 {
		d.store.MarkPending(conversationID, turnID, []string{conversation.SystemModelID})
		d.store.PatchResponse(conversationID, turnID, conversation.SystemModelID, conversation.ModelResponse{
			Status: conversation.ResponseStatusError,
			Text:   missingConfigText,
		})
		d.log.Warn().Str("conversation_id", conversationID).Str("turn_id", turnID).
			Msg("dispatch refused: endpoint not configured")
		return d.currentTurn(conversationID, turnID), nil
	}

	// The target model set is fixed here; later settings edits must not
	// change what this turn expects.
	targets := cfg.Models
	if !d.store.MarkPending(conversationID, turnID, targets) {
		// Conversation deleted between append and pending-init. Nothing
		// left to settle into.
		metrics.StaleDropsTotal.Inc()
		return nil, conversation.ErrNotFound
	}

	metrics.DispatchesTotal.Inc()
	client := d.newClient(cfg.BaseURL, cfg.APIKey)

	// Settlements outlive the submitting request; a client disconnect
	// must not cancel in-flight model calls.
	callCtx := context.WithoutCancel(ctx)
	for _, modelID := range targets {
		go d.call(callCtx, client, conversationID, turnID, modelID, userContent, conv.SystemPrompt)
	}

	return d.currentTurn(conversationID, turnID), nil
}

// call runs one model call to settlement. Errors never escape: every
// outcome becomes a terminal patch on this call's own slot, and only the
// first terminal write for the slot is kept.
func (d *Dispatcher) call(ctx context.Context, client ModelClient, conversationID, turnID, modelID, userContent, systemPrompt string) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "dispatch.model_call", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
		attribute.String("turn.id", turnID),
		attribute.String("model.id", modelID),
	))
	defer span.End()

	start := time.Now()
	completion, err := client.Complete(ctx, userContent, systemPrompt, modelID)
	metrics.ModelCallDuration.WithLabelValues(modelID).Observe(time.Since(start).Seconds())

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.ModelCallsTotal.WithLabelValues(modelID, "error").Inc()

		text := err.Error()
		if text == "" {
			text = genericFailureText
		}
		applied := d.store.PatchResponse(conversationID, turnID, modelID, conversation.ModelResponse{
			Status: conversation.ResponseStatusError,
			Text:   text,
		})
		if !applied {
			metrics.StaleDropsTotal.Inc()
		}
		d.log.Warn().Err(err).Str("conversation_id", conversationID).
			Str("turn_id", turnID).Str("model_id", modelID).Msg("model call failed")
		return
	}

	metrics.ModelCallsTotal.WithLabelValues(modelID, "success").Inc()
	metrics.TokensTotal.WithLabelValues(modelID).Add(float64(completion.TokenCount))

	applied := d.store.PatchResponse(conversationID, turnID, modelID, conversation.ModelResponse{
		Status:     conversation.ResponseStatusSuccess,
		Text:       completion.Text,
		ElapsedMS:  completion.ElapsedMS,
		TokenCount: completion.TokenCount,
	})
	if !applied {
		metrics.StaleDropsTotal.Inc()
	}
}

// currentTurn re-reads the turn for the submit response. The turn can be
// gone already if the conversation was deleted concurrently; the caller
// then gets the turn as appended.
func (d *Dispatcher) currentTurn(conversationID, turnID string) *conversation.Turn {
	conv, err := d.store.GetConversation(conversationID)
	if err != nil {
		return nil
	}
	for i := range conv.Turns {
		if conv.Turns[i].ID == turnID {
			return &conv.Turns[i]
		}
	}
	return nil
}
