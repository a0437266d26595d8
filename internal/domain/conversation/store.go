package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelarena/internal/utils/idgen"
)

// SnapshotKey is the persistence key holding the conversation collection.
const SnapshotKey = "conversations"

// ErrNotFound is returned when a conversation id does not resolve.
var ErrNotFound = errors.New("conversation not found")

// Persistence is the external key-value snapshot service the store writes
// through. Implementations must tolerate concurrent Save calls; the later
// write simply overwrites the snapshot.
type Persistence interface {
	Save(key string, value []byte) error
	Load(key string) ([]byte, bool, error)
}

// snapshotDoc is the persisted shape of the whole collection. The turn
// sequence travels with it so restored processes keep issuing ids above
// everything already in the log, even after deletions.
type snapshotDoc struct {
	Conversations []*Conversation `json:"conversations"`
	TurnSeq       uint64          `json:"turn_seq"`
}

// Store owns the in-memory conversation collection. All mutations funnel
// through its mutex; every mutation snapshots the collection to the
// persistence service without blocking the caller on the write.
type Store struct {
	mu            sync.Mutex
	conversations []*Conversation
	turnSeq       uint64

	persistence Persistence
	log         zerolog.Logger
	pending     sync.WaitGroup
}

// Open loads the last snapshot (or starts empty when none exists) and
// returns a ready store.
func Open(persistence Persistence, log zerolog.Logger) (*Store, error) {
	s := &Store{
		persistence: persistence,
		log:         log.With().Str("component", "conversation_store").Logger(),
	}

	data, ok, err := persistence.Load(SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("load conversation snapshot: %w", err)
	}
	if !ok {
		return s, nil
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode conversation snapshot: %w", err)
	}
	s.conversations = doc.Conversations
	s.turnSeq = doc.TurnSeq
	for _, conv := range s.conversations {
		for i := range conv.Turns {
			if conv.Turns[i].Seq > s.turnSeq {
				s.turnSeq = conv.Turns[i].Seq
			}
		}
	}
	return s, nil
}

// Close flushes outstanding snapshot writes and performs a final save.
func (s *Store) Close() error {
	s.pending.Wait()
	s.mu.Lock()
	data, err := s.encodeLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.persistence.Save(SnapshotKey, data)
}

// Flush waits for all snapshot writes issued so far to settle.
func (s *Store) Flush() {
	s.pending.Wait()
}

// NextTurnID issues a turn identifier that is unique for the process
// lifetime and order-comparable: the monotonic sequence is zero-padded
// into the id, so lexicographic order is creation order.
func (s *Store) NextTurnID() (string, uint64) {
	s.mu.Lock()
	s.turnSeq++
	seq := s.turnSeq
	s.mu.Unlock()
	return fmt.Sprintf("turn_%08d_%s", seq, idgen.RandomSuffix(6)), seq
}

// CreateConversation appends a new conversation and returns a copy.
func (s *Store) CreateConversation(title, systemPrompt string) *Conversation {
	conv := NewConversation(title, systemPrompt)

	s.mu.Lock()
	s.conversations = append(s.conversations, conv)
	clone := conv.Clone()
	s.persistLocked()
	s.mu.Unlock()

	return clone
}

// ListConversations returns deep copies in creation order.
func (s *Store) ListConversations() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		out[i] = conv.Clone()
	}
	return out
}

// GetConversation returns a deep copy of the conversation with the given id.
func (s *Store) GetConversation(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(id)
	if conv == nil {
		return nil, ErrNotFound
	}
	return conv.Clone(), nil
}

// DeleteConversation removes the conversation from the collection. Patches
// for its turns delivered afterwards are dropped by PatchResponse.
func (s *Store) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, conv := range s.conversations {
		if conv.ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			s.persistLocked()
			return nil
		}
	}
	return ErrNotFound
}

// UpdateSystemPrompt replaces the conversation's system prompt.
func (s *Store) UpdateSystemPrompt(id, prompt string) error {
	return s.update(id, func(conv *Conversation) {
		conv.SystemPrompt = prompt
	})
}

// UpdateTitle replaces the conversation's title.
func (s *Store) UpdateTitle(id, title string) error {
	return s.update(id, func(conv *Conversation) {
		conv.Title = title
	})
}

// ClearTurns drops all turns but keeps the conversation and its prompt.
func (s *Store) ClearTurns(id string) error {
	return s.update(id, func(conv *Conversation) {
		conv.Turns = []Turn{}
	})
}

func (s *Store) update(id string, mutate func(*Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(id)
	if conv == nil {
		return ErrNotFound
	}
	mutate(conv)
	conv.UpdatedAt = time.Now().UTC()
	s.persistLocked()
	return nil
}

// AppendTurn adds the turn to the end of the conversation's log.
func (s *Store) AppendTurn(conversationID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return ErrNotFound
	}
	conv.Turns = append(conv.Turns, turn.Clone())
	conv.UpdatedAt = turn.CreatedAt
	s.persistLocked()
	return nil
}

// MarkPending initializes a pending slot for every target model in one
// mutation, so readers never observe a partially initialized turn. It also
// records the target model set on the turn. Returns false when the
// conversation or turn is gone.
func (s *Store) MarkPending(conversationID, turnID string, models []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := s.findTurnLocked(conversationID, turnID)
	if turn == nil {
		s.log.Debug().Str("conversation_id", conversationID).Str("turn_id", turnID).
			Msg("mark pending dropped: target no longer exists")
		return false
	}

	turn.TargetModels = append([]string(nil), models...)
	if turn.Responses == nil {
		turn.Responses = make(map[string]ModelResponse, len(models))
	}
	for _, modelID := range models {
		turn.Responses[modelID] = ModelResponse{Status: ResponseStatusPending}
	}
	s.persistLocked()
	return true
}

// PatchResponse merges one model's settlement into the addressed slot. The
// turn is located by id, never by position. First terminal write wins: a
// late or duplicate settlement for an already-terminal slot is dropped.
// A patch for a deleted conversation or turn is dropped as well; both
// drops return false and are not errors.
func (s *Store) PatchResponse(conversationID, turnID, modelID string, resp ModelResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := s.findTurnLocked(conversationID, turnID)
	if turn == nil {
		s.log.Debug().Str("conversation_id", conversationID).Str("turn_id", turnID).
			Str("model_id", modelID).Msg("patch dropped: target no longer exists")
		return false
	}

	if existing, ok := turn.Responses[modelID]; ok && existing.Terminal() {
		s.log.Debug().Str("conversation_id", conversationID).Str("turn_id", turnID).
			Str("model_id", modelID).Str("status", string(existing.Status)).
			Msg("patch dropped: slot already terminal")
		return false
	}

	if turn.Responses == nil {
		turn.Responses = make(map[string]ModelResponse, 1)
	}
	turn.Responses[modelID] = resp
	s.persistLocked()
	return true
}

func (s *Store) findLocked(id string) *Conversation {
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func (s *Store) findTurnLocked(conversationID, turnID string) *Turn {
	conv := s.findLocked(conversationID)
	if conv == nil {
		return nil
	}
	for i := range conv.Turns {
		if conv.Turns[i].ID == turnID {
			return &conv.Turns[i]
		}
	}
	return nil
}

func (s *Store) encodeLocked() ([]byte, error) {
	return json.Marshal(snapshotDoc{
		Conversations: s.conversations,
		TurnSeq:       s.turnSeq,
	})
}

// persistLocked snapshots the collection and hands the bytes to the
// persistence service without holding the caller for the write. Failures
// are logged only; the in-memory collection stays authoritative.
func (s *Store) persistLocked() {
	data, err := s.encodeLocked()
	if err != nil {
		s.log.Error().Err(err).Msg("encode conversation snapshot")
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.persistence.Save(SnapshotKey, data); err != nil {
			s.log.Error().Err(err).Msg("persist conversation snapshot")
		}
	}()
}
