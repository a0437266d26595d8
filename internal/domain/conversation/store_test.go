package conversation

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// memPersistence collects snapshot writes in memory. Saves arrive from the
// store's async writer, so access is guarded.
type memPersistence struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newMemPersistence() *memPersistence {
	return &memPersistence{data: map[string][]byte{}}
}

func (m *memPersistence) Save(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	m.saves++
	return nil
}

func (m *memPersistence) Load(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *memPersistence) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func newTestStore(t *testing.T) (*Store, *memPersistence) {
	t.Helper()
	persistence := newMemPersistence()
	store, err := Open(persistence, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return store, persistence
}

func appendTestTurn(t *testing.T, store *Store, convID, content string, models []string) string {
	t.Helper()
	turnID, seq := store.NextTurnID()
	err := store.AppendTurn(convID, Turn{
		ID:          turnID,
		Seq:         seq,
		UserContent: content,
		Responses:   map[string]ModelResponse{},
	})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if !store.MarkPending(convID, turnID, models) {
		t.Fatalf("MarkPending() = false, want true")
	}
	return turnID
}

func TestNextTurnIDOrdering(t *testing.T) {
	store, _ := newTestStore(t)

	prev := ""
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, seq := store.NextTurnID()
		if seen[id] {
			t.Fatalf("NextTurnID() returned duplicate id %q", id)
		}
		seen[id] = true
		if uint64(i+1) != seq {
			t.Fatalf("NextTurnID() seq = %d, want %d", seq, i+1)
		}
		if prev != "" && !(prev < id) {
			t.Fatalf("NextTurnID() id %q not after %q", id, prev)
		}
		prev = id
	}
}

func TestMarkPendingInitializesAllSlots(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)

	models := []string{"gpt-3.5", "qwen-max", "qwen-turbo"}
	turnID := appendTestTurn(t, store, conv.ID, "hello", models)

	got, err := store.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	turn := got.Turns[0]
	if turn.ID != turnID {
		t.Fatalf("turn id = %q, want %q", turn.ID, turnID)
	}
	if len(turn.Responses) != len(models) {
		t.Fatalf("len(Responses) = %d, want %d", len(turn.Responses), len(models))
	}
	for _, modelID := range models {
		if turn.Responses[modelID].Status != ResponseStatusPending {
			t.Errorf("slot %q status = %q, want %q", modelID, turn.Responses[modelID].Status, ResponseStatusPending)
		}
	}
}

func TestPatchResponseIsolation(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)
	turnID := appendTestTurn(t, store, conv.ID, "hello", []string{"model-a", "model-b"})

	if !store.PatchResponse(conv.ID, turnID, "model-a", ModelResponse{Status: ResponseStatusError, Text: "timeout"}) {
		t.Fatal("PatchResponse(model-a) = false, want true")
	}

	got, _ := store.GetConversation(conv.ID)
	turn := got.Turns[0]
	if turn.Responses["model-a"].Status != ResponseStatusError {
		t.Errorf("model-a status = %q, want error", turn.Responses["model-a"].Status)
	}
	if turn.Responses["model-b"].Status != ResponseStatusPending {
		t.Errorf("model-b status = %q, want pending", turn.Responses["model-b"].Status)
	}
}

func TestPatchResponseFirstTerminalWriteWins(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)
	turnID := appendTestTurn(t, store, conv.ID, "hello", []string{"model-a"})

	first := ModelResponse{Status: ResponseStatusSuccess, Text: "first", TokenCount: 3}
	if !store.PatchResponse(conv.ID, turnID, "model-a", first) {
		t.Fatal("first PatchResponse() = false, want true")
	}
	if store.PatchResponse(conv.ID, turnID, "model-a", ModelResponse{Status: ResponseStatusError, Text: "late"}) {
		t.Fatal("second PatchResponse() = true, want drop")
	}

	got, _ := store.GetConversation(conv.ID)
	if resp := got.Turns[0].Responses["model-a"]; resp != first {
		t.Errorf("slot = %+v, want first write %+v", resp, first)
	}
}

func TestPatchResponseDroppedAfterDelete(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)
	turnID := appendTestTurn(t, store, conv.ID, "hello", []string{"model-a"})

	if err := store.DeleteConversation(conv.ID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if store.PatchResponse(conv.ID, turnID, "model-a", ModelResponse{Status: ResponseStatusSuccess, Text: "late"}) {
		t.Fatal("PatchResponse() after delete = true, want drop")
	}
	if store.MarkPending(conv.ID, turnID, []string{"model-a"}) {
		t.Fatal("MarkPending() after delete = true, want drop")
	}
}

func TestPatchResponseDroppedAfterClear(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)
	turnID := appendTestTurn(t, store, conv.ID, "hello", []string{"model-a"})

	if err := store.ClearTurns(conv.ID); err != nil {
		t.Fatalf("ClearTurns() error = %v", err)
	}
	if store.PatchResponse(conv.ID, turnID, "model-a", ModelResponse{Status: ResponseStatusSuccess}) {
		t.Fatal("PatchResponse() after clear = true, want drop")
	}

	got, _ := store.GetConversation(conv.ID)
	if len(got.Turns) != 0 {
		t.Fatalf("len(Turns) = %d, want 0", len(got.Turns))
	}
}

func TestTurnIdentityStableAcrossAppends(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)
	firstID := appendTestTurn(t, store, conv.ID, "one", []string{"model-a"})
	appendTestTurn(t, store, conv.ID, "two", []string{"model-a"})
	appendTestTurn(t, store, conv.ID, "three", []string{"model-a"})

	// A patch addressed to the first turn lands in the first turn, not at
	// a shifted position.
	if !store.PatchResponse(conv.ID, firstID, "model-a", ModelResponse{Status: ResponseStatusSuccess, Text: "one-reply"}) {
		t.Fatal("PatchResponse() = false, want true")
	}

	got, _ := store.GetConversation(conv.ID)
	if got.Turns[0].Responses["model-a"].Text != "one-reply" {
		t.Errorf("first turn slot text = %q, want %q", got.Turns[0].Responses["model-a"].Text, "one-reply")
	}
	for _, turn := range got.Turns[1:] {
		if turn.Responses["model-a"].Status != ResponseStatusPending {
			t.Errorf("turn %q status = %q, want pending", turn.ID, turn.Responses["model-a"].Status)
		}
	}
}

func TestSnapshotPersistedOnEveryMutation(t *testing.T) {
	store, persistence := newTestStore(t)

	conv := store.CreateConversation("test", DefaultSystemPrompt)
	turnID := appendTestTurn(t, store, conv.ID, "hello", []string{"model-a"})
	store.PatchResponse(conv.ID, turnID, "model-a", ModelResponse{Status: ResponseStatusSuccess, Text: "done"})
	store.Flush()

	// create + append + pending + patch
	if saves := persistence.saveCount(); saves != 4 {
		t.Fatalf("save count = %d, want 4", saves)
	}

	data, ok, err := persistence.Load(SnapshotKey)
	if err != nil || !ok {
		t.Fatalf("Load() = (%v, %v), want snapshot present", ok, err)
	}
	var doc struct {
		Conversations []*Conversation `json:"conversations"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("snapshot decode error = %v", err)
	}
	if len(doc.Conversations) != 1 || len(doc.Conversations[0].Turns) != 1 {
		t.Fatalf("snapshot shape = %d conversations, want 1 with 1 turn", len(doc.Conversations))
	}
	if doc.Conversations[0].Turns[0].Responses["model-a"].Text != "done" {
		t.Error("snapshot missing last patch")
	}
}

func TestReopenRestoresCollectionAndSequence(t *testing.T) {
	persistence := newMemPersistence()
	store, err := Open(persistence, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	conv := store.CreateConversation("test", DefaultSystemPrompt)
	turnID := appendTestTurn(t, store, conv.ID, "hello", []string{"model-a"})
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(persistence, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	got, err := reopened.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() after reopen error = %v", err)
	}
	if got.Turns[0].ID != turnID {
		t.Errorf("restored turn id = %q, want %q", got.Turns[0].ID, turnID)
	}

	nextID, seq := reopened.NextTurnID()
	if seq != 2 {
		t.Errorf("restored seq = %d, want 2", seq)
	}
	if !(turnID < nextID) {
		t.Errorf("new id %q not after restored %q", nextID, turnID)
	}
}

func TestGetConversationReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)
	turnID := appendTestTurn(t, store, conv.ID, "hello", []string{"model-a"})

	got, _ := store.GetConversation(conv.ID)
	got.Turns[0].Responses["model-a"] = ModelResponse{Status: ResponseStatusSuccess, Text: "mutated"}
	got.Title = "mutated"

	fresh, _ := store.GetConversation(conv.ID)
	if fresh.Title != "test" {
		t.Errorf("title = %q, want %q", fresh.Title, "test")
	}
	if fresh.Turns[0].Responses["model-a"].Status != ResponseStatusPending {
		t.Error("caller mutation leaked into the store")
	}
	_ = turnID
}

func TestUpdateOperations(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)

	if err := store.UpdateTitle(conv.ID, "renamed"); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}
	if err := store.UpdateSystemPrompt(conv.ID, "Respond in French."); err != nil {
		t.Fatalf("UpdateSystemPrompt() error = %v", err)
	}

	got, _ := store.GetConversation(conv.ID)
	if got.Title != "renamed" {
		t.Errorf("title = %q, want %q", got.Title, "renamed")
	}
	if got.SystemPrompt != "Respond in French." {
		t.Errorf("system prompt = %q", got.SystemPrompt)
	}

	if err := store.UpdateTitle("conv_missing", "x"); err != ErrNotFound {
		t.Errorf("UpdateTitle(missing) error = %v, want ErrNotFound", err)
	}
}

func TestConcurrentPatchesSettleEverySlot(t *testing.T) {
	store, _ := newTestStore(t)
	conv := store.CreateConversation("test", DefaultSystemPrompt)

	models := make([]string, 20)
	for i := range models {
		models[i] = strings.Repeat("m", i+1)
	}
	turnID := appendTestTurn(t, store, conv.ID, "hello", models)

	var wg sync.WaitGroup
	for _, modelID := range models {
		wg.Add(1)
		go func(modelID string) {
			defer wg.Done()
			store.PatchResponse(conv.ID, turnID, modelID, ModelResponse{Status: ResponseStatusSuccess, Text: modelID})
		}(modelID)
	}
	wg.Wait()
	store.Flush()

	got, _ := store.GetConversation(conv.ID)
	for _, modelID := range models {
		resp := got.Turns[0].Responses[modelID]
		if resp.Status != ResponseStatusSuccess || resp.Text != modelID {
			t.Errorf("slot %q = %+v, want success/%q", modelID, resp, modelID)
		}
	}
}
