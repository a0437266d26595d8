package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domainconversation "modelarena/internal/domain/conversation"
	"modelarena/internal/domain/dispatch"
	"modelarena/internal/domain/settings"
	"modelarena/internal/interfaces/httpserver/handlers/conversationhandler"
)

type memPersistence struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memPersistence) Save(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memPersistence) Load(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	return value, ok, nil
}

type stubClient struct{}

func (stubClient) Complete(ctx context.Context, userContent, systemPrompt, modelID string) (*dispatch.Completion, error) {
	return &dispatch.Completion{Text: "echo: " + userContent, TokenCount: 2}, nil
}

func newTestRouter(t *testing.T, cfg settings.Settings) (*gin.Engine, *domainconversation.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	persistence := &memPersistence{data: map[string][]byte{}}
	store, err := domainconversation.Open(persistence, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc, err := settings.Open(persistence, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}
	dispatcher := dispatch.NewDispatcher(store, svc,
		func(baseURL, apiKey string) dispatch.ModelClient { return stubClient{} }, zerolog.Nop())

	engine := gin.New()
	NewConversationRoute(conversationhandler.NewConversationHandler(store, dispatcher)).RegisterRouter(engine)
	return engine, store
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestCreateConversationDefaults(t *testing.T) {
	engine, _ := newTestRouter(t, settings.Settings{Layout: 3})

	rec := doJSON(t, engine, http.MethodPost, "/conversations", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		SystemPrompt string `json:"system_prompt"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" || resp.Title != "New chat 1" {
		t.Errorf("response = %+v, want generated id and default title", resp)
	}
	if resp.SystemPrompt != domainconversation.DefaultSystemPrompt {
		t.Errorf("system prompt = %q, want default", resp.SystemPrompt)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	engine, _ := newTestRouter(t, settings.Settings{Layout: 3})

	rec := doJSON(t, engine, http.MethodGet, "/conversations/conv_missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("error message missing from response body")
	}
}

func TestSubmitTurnAccepted(t *testing.T) {
	engine, store := newTestRouter(t, settings.Settings{
		Models:  []string{"model-a"},
		BaseURL: "https://api.example.com/v1",
		APIKey:  "sk-test",
		Layout:  3,
	})
	conv := store.CreateConversation("test", domainconversation.DefaultSystemPrompt)

	rec := doJSON(t, engine, http.MethodPost, "/conversations/"+conv.ID+"/turns", `{"content":"hello"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var resp struct {
		ID          string `json:"id"`
		Object      string `json:"object"`
		UserContent string `json:"user_content"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Object != "conversation.turn" || resp.UserContent != "hello" || resp.ID == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSubmitTurnValidation(t *testing.T) {
	engine, store := newTestRouter(t, settings.Settings{Layout: 3})
	conv := store.CreateConversation("test", domainconversation.DefaultSystemPrompt)

	rec := doJSON(t, engine, http.MethodPost, "/conversations/"+conv.ID+"/turns", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUpdateAndClearConversation(t *testing.T) {
	engine, store := newTestRouter(t, settings.Settings{Layout: 3})
	conv := store.CreateConversation("test", domainconversation.DefaultSystemPrompt)

	rec := doJSON(t, engine, http.MethodPost, "/conversations/"+conv.ID, `{"title":"renamed","system_prompt":"Be brief."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	got, err := store.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "renamed" || got.SystemPrompt != "Be brief." {
		t.Errorf("conversation = %+v", got)
	}

	rec = doJSON(t, engine, http.MethodPost, "/conversations/"+conv.ID+"/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteConversation(t *testing.T) {
	engine, store := newTestRouter(t, settings.Settings{Layout: 3})
	conv := store.CreateConversation("test", domainconversation.DefaultSystemPrompt)

	rec := doJSON(t, engine, http.MethodDelete, "/conversations/"+conv.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Deleted {
		t.Error("deleted = false, want true")
	}
	if _, err := store.GetConversation(conv.ID); err == nil {
		t.Error("conversation still present after delete")
	}
}

func TestListConversationsOrder(t *testing.T) {
	engine, store := newTestRouter(t, settings.Settings{Layout: 3})
	first := store.CreateConversation("first", domainconversation.DefaultSystemPrompt)
	second := store.CreateConversation("second", domainconversation.DefaultSystemPrompt)

	rec := doJSON(t, engine, http.MethodGet, "/conversations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].ID != first.ID || resp.Data[1].ID != second.ID {
		t.Errorf("list = %+v, want creation order [%s %s]", resp.Data, first.ID, second.ID)
	}
}
