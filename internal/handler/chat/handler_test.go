package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/model/chat"
	chatservice "github.com/Biorevtech-Agents/AI-Assistant/internal/service/chat"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/storage"
)

func setupRouter(t *testing.T) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	chatSvc, err := chatservice.NewService(context.Background(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	return r, chatSvc
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestListAndCreateChats(t *testing.T) {
	r, _ := setupRouter(t)

	resp := doRequest(r, http.MethodGet, "/chats", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	initial := decode[chat.Snapshot](t, resp)
	if len(initial.Chats) != 1 || initial.ActiveChatID != initial.Chats[0].ID {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}

	resp = doRequest(r, http.MethodPost, "/chats", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	created := decode[chat.Chat](t, resp)
	if created.Title != chat.DefaultTitle || len(created.Messages) != 1 {
		t.Fatalf("unexpected created chat %+v", created)
	}

	after := decode[chat.Snapshot](t, doRequest(r, http.MethodGet, "/chats", nil))
	if len(after.Chats) != 2 || after.ActiveChatID != created.ID {
		t.Fatalf("expected new chat active, got %+v", after)
	}
}

func TestAppendMessage(t *testing.T) {
	r, chatSvc := setupRouter(t)
	chatID := chatSvc.ActiveChat(context.Background()).ID

	resp := doRequest(r, http.MethodPost, "/chats/"+chatID+"/messages", map[string]string{"sender": "user", "text": "Hello"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	msg := decode[chat.Message](t, resp)
	if msg.ID != 2 || msg.Sender != chat.SenderUser || msg.Text != "Hello" {
		t.Fatalf("unexpected message %+v", msg)
	}

	got := decode[chat.Chat](t, doRequest(r, http.MethodGet, "/chats/"+chatID, nil))
	if got.Title != "Hello" {
		t.Fatalf("expected title from first user message, got %q", got.Title)
	}

	found := decode[chat.Snapshot](t, doRequest(r, http.MethodGet, "/chats?q=HELL", nil))
	if len(found.Chats) != 1 {
		t.Fatalf("expected search hit, got %d", len(found.Chats))
	}
	missing := decode[chat.Snapshot](t, doRequest(r, http.MethodGet, "/chats?q=weather", nil))
	if len(missing.Chats) != 0 {
		t.Fatalf("expected no search hits, got %d", len(missing.Chats))
	}
}

func TestAppendMessageValidation(t *testing.T) {
	r, chatSvc := setupRouter(t)
	chatID := chatSvc.ActiveChat(context.Background()).ID

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{name: "bad sender", path: "/chats/" + chatID + "/messages", body: map[string]string{"sender": "system", "text": "x"}, status: http.StatusBadRequest},
		{name: "empty text", path: "/chats/" + chatID + "/messages", body: map[string]string{"sender": "bot", "text": " "}, status: http.StatusBadRequest},
		{name: "invalid json", path: "/chats/" + chatID + "/messages", body: "not an object", status: http.StatusBadRequest},
		{name: "unknown chat", path: "/chats/missing/messages", body: map[string]string{"sender": "user", "text": "Hi"}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := doRequest(r, http.MethodPost, tt.path, tt.body); resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestDeleteActiveChatKeepsOneActive(t *testing.T) {
	r, chatSvc := setupRouter(t)
	chatID := chatSvc.ActiveChat(context.Background()).ID

	resp := doRequest(r, http.MethodDelete, "/chats/"+chatID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	snapshot := decode[chat.Snapshot](t, resp)
	if len(snapshot.Chats) != 1 {
		t.Fatalf("expected exactly one chat, got %d", len(snapshot.Chats))
	}
	if snapshot.ActiveChatID != snapshot.Chats[0].ID || snapshot.ActiveChatID == chatID {
		t.Fatalf("unexpected active chat %q", snapshot.ActiveChatID)
	}

	if resp := doRequest(r, http.MethodDelete, "/chats/"+chatID, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted chat, got %d", resp.Code)
	}
}

func TestSelectChat(t *testing.T) {
	r, chatSvc := setupRouter(t)
	first := chatSvc.ActiveChat(context.Background()).ID
	chatSvc.CreateChat(context.Background())

	resp := doRequest(r, http.MethodPost, "/chats/"+first+"/select", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := chatSvc.ActiveChat(context.Background()).ID; got != first {
		t.Fatalf("expected %s active, got %s", first, got)
	}

	if resp := doRequest(r, http.MethodPost, "/chats/missing/select", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
