package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keynar/stylegenie/internal/agent"
	"github.com/keynar/stylegenie/internal/llm"
	"github.com/keynar/stylegenie/internal/session"
	"github.com/keynar/stylegenie/internal/store"
	"github.com/keynar/stylegenie/internal/tools"
)

// scriptedClient answers every chat with the same text.
type scriptedClient struct {
	text string
}

func (c *scriptedClient) Chat(context.Context, string, []llm.Message, []map[string]any) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Message: llm.Message{Role: "assistant", Content: c.text}}, nil
}

func (c *scriptedClient) Ping(context.Context) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := tools.NewRegistry(nil, nil, nil, nil)
	ag := agent.New(slog.Default(), &scriptedClient{text: "**Try** the linen suit."}, reg, st, "test-model", 4)
	srv := NewServer("127.0.0.1:0", ag, st, session.NewResolver(st), slog.Default())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

// doJSON sends a JSON request, carrying the identity cookie if given.
func doJSON(t *testing.T, method, url string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func identityCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == userCookie {
			return c
		}
	}
	return nil
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestChatMintsIdentity(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/chat", ChatRequest{Message: "what should I wear?"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if identityCookie(resp) == nil {
		t.Error("first chat should set the identity cookie")
	}

	body := decodeBody[ChatResponse](t, resp)
	if body.Text != "**Try** the linen suit." {
		t.Errorf("unexpected text %q", body.Text)
	}
	if !strings.Contains(body.HTML, "<strong>Try</strong>") {
		t.Errorf("markdown not rendered: %q", body.HTML)
	}
	if body.ConversationID == 0 {
		t.Error("response should name the conversation")
	}
}

func TestChatContinuesConversation(t *testing.T) {
	ts, st := newTestServer(t)

	first := doJSON(t, http.MethodPost, ts.URL+"/api/chat", ChatRequest{Message: "hello"}, nil)
	cookie := identityCookie(first)
	firstBody := decodeBody[ChatResponse](t, first)

	second := doJSON(t, http.MethodPost, ts.URL+"/api/chat", ChatRequest{Message: "and shoes?"}, cookie)
	if identityCookie(second) != nil {
		t.Error("returning user should not get a fresh cookie")
	}
	secondBody := decodeBody[ChatResponse](t, second)
	if secondBody.ConversationID != firstBody.ConversationID {
		t.Errorf("conversation changed between turns: %d vs %d",
			firstBody.ConversationID, secondBody.ConversationID)
	}

	conv, err := st.Load(cookie.Value, firstBody.ConversationID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(conv.Messages) != 4 {
		t.Errorf("expected 4 persisted messages, got %d", len(conv.Messages))
	}
}

func TestChatRejectsEmptyTurn(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/chat", ChatRequest{}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestChatRejectsCorruptImage(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/chat",
		ChatRequest{Message: "restyle", Image: "bm90IGFuIGltYWdl"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("undecodable image should be rejected up front, got %d", resp.StatusCode)
	}
}

func TestConversationLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	// Chat once to establish identity and a first conversation.
	first := doJSON(t, http.MethodPost, ts.URL+"/api/chat", ChatRequest{Message: "hi"}, nil)
	cookie := identityCookie(first)
	firstBody := decodeBody[ChatResponse](t, first)

	// The only conversation cannot be deleted.
	del := doJSON(t, http.MethodDelete,
		fmt.Sprintf("%s/api/conversations/%d", ts.URL, firstBody.ConversationID), nil, cookie)
	del.Body.Close()
	if del.StatusCode != http.StatusConflict {
		t.Errorf("deleting the last conversation should 409, got %d", del.StatusCode)
	}

	// Create a second one.
	create := doJSON(t, http.MethodPost, ts.URL+"/api/conversations", nil, cookie)
	created := decodeBody[ConversationView](t, create)
	if created.ID == firstBody.ConversationID {
		t.Fatal("create should mint a new conversation")
	}

	// Rename it.
	rename := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/conversations/%d/rename", ts.URL, created.ID),
		map[string]string{"title": "Beach wedding"}, cookie)
	rename.Body.Close()
	if rename.StatusCode != http.StatusOK {
		t.Errorf("rename failed with %d", rename.StatusCode)
	}

	// List shows both, renamed title included.
	list := doJSON(t, http.MethodGet, ts.URL+"/api/conversations", nil, cookie)
	listed := decodeBody[struct {
		Conversations []ConversationView `json:"conversations"`
		Active        int64              `json:"active"`
	}](t, list)
	if len(listed.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(listed.Conversations))
	}
	var sawRenamed bool
	for _, c := range listed.Conversations {
		if c.ID == created.ID && c.Title == "Beach wedding" {
			sawRenamed = true
		}
	}
	if !sawRenamed {
		t.Error("renamed conversation missing from list")
	}

	// Delete the new one; the survivor becomes active.
	del = doJSON(t, http.MethodDelete,
		fmt.Sprintf("%s/api/conversations/%d", ts.URL, created.ID), nil, cookie)
	deleted := decodeBody[struct {
		Deleted int64 `json:"deleted"`
		Active  int64 `json:"active"`
	}](t, del)
	if deleted.Active != firstBody.ConversationID {
		t.Errorf("expected fallback to conversation %d, got %d",
			firstBody.ConversationID, deleted.Active)
	}
}

func TestClearKeepsConversation(t *testing.T) {
	ts, st := newTestServer(t)

	first := doJSON(t, http.MethodPost, ts.URL+"/api/chat", ChatRequest{Message: "hi"}, nil)
	cookie := identityCookie(first)
	firstBody := decodeBody[ChatResponse](t, first)

	clear := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/conversations/%d/clear", ts.URL, firstBody.ConversationID), nil, cookie)
	clear.Body.Close()
	if clear.StatusCode != http.StatusOK {
		t.Fatalf("clear failed with %d", clear.StatusCode)
	}

	conv, err := st.Load(cookie.Value, firstBody.ConversationID)
	if err != nil {
		t.Fatalf("conversation should survive clear: %v", err)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("expected empty history, got %d messages", len(conv.Messages))
	}
}

func TestMessagesRendersAssistantHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	first := doJSON(t, http.MethodPost, ts.URL+"/api/chat", ChatRequest{Message: "hi"}, nil)
	cookie := identityCookie(first)
	first.Body.Close()

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/messages", nil, cookie)
	body := decodeBody[struct {
		Messages []MessageView `json:"messages"`
	}](t, resp)

	if len(body.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Role != "user" || body.Messages[0].HTML != "" {
		t.Errorf("user message should not carry HTML: %+v", body.Messages[0])
	}
	if !strings.Contains(body.Messages[1].HTML, "<strong>") {
		t.Errorf("assistant message should be rendered: %+v", body.Messages[1])
	}
}

func TestHealthAndVersion(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	health := decodeBody[map[string]string](t, resp)
	if health["status"] != "healthy" {
		t.Errorf("unexpected health body: %v", health)
	}

	resp, err = http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("version returned %d", resp.StatusCode)
	}
}
