package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"spendsmart/internal/assistant"
	"spendsmart/internal/expense"
	"spendsmart/internal/kv"
	"spendsmart/internal/session"
	"spendsmart/internal/storage"
)

// newAIServer wires a server whose assistant talks to a stub model endpoint.
func newAIServer(t *testing.T, modelHandler http.HandlerFunc) (*Server, *expense.Store) {
	t.Helper()
	kvs, err := kv.Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open kv store: %v", err)
	}
	repo := storage.NewKVRepository(kvs)

	sessions := session.NewManager(repo, 0, nil)
	store := expense.NewStore(repo, 0, nil)
	sessions.Subscribe(store.HandleIdentityChange)

	model := httptest.NewServer(modelHandler)
	t.Cleanup(model.Close)
	ai := assistant.NewClient("test-key", "gemini-2.5-flash", nil,
		assistant.WithBaseURL(model.URL), assistant.WithHTTPClient(model.Client()))

	srv := NewServer(":0", sessions, store, ai, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	login(t, srv, "ada@example.com")
	return srv, store
}

func modelReply(t *testing.T, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func TestParseTextPrefillsForm(t *testing.T) {
	srv, _ := newAIServer(t, modelReply(t, `{"candidates":[{"content":{"role":"model","parts":[
		{"text":"{\"amount\": 250, \"category\": \"Food\", \"date\": \"2024-03-10\", \"description\": \"Filter coffee\"}"}
	]}}]}`))

	rr := doForm(t, srv, http.MethodPost, "/parse/text", url.Values{"text": {"coffee 250 on march 10"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Filter coffee") || !strings.Contains(body, "250.00") {
		t.Fatalf("form not prefilled: %s", body)
	}
	if !strings.Contains(body, `value="2024-03-10"`) {
		t.Fatalf("date not prefilled: %s", body)
	}
}

func TestChatReplyRendered(t *testing.T) {
	srv, _ := newAIServer(t, modelReply(t,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"You are doing great!"}]}}]}`))

	rr := doForm(t, srv, http.MethodPost, "/assistant/chat", url.Values{
		"message": {"how am I doing?"},
		"history": {"[]"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "You are doing great!") {
		t.Fatalf("reply missing: %s", body)
	}

	// The refreshed history must carry both turns for the next request.
	if !strings.Contains(body, "how am I doing?") {
		t.Fatalf("history not updated: %s", body)
	}
}

func TestChatToolCallAddsExpense(t *testing.T) {
	srv, store := newAIServer(t, modelReply(t, `{"candidates":[{"content":{"role":"model","parts":[
		{"functionCall":{"name":"addExpense","args":{"amount":120,"category":"Transport","description":"Auto ride","date":"2024-03-12"}}}
	]}}]}`))

	rr := doForm(t, srv, http.MethodPost, "/assistant/chat", url.Values{
		"message": {"add auto ride 120"},
		"history": {"[]"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	view := store.View()
	if len(view) != 1 {
		t.Fatalf("expense not added: %+v", view)
	}
	if view[0].Amount.Cents != 12000 || view[0].Description != "Auto ride" {
		t.Fatalf("wrong expense: %+v", view[0])
	}
	if !strings.Contains(rr.Body.String(), "Auto ride") {
		t.Fatal("confirmation missing from response")
	}
}

func modelDown(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func TestParseTextModelFailure(t *testing.T) {
	srv, store := newAIServer(t, modelDown(t))

	rr := doForm(t, srv, http.MethodPost, "/parse/text", url.Values{"text": {"coffee 250"}})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Could not understand that") {
		t.Fatalf("retry prompt missing: %s", rr.Body.String())
	}
	if len(store.View()) != 0 {
		t.Fatal("a failed parse must not touch the store")
	}
}

func TestChatModelFailure(t *testing.T) {
	srv, store := newAIServer(t, modelDown(t))

	rr := doForm(t, srv, http.MethodPost, "/assistant/chat", url.Values{
		"message": {"add auto ride 120"},
		"history": {"[]"},
	})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "assistant is unavailable") {
		t.Fatalf("failure message missing: %s", rr.Body.String())
	}
	if len(store.View()) != 0 {
		t.Fatal("a failed chat must not touch the store")
	}
}

func TestChatHistoryRoundTrips(t *testing.T) {
	var lastBody []byte
	srv, _ := newAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		lastBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	})

	history, _ := json.Marshal([]assistant.Message{
		{Role: "user", Text: "hi"},
		{Role: "model", Text: "hello!"},
	})
	rr := doForm(t, srv, http.MethodPost, "/assistant/chat", url.Values{
		"message": {"and now?"},
		"history": {string(history)},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(string(lastBody), "hello!") {
		t.Fatalf("prior turns not forwarded to the model: %s", lastBody)
	}
}
