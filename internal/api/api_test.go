package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reclamo/reclamo/internal/conversation"
	"github.com/reclamo/reclamo/internal/domain"
	"github.com/reclamo/reclamo/internal/server"
	"github.com/reclamo/reclamo/internal/storage/memory"
	"github.com/reclamo/reclamo/internal/upstream"
)

func bearerTokenFor(t *testing.T, subject string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims, _ := json.Marshal(map[string]any{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	return header + "." + base64.RawURLEncoding.EncodeToString(claims) + ".sig"
}

func bearerToken(t *testing.T) string {
	return bearerTokenFor(t, "user-1")
}

// newTestAPI wires a full router against a scripted upstream gateway.
func newTestAPI(t *testing.T) (*chi.Mux, *gatewayState) {
	t.Helper()

	state := &gatewayState{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/api/admin/agents", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/api/complaints/", func(w http.ResponseWriter, r *http.Request) {
		state.creates++
		fmt.Fprintf(w, `{"id":"tic-%d"}`, state.creates)
	})
	mux.HandleFunc("/api/chatbot/message", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"Noted.","suggestTicket":false}`)
	})
	mux.HandleFunc("/api/chatbot/image", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"I can see a cracked screen.","detectedObjects":[{"name":"laptop","confidence":0.91}]}`)
	})
	mux.HandleFunc("/api/chatbot/voice", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"transcript":"my invoice is wrong"}`)
	})
	mux.HandleFunc("/api/complaint-updates/updates", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	gateway := httptest.NewServer(mux)
	t.Cleanup(gateway.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := upstream.NewClient(gateway.URL)
	manager := conversation.NewManager(client, memory.New(), logger,
		conversation.WithPollInterval(time.Hour))
	state.manager = manager
	t.Cleanup(manager.Shutdown)

	srv := server.New(0, "", logger)
	NewHandler(manager, client, logger).Mount(srv.Router)
	return srv.Router, state
}

type gatewayState struct {
	creates int
	manager *conversation.Manager
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func startConversation(t *testing.T, router http.Handler, token string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/conversations", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID       string           `json:"id"`
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if resp.ID == "" || len(resp.Messages) != 1 {
		t.Fatalf("unexpected start response: %+v", resp)
	}
	return resp.ID
}

func TestHealthz_NoAuth(t *testing.T) {
	router, _ := newTestAPI(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestConversations_RequireAuth(t *testing.T) {
	router, _ := newTestAPI(t)
	rec := doJSON(t, router, http.MethodPost, "/v1/conversations", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestConversationLifecycle(t *testing.T) {
	router, _ := newTestAPI(t)
	token := bearerToken(t)
	id := startConversation(t, router, token)

	rec := doJSON(t, router, http.MethodGet, "/v1/conversations/"+id, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "AI assistant") {
		t.Errorf("transcript missing welcome: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodDelete, "/v1/conversations/"+id, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/conversations/"+id, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestDelete_StoredConversationAfterShutdown(t *testing.T) {
	router, state := newTestAPI(t)
	token := bearerToken(t)
	id := startConversation(t, router, token)

	// A restart ends the session but keeps the transcript on record.
	state.manager.Shutdown()

	rec := doJSON(t, router, http.MethodDelete, "/v1/conversations/"+id, bearerTokenFor(t, "user-2"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/v1/conversations/"+id, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/conversations/"+id, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestSelect_GuidedFlowOverHTTP(t *testing.T) {
	router, state := newTestAPI(t)
	token := bearerToken(t)
	id := startConversation(t, router, token)
	base := "/v1/conversations/" + id

	rec := doJSON(t, router, http.MethodPost, base+"/select", token,
		map[string]string{"optionId": "billing", "label": "Billing"})
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d: %s", rec.Code, rec.Body.String())
	}
	var turn struct {
		Messages []domain.Message `json:"messages"`
	}
	json.Unmarshal(rec.Body.Bytes(), &turn)
	if len(turn.Messages) != 2 {
		t.Fatalf("got %d turn messages, want 2", len(turn.Messages))
	}

	doJSON(t, router, http.MethodPost, base+"/select", token,
		map[string]string{"optionId": "billing.overcharged", "label": "Overcharged"})
	doJSON(t, router, http.MethodPost, base+"/select", token,
		map[string]string{"optionId": conversation.OptionOpenTicket, "label": "Open Ticket"})

	rec = doJSON(t, router, http.MethodPost, base+"/select", token, map[string]string{
		"optionId": conversation.OptionSubmitTicket,
		"label":    "Submit Ticket",
		"text":     "I was charged twice this month",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		TicketCreated bool   `json:"ticketCreated"`
		TicketID      string `json:"ticketId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if !result.TicketCreated || result.TicketID != "tic-1" {
		t.Fatalf("result = %+v, want ticket tic-1", result)
	}
	if state.creates != 1 {
		t.Errorf("gateway saw %d creates, want 1", state.creates)
	}
}

func TestListConversations(t *testing.T) {
	router, _ := newTestAPI(t)
	token := bearerToken(t)
	first := startConversation(t, router, token)
	second := startConversation(t, router, token)

	rec := doJSON(t, router, http.MethodGet, "/v1/conversations", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body.String())
	}
	var convs []struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &convs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}
	seen := map[string]bool{}
	for _, c := range convs {
		seen[c.ID] = true
		if c.UserID != "user-1" {
			t.Errorf("userId = %q, want user-1", c.UserID)
		}
	}
	if !seen[first] || !seen[second] {
		t.Errorf("list missing started conversations: %v", seen)
	}
}

func TestSelect_Validation(t *testing.T) {
	router, _ := newTestAPI(t)
	token := bearerToken(t)
	id := startConversation(t, router, token)

	rec := doJSON(t, router, http.MethodPost, "/v1/conversations/"+id+"/select", token,
		map[string]string{"label": "no option id"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error.Type != "invalid_request" {
		t.Errorf("error type = %q, want invalid_request", resp.Error.Type)
	}
}

func TestConversation_OtherUserCannotAccess(t *testing.T) {
	router, _ := newTestAPI(t)
	id := startConversation(t, router, bearerToken(t))
	intruder := bearerTokenFor(t, "user-2")

	rec := doJSON(t, router, http.MethodGet, "/v1/conversations/"+id, intruder, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/v1/conversations/"+id, intruder, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/v1/conversations/"+id+"/messages", intruder,
		map[string]string{"message": "hello"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("message status = %d, want 404", rec.Code)
	}
}

func TestMessage_UnknownConversation(t *testing.T) {
	router, _ := newTestAPI(t)
	rec := doJSON(t, router, http.MethodPost, "/v1/conversations/nope/messages", bearerToken(t),
		map[string]string{"message": "hello"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestImageUpload(t *testing.T) {
	router, _ := newTestAPI(t)
	token := bearerToken(t)
	id := startConversation(t, router, token)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("image", "screen.jpg")
	part.Write([]byte("not-really-a-jpeg"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/"+id+"/image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "cracked screen") {
		t.Errorf("response missing detection message: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"laptop"`) {
		t.Errorf("response missing detected objects: %s", rec.Body.String())
	}
}

func TestVoiceUpload_TranscribesAndRelays(t *testing.T) {
	router, _ := newTestAPI(t)
	token := bearerToken(t)
	id := startConversation(t, router, token)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("audio", "clip.webm")
	part.Write([]byte("audio-bytes"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/"+id+"/voice", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	// The transcript enters the chat flow as a user turn.
	if !strings.Contains(rec.Body.String(), "my invoice is wrong") {
		t.Errorf("response missing transcript turn: %s", rec.Body.String())
	}
}

func TestImageUpload_MissingFile(t *testing.T) {
	router, _ := newTestAPI(t)
	token := bearerToken(t)
	id := startConversation(t, router, token)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("caption", "no file here")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/"+id+"/image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
