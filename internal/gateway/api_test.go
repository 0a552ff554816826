// ABOUTME: HTTP-level tests for the gateway API using httptest
// ABOUTME: Covers CRUD routes, validation, search payloads, and the SSE stream

package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Architdevpro/SAI.ai/internal/config"
)

func newTestGateway(t *testing.T, searchBaseURL string) *Gateway {
	t.Helper()

	cfg := config.Default()
	if searchBaseURL != "" {
		cfg.Search.BaseURL = searchBaseURL
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { g.store.Close() })
	return g
}

func doJSON(t *testing.T, g *Gateway, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	g.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestConversationLifecycle(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodPost, "/api/conversations", `{"title":"Trip planning"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[ConversationResponse](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Trip planning", created.Title)
	assert.NotEmpty(t, created.CreatedAt)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	rec = doJSON(t, g, http.MethodGet, "/api/conversations/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[ConversationResponse](t, rec)
	assert.Equal(t, created, got)

	rec = doJSON(t, g, http.MethodGet, "/api/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]ConversationResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = doJSON(t, g, http.MethodPatch, "/api/conversations/"+created.ID, `{"title":"Autumn trip"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	renamed := decodeBody[ConversationResponse](t, rec)
	assert.Equal(t, "Autumn trip", renamed.Title)

	rec = doJSON(t, g, http.MethodDelete, "/api/conversations/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, g, http.MethodGet, "/api/conversations/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateConversation_Validation(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodPost, "/api/conversations", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, g, http.MethodPost, "/api/conversations", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateConversation_NotFound(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodPatch, "/api/conversations/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, g, http.MethodDelete, "/api/conversations/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessages(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodPost, "/api/conversations", `{"title":"Chat"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	conv := decodeBody[ConversationResponse](t, rec)

	rec = doJSON(t, g, http.MethodPost, "/api/conversations/"+conv.ID+"/messages",
		`{"role":"user","content":"hello","metadata":{"agent":"reasoning"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	msg := decodeBody[MessageResponse](t, rec)
	assert.Equal(t, conv.ID, msg.ConversationID)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "reasoning", msg.Metadata["agent"])

	rec = doJSON(t, g, http.MethodPost, "/api/conversations/"+conv.ID+"/messages",
		`{"role":"assistant","content":"hi there"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, g, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]MessageResponse](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "hello", list[0].Content)
	assert.Equal(t, "hi there", list[1].Content)

	rec = doJSON(t, g, http.MethodGet, "/api/messages/"+msg.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, g, http.MethodDelete, "/api/messages/"+msg.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, g, http.MethodGet, "/api/messages/"+msg.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMessage_Validation(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodPost, "/api/conversations", `{"title":"Chat"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	conv := decodeBody[ConversationResponse](t, rec)

	rec = doJSON(t, g, http.MethodPost, "/api/conversations/"+conv.ID+"/messages",
		`{"role":"system","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, g, http.MethodPost, "/api/conversations/"+conv.ID+"/messages",
		`{"role":"user","content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, g, http.MethodPost, "/api/conversations/missing/messages",
		`{"role":"user","content":"hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteConversation_RemovesMessages(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodPost, "/api/conversations", `{"title":"Chat"}`)
	conv := decodeBody[ConversationResponse](t, rec)
	rec = doJSON(t, g, http.MethodPost, "/api/conversations/"+conv.ID+"/messages",
		`{"role":"user","content":"hello"}`)
	msg := decodeBody[MessageResponse](t, rec)

	rec = doJSON(t, g, http.MethodDelete, "/api/conversations/"+conv.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, g, http.MethodGet, "/api/messages/"+msg.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgents(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodGet, "/api/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	seeded := decodeBody[[]AgentResponse](t, rec)
	require.Len(t, seeded, 3)

	rec = doJSON(t, g, http.MethodPatch, "/api/agents/"+seeded[0].ID, `{"is_active":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, g, http.MethodGet, "/api/agents?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	active := decodeBody[[]AgentResponse](t, rec)
	assert.Len(t, active, 2)

	rec = doJSON(t, g, http.MethodPost, "/api/agents",
		`{"name":"Planner","type":"reasoning","description":"Plans things"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[AgentResponse](t, rec)
	assert.True(t, created.IsActive)

	rec = doJSON(t, g, http.MethodGet, "/api/agents/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAgent_Validation(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodPost, "/api/agents", `{"name":"","type":"reasoning"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, g, http.MethodPost, "/api/agents", `{"name":"x","type":"oracle"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, g, http.MethodPatch, "/api/agents/missing", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchRoute(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"Answer":         "42",
			"AbstractSource": "Wikipedia",
		})
	}))
	defer upstream.Close()

	g := newTestGateway(t, upstream.URL)

	rec := doJSON(t, g, http.MethodGet, "/api/search?q=meaning+of+life", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[SearchResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "42", resp.Summary)
	assert.Equal(t, []string{"Wikipedia"}, resp.Sources)
}

func TestSearchRoute_UpstreamFaultIsPayload(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	g := newTestGateway(t, upstream.URL)

	rec := doJSON(t, g, http.MethodGet, "/api/search?q=anything", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[SearchResponse](t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "502")
}

func TestSearchRoute_MissingQuery(t *testing.T) {
	g := newTestGateway(t, "")

	rec := doJSON(t, g, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, g, http.MethodGet, "/api/search/instant", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstantAnswerRoute(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"Answer": "4", "AnswerType": "calc"})
	}))
	defer upstream.Close()

	g := newTestGateway(t, upstream.URL)

	rec := doJSON(t, g, http.MethodGet, "/api/search/instant?q=2%2B2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[InstantAnswerResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "4", resp.Answer)
	assert.Equal(t, "calc", resp.Type)
}

func TestInstantAnswerRoute_NoAnswer(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer upstream.Close()

	g := newTestGateway(t, upstream.URL)

	rec := doJSON(t, g, http.MethodGet, "/api/search/instant?q=obscure", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[InstantAnswerResponse](t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "No instant answer available", resp.Error)
}

func TestConversationEvents_StreamsMessageCreated(t *testing.T) {
	g := newTestGateway(t, "")

	server := httptest.NewServer(g.httpServer.Handler)
	defer server.Close()

	rec := doJSON(t, g, http.MethodPost, "/api/conversations", `{"title":"Live"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	conv := decodeBody[ConversationResponse](t, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		server.URL+"/api/conversations/"+conv.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Wait for the stream to register before publishing.
	require.Eventually(t, func() bool {
		return g.conversation.Broadcaster().SubscriberCount(conv.ID) == 1
	}, time.Second, 10*time.Millisecond)

	postRec := doJSON(t, g, http.MethodPost, "/api/conversations/"+conv.ID+"/messages",
		`{"role":"user","content":"ping"}`)
	require.Equal(t, http.StatusCreated, postRec.Code)

	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	for eventLine == "" || dataLine == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimPrefix(line, "data: ")
		}
	}

	assert.Equal(t, "message_created", eventLine)
	assert.Contains(t, dataLine, `"ping"`)
	assert.Contains(t, dataLine, conv.ID)
}
