// ABOUTME: HTTP API handlers for conversations, messages, agents, and search
// ABOUTME: Shapes untrusted JSON into validated store inserts and writes JSON/SSE responses

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Architdevpro/SAI.ai/internal/store"
)

// ConversationResponse is the JSON shape of a conversation.
type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MessageResponse is the JSON shape of a message.
type MessageResponse struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

// AgentResponse is the JSON shape of an agent.
type AgentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// CreateConversationRequest is the JSON request body for
// POST /api/conversations.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// UpdateConversationRequest is the JSON request body for
// PATCH /api/conversations/{id}. Absent fields are left unchanged.
type UpdateConversationRequest struct {
	Title *string `json:"title"`
}

// CreateMessageRequest is the JSON request body for
// POST /api/conversations/{id}/messages.
type CreateMessageRequest struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// CreateAgentRequest is the JSON request body for POST /api/agents.
type CreateAgentRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// UpdateAgentRequest is the JSON request body for PATCH /api/agents/{id}.
type UpdateAgentRequest struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// SearchResponse is the JSON response for GET /api/search. Upstream
// faults surface as success=false with the fault message, never as a
// transport-level error.
type SearchResponse struct {
	Success bool     `json:"success"`
	Summary string   `json:"summary,omitempty"`
	Sources []string `json:"sources,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// InstantAnswerResponse is the JSON response for GET /api/search/instant.
type InstantAnswerResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer,omitempty"`
	Type    string `json:"type,omitempty"`
	Error   string `json:"error,omitempty"`
}

func conversationResponse(c *store.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func messageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		Metadata:       m.Metadata,
		CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func agentResponse(a *store.Agent) AgentResponse {
	return AgentResponse{
		ID:          a.ID,
		Name:        a.Name,
		Type:        a.Type,
		Description: a.Description,
		IsActive:    a.IsActive,
	}
}

func validRole(role string) bool {
	return role == store.RoleUser || role == store.RoleAssistant
}

func validAgentType(agentType string) bool {
	switch agentType {
	case store.AgentTypeReasoning, store.AgentTypeSearch, store.AgentTypeCreative:
		return true
	}
	return false
}

// handleListConversations handles GET /api/conversations.
func (g *Gateway) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := g.store.ListConversations(r.Context())
	if err != nil {
		g.internalError(w, "listing conversations", err)
		return
	}

	response := make([]ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		response = append(response, conversationResponse(c))
	}
	g.writeJSON(w, http.StatusOK, response)
}

// handleCreateConversation handles POST /api/conversations.
func (g *Gateway) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		g.sendJSONError(w, http.StatusBadRequest, "title is required")
		return
	}

	c, err := g.store.CreateConversation(r.Context(), store.InsertConversation{Title: req.Title})
	if err != nil {
		g.internalError(w, "creating conversation", err)
		return
	}
	g.writeJSON(w, http.StatusCreated, conversationResponse(c))
}

// handleGetConversation handles GET /api/conversations/{id}.
func (g *Gateway) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	c, err := g.store.GetConversation(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		g.internalError(w, "getting conversation", err)
		return
	}
	g.writeJSON(w, http.StatusOK, conversationResponse(c))
}

// handleUpdateConversation handles PATCH /api/conversations/{id}.
func (g *Gateway) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title != nil && *req.Title == "" {
		g.sendJSONError(w, http.StatusBadRequest, "title cannot be empty")
		return
	}

	c, err := g.conversation.RenameConversation(r.Context(), r.PathValue("id"),
		store.UpdateConversation{Title: req.Title})
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		g.internalError(w, "updating conversation", err)
		return
	}
	g.writeJSON(w, http.StatusOK, conversationResponse(c))
}

// handleDeleteConversation handles DELETE /api/conversations/{id}.
func (g *Gateway) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	existed, err := g.conversation.RemoveConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		g.internalError(w, "deleting conversation", err)
		return
	}
	if !existed {
		g.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListMessages handles GET /api/conversations/{id}/messages.
func (g *Gateway) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := g.store.ListMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		g.internalError(w, "listing messages", err)
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, messageResponse(m))
	}
	g.writeJSON(w, http.StatusOK, response)
}

// handleCreateMessage handles POST /api/conversations/{id}/messages. The
// conversation must exist: the store itself tolerates orphaned inserts,
// but the API boundary rejects them.
func (g *Gateway) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validRole(req.Role) {
		g.sendJSONError(w, http.StatusBadRequest, "role must be \"user\" or \"assistant\"")
		return
	}
	if req.Content == "" {
		g.sendJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	if _, err := g.store.GetConversation(r.Context(), conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		g.internalError(w, "getting conversation", err)
		return
	}

	msg, err := g.conversation.PostMessage(r.Context(), store.InsertMessage{
		ConversationID: conversationID,
		Role:           req.Role,
		Content:        req.Content,
		Metadata:       req.Metadata,
	})
	if err != nil {
		g.internalError(w, "creating message", err)
		return
	}
	g.writeJSON(w, http.StatusCreated, messageResponse(msg))
}

// handleGetMessage handles GET /api/messages/{id}.
func (g *Gateway) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := g.store.GetMessage(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		g.internalError(w, "getting message", err)
		return
	}
	g.writeJSON(w, http.StatusOK, messageResponse(msg))
}

// handleDeleteMessage handles DELETE /api/messages/{id}.
func (g *Gateway) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	existed, err := g.store.DeleteMessage(r.Context(), r.PathValue("id"))
	if err != nil {
		g.internalError(w, "deleting message", err)
		return
	}
	if !existed {
		g.sendJSONError(w, http.StatusNotFound, "message not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListAgents handles GET /api/agents. With ?active=true only active
// agents are returned.
func (g *Gateway) handleListAgents(w http.ResponseWriter, r *http.Request) {
	var agents []*store.Agent
	var err error
	if r.URL.Query().Get("active") == "true" {
		agents, err = g.store.ListActiveAgents(r.Context())
	} else {
		agents, err = g.store.ListAgents(r.Context())
	}
	if err != nil {
		g.internalError(w, "listing agents", err)
		return
	}

	response := make([]AgentResponse, 0, len(agents))
	for _, a := range agents {
		response = append(response, agentResponse(a))
	}
	g.writeJSON(w, http.StatusOK, response)
}

// handleCreateAgent handles POST /api/agents.
func (g *Gateway) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		g.sendJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !validAgentType(req.Type) {
		g.sendJSONError(w, http.StatusBadRequest,
			"type must be \"reasoning\", \"search\", or \"creative\"")
		return
	}

	a, err := g.store.CreateAgent(r.Context(), store.InsertAgent{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		g.internalError(w, "creating agent", err)
		return
	}
	g.writeJSON(w, http.StatusCreated, agentResponse(a))
}

// handleGetAgent handles GET /api/agents/{id}.
func (g *Gateway) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := g.store.GetAgent(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		g.internalError(w, "getting agent", err)
		return
	}
	g.writeJSON(w, http.StatusOK, agentResponse(a))
}

// handleUpdateAgent handles PATCH /api/agents/{id}.
func (g *Gateway) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Type != nil && !validAgentType(*req.Type) {
		g.sendJSONError(w, http.StatusBadRequest,
			"type must be \"reasoning\", \"search\", or \"creative\"")
		return
	}

	a, err := g.store.UpdateAgent(r.Context(), r.PathValue("id"), store.UpdateAgent{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		g.internalError(w, "updating agent", err)
		return
	}
	g.writeJSON(w, http.StatusOK, agentResponse(a))
}

// handleSearch handles GET /api/search?q=. Upstream faults are part of
// the response payload, not HTTP errors.
func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		g.sendJSONError(w, http.StatusBadRequest, "q is required")
		return
	}

	result, err := g.search.Search(r.Context(), query)
	if err != nil {
		g.logger.Warn("search failed", "query", query, "error", err)
		g.writeJSON(w, http.StatusOK, SearchResponse{Success: false, Error: err.Error()})
		return
	}

	g.writeJSON(w, http.StatusOK, SearchResponse{
		Success: true,
		Summary: result.Summary,
		Sources: result.Sources,
	})
}

// handleInstantAnswer handles GET /api/search/instant?q=.
func (g *Gateway) handleInstantAnswer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		g.sendJSONError(w, http.StatusBadRequest, "q is required")
		return
	}

	answer, err := g.search.InstantAnswer(r.Context(), query)
	if err != nil {
		g.writeJSON(w, http.StatusOK, InstantAnswerResponse{Success: false, Error: err.Error()})
		return
	}

	g.writeJSON(w, http.StatusOK, InstantAnswerResponse{
		Success: true,
		Answer:  answer.Answer,
		Type:    answer.Type,
	})
}

// handleConversationEvents handles GET /api/conversations/{id}/events as
// an SSE stream fed by the broadcaster. The stream stays open until the
// client hangs up.
func (g *Gateway) handleConversationEvents(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, subID := g.conversation.Broadcaster().Subscribe(r.Context(), conversationID)
	defer g.conversation.Broadcaster().Unsubscribe(conversationID, subID)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				g.logger.Error("encoding event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\n", ev.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("encoding response", "error", err)
	}
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (g *Gateway) internalError(w http.ResponseWriter, action string, err error) {
	g.logger.Error(action, "error", err)
	g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
}
