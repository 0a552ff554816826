// ABOUTME: Gateway wires the store, search client, and conversation service into an HTTP server
// ABOUTME: Owns route registration, startup, and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Architdevpro/SAI.ai/internal/config"
	"github.com/Architdevpro/SAI.ai/internal/conversation"
	"github.com/Architdevpro/SAI.ai/internal/search"
	"github.com/Architdevpro/SAI.ai/internal/store"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Gateway is the HTTP transport over the store and search client.
type Gateway struct {
	cfg          *config.Config
	store        store.Store
	search       *search.Client
	conversation *conversation.Service
	logger       *slog.Logger
	httpServer   *http.Server
}

// New creates a gateway from configuration: it opens the configured store
// backend, builds the search client, and registers all routes.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var st store.Store
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		sqlStore, err := store.NewSQLiteStore(cfg.Database.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		st = sqlStore
	default:
		st = store.NewMemoryStore(logger)
	}

	broadcaster := conversation.NewEventBroadcaster(logger)

	searchClient := search.NewClient(cfg.Search.BaseURL, cfg.Search.UserAgent, logger)
	searchClient.SetTimeout(cfg.Search.Timeout)

	g := &Gateway{
		cfg:          cfg,
		store:        st,
		search:       searchClient,
		conversation: conversation.New(st, broadcaster, logger),
		logger:       logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	g.registerRoutes(mux)

	g.httpServer = &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}

	return g, nil
}

func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", g.handleHealth)

	// Conversations
	mux.HandleFunc("GET /api/conversations", g.handleListConversations)
	mux.HandleFunc("POST /api/conversations", g.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations/{id}", g.handleGetConversation)
	mux.HandleFunc("PATCH /api/conversations/{id}", g.handleUpdateConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", g.handleDeleteConversation)

	// Messages
	mux.HandleFunc("GET /api/conversations/{id}/messages", g.handleListMessages)
	mux.HandleFunc("POST /api/conversations/{id}/messages", g.handleCreateMessage)
	mux.HandleFunc("GET /api/messages/{id}", g.handleGetMessage)
	mux.HandleFunc("DELETE /api/messages/{id}", g.handleDeleteMessage)

	// Agents
	mux.HandleFunc("GET /api/agents", g.handleListAgents)
	mux.HandleFunc("POST /api/agents", g.handleCreateAgent)
	mux.HandleFunc("GET /api/agents/{id}", g.handleGetAgent)
	mux.HandleFunc("PATCH /api/agents/{id}", g.handleUpdateAgent)

	// Search
	mux.HandleFunc("GET /api/search", g.handleSearch)
	mux.HandleFunc("GET /api/search/instant", g.handleInstantAnswer)

	// Live updates
	mux.HandleFunc("GET /api/conversations/{id}/events", g.handleConversationEvents)
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("http server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("shutdown signal received")
	case serverErr = <-errCh:
		g.logger.Error("http server failed", "error", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := g.httpServer.Shutdown(shutdownCtx)

	if err := g.store.Close(); err != nil {
		g.logger.Error("closing store", "error", err)
	}

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}
