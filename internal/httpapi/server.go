// Package httpapi exposes the portal's REST surface: conversations,
// query processing, the standalone validation and costing endpoints, and
// warehouse session management.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/sqlpilot/sqlpilot/internal/costing"
	"github.com/sqlpilot/sqlpilot/internal/pipeline"
	"github.com/sqlpilot/sqlpilot/internal/session"
	"github.com/sqlpilot/sqlpilot/internal/store"
	"github.com/sqlpilot/sqlpilot/internal/warehouse"
)

// Connector opens a warehouse connection from stored credentials.
type Connector func(ctx context.Context, creds warehouse.Credentials) (warehouse.Warehouse, error)

// Server holds the handler dependencies.
type Server struct {
	store        store.Store
	orchestrator *pipeline.Orchestrator
	costModel    costing.Model
	sessions     *session.Manager
	connect      Connector
	logger       *zap.Logger

	// Open warehouse connections keyed by session ID.
	whMu       sync.Mutex
	warehouses map[string]warehouse.Warehouse

	// Per-conversation locks serialize step numbering and the demotion of
	// the prior current step.
	convLocks sync.Map
}

// NewServer wires the REST handlers. sessions and connect may be nil when
// warehouse connectivity is disabled; the query pipeline then runs with an
// empty schema context.
func NewServer(st store.Store, orch *pipeline.Orchestrator, costModel costing.Model, sessions *session.Manager, connect Connector, logger *zap.Logger) *Server {
	return &Server{
		store:        st,
		orchestrator: orch,
		costModel:    costModel,
		sessions:     sessions,
		connect:      connect,
		logger:       logger,
		warehouses:   make(map[string]warehouse.Warehouse),
	}
}

// RegisterRoutes attaches all endpoints to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /api/conversations/{id}/workflow", s.handleGetWorkflow)
	mux.HandleFunc("DELETE /api/conversations/{id}/workflow", s.handleClearWorkflow)

	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/validate-sql", s.handleValidateSQL)
	mux.HandleFunc("POST /api/estimate-cost", s.handleEstimateCost)
	mux.HandleFunc("POST /api/access-control", s.handleAccessControl)

	mux.HandleFunc("POST /api/warehouse/connect", s.handleWarehouseConnect)
	mux.HandleFunc("DELETE /api/warehouse/sessions/{id}", s.handleWarehouseDisconnect)
	mux.HandleFunc("GET /api/warehouse/sessions/{id}/tables", s.handleWarehouseTables)
	mux.HandleFunc("POST /api/warehouse/sessions/{id}/tables", s.handleSelectTables)
	mux.HandleFunc("GET /api/warehouse/sessions/{id}/schema", s.handleSchemaContext)
}

func (s *Server) conversationLock(id string) *sync.Mutex {
	mu, _ := s.convLocks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
