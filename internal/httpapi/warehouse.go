package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sqlpilot/sqlpilot/internal/schemactx"
	"github.com/sqlpilot/sqlpilot/internal/session"
	"github.com/sqlpilot/sqlpilot/internal/warehouse"
)

// warehouseForSession returns the open connection for a session, reconnecting
// from the stored credentials after a restart.
func (s *Server) warehouseForSession(ctx context.Context, sessionID string) (warehouse.Warehouse, error) {
	s.whMu.Lock()
	wh, ok := s.warehouses[sessionID]
	s.whMu.Unlock()
	if ok {
		return wh, nil
	}

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	wh, err = s.connect(ctx, sess.Credentials)
	if err != nil {
		return nil, err
	}

	s.whMu.Lock()
	if existing, ok := s.warehouses[sessionID]; ok {
		s.whMu.Unlock()
		wh.Close()
		return existing, nil
	}
	s.warehouses[sessionID] = wh
	s.whMu.Unlock()
	return wh, nil
}

func (s *Server) handleWarehouseConnect(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil || s.connect == nil {
		writeError(w, http.StatusServiceUnavailable, "Warehouse connectivity is disabled")
		return
	}
	var creds warehouse.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}
	if creds.Host == "" || creds.Database == "" {
		writeError(w, http.StatusBadRequest, "Host and database are required")
		return
	}

	wh, err := s.connect(r.Context(), creds)
	if err != nil {
		s.logger.Error("warehouse connect failed",
			zap.String("host", creds.Host), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to connect to warehouse")
		return
	}

	sess, err := s.sessions.CreateSession(r.Context(), creds)
	if err != nil {
		wh.Close()
		s.logger.Error("create session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	s.whMu.Lock()
	s.warehouses[sess.ID] = wh
	s.whMu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": sess.ID,
		"expiresAt": sess.ExpiresAt,
	})
}

func (s *Server) handleWarehouseDisconnect(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "Warehouse connectivity is disabled")
		return
	}
	id := r.PathValue("id")

	s.whMu.Lock()
	if wh, ok := s.warehouses[id]; ok {
		wh.Close()
		delete(s.warehouses, id)
	}
	s.whMu.Unlock()

	if err := s.sessions.DeleteSession(r.Context(), id); err != nil {
		s.logger.Error("delete session failed", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to disconnect")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWarehouseTables(w http.ResponseWriter, r *http.Request) {
	wh, ok := s.sessionWarehouse(w, r)
	if !ok {
		return
	}
	tables, err := wh.ListTables(r.Context())
	if err != nil {
		s.logger.Error("list tables failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to list tables")
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleSelectTables(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "Warehouse connectivity is disabled")
		return
	}
	id := r.PathValue("id")
	var req struct {
		Tables []string `json:"tables"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.sessions.SelectTables(r.Context(), id, req.Tables)
	if err != nil {
		s.sessionError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":      sess.ID,
		"selectedTables": sess.SelectedTables,
	})
}

func (s *Server) handleSchemaContext(w http.ResponseWriter, r *http.Request) {
	wh, ok := s.sessionWarehouse(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	schemas, err := s.sessions.CachedSchemas(r.Context(), id, wh.DescribeTable)
	if err != nil {
		s.sessionError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schemas": schemas,
		"context": schemactx.Build(schemas),
	})
}

// sessionWarehouse resolves the session's warehouse connection or writes the
// appropriate error response.
func (s *Server) sessionWarehouse(w http.ResponseWriter, r *http.Request) (warehouse.Warehouse, bool) {
	if s.sessions == nil || s.connect == nil {
		writeError(w, http.StatusServiceUnavailable, "Warehouse connectivity is disabled")
		return nil, false
	}
	id := r.PathValue("id")
	wh, err := s.warehouseForSession(r.Context(), id)
	if err != nil {
		s.sessionError(w, id, err)
		return nil, false
	}
	return wh, true
}

func (s *Server) sessionError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrSessionExpired):
		writeError(w, http.StatusGone, "Session expired")
	default:
		s.logger.Error("warehouse session error", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Warehouse operation failed")
	}
}
