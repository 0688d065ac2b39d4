package httpapi

import (
	"net/http"

	"github.com/sqlpilot/sqlpilot/internal/access"
	"github.com/sqlpilot/sqlpilot/internal/sqlguard"
)

func (s *Server) handleValidateSQL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SQL string `json:"sql"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, "SQL is required")
		return
	}
	writeJSON(w, http.StatusOK, sqlguard.Validate(req.SQL))
}

func (s *Server) handleEstimateCost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SQL string `json:"sql"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, "SQL is required")
		return
	}
	writeJSON(w, http.StatusOK, s.costModel.Estimate(req.SQL))
}

func (s *Server) handleAccessControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role        string   `json:"role"`
		TablesUsed  []string `json:"tablesUsed"`
		ColumnsUsed []string `json:"columnsUsed"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		writeError(w, http.StatusBadRequest, "Role is required")
		return
	}
	role := access.Role(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}
	writeJSON(w, http.StatusOK, access.Resolve(role, req.TablesUsed, req.ColumnsUsed))
}
