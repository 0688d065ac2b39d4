package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sqlpilot/sqlpilot/internal/metrics"
	"github.com/sqlpilot/sqlpilot/internal/store"
)

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations(r.Context())
	if err != nil {
		s.logger.Error("list conversations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversations")
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Preview string `json:"preview"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		req.Title = "New Analysis"
	}
	if req.Preview == "" {
		req.Preview = "Start asking questions..."
	}
	conv, err := s.store.CreateConversation(r.Context(), store.CreateConversation{
		Title:   req.Title,
		Preview: req.Preview,
	})
	if err != nil {
		s.logger.Error("create conversation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	metrics.ConversationsCreated.Inc()
	writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, err := s.store.GetConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("get conversation failed", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}
	msgs, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		s.logger.Error("list messages failed", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}
	steps, err := s.store.ListWorkflowSteps(r.Context(), id)
	if err != nil {
		s.logger.Error("list workflow steps failed", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation":  conv,
		"messages":      msgs,
		"workflowSteps": steps,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.DeleteConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("delete conversation failed", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	steps, err := s.store.ListWorkflowSteps(r.Context(), id)
	if err != nil {
		s.logger.Error("list workflow steps failed", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch workflow steps")
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

func (s *Server) handleClearWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.ClearWorkflowSteps(r.Context(), id); err != nil {
		s.logger.Error("clear workflow steps failed", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to clear workflow steps")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
