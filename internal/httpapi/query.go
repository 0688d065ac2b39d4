package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sqlpilot/sqlpilot/internal/access"
	"github.com/sqlpilot/sqlpilot/internal/metrics"
	"github.com/sqlpilot/sqlpilot/internal/schemactx"
	"github.com/sqlpilot/sqlpilot/internal/store"
)

type queryRequest struct {
	Question       string `json:"question"`
	Role           string `json:"role"`
	ConversationID string `json:"conversationId,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
}

// conversationTitle derives a title from the first question of a thread.
func conversationTitle(question string) string {
	if len(question) > 50 {
		return question[:47] + "..."
	}
	return question
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	role := access.Role(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}
	ctx := r.Context()

	convoID := req.ConversationID
	if convoID == "" {
		conv, err := s.store.CreateConversation(ctx, store.CreateConversation{
			Title:   conversationTitle(req.Question),
			Preview: req.Question,
		})
		if err != nil {
			s.logger.Error("create conversation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to process query")
			return
		}
		metrics.ConversationsCreated.Inc()
		convoID = conv.ID
	} else if _, err := s.store.GetConversation(ctx, convoID); err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	if _, err := s.store.CreateMessage(ctx, store.CreateMessage{
		ConversationID: convoID,
		Role:           store.MessageRoleUser,
		Content:        req.Question,
	}); err != nil {
		s.logger.Error("save user message failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process query")
		return
	}

	schemaContext := s.schemaContextForSession(r, req.SessionID)
	resp := s.orchestrator.Process(ctx, req.Question, role, schemaContext)

	if _, err := s.store.CreateMessage(ctx, store.CreateMessage{
		ConversationID: convoID,
		Role:           store.MessageRoleAssistant,
		Content:        resp.IntentSummary,
		HasResponse:    true,
	}); err != nil {
		s.logger.Error("save assistant message failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process query")
		return
	}

	if _, err := s.store.UpdateConversation(ctx, convoID, store.UpdateConversation{
		Preview: &req.Question,
	}); err != nil {
		s.logger.Error("update conversation preview failed", zap.Error(err))
	}

	if resp.WorkflowStepSaved {
		mu := s.conversationLock(convoID)
		mu.Lock()
		existing, err := s.store.ListWorkflowSteps(ctx, convoID)
		if err == nil {
			for _, step := range existing {
				if step.Status == store.StepCurrent {
					done := store.StepCompleted
					if _, uerr := s.store.UpdateWorkflowStep(ctx, step.ID, store.UpdateWorkflowStep{Status: &done}); uerr != nil {
						s.logger.Error("demote workflow step failed", zap.String("step_id", step.ID), zap.Error(uerr))
					}
				}
			}
			_, err = s.store.CreateWorkflowStep(ctx, store.CreateWorkflowStep{
				ConversationID: convoID,
				StepNumber:     len(existing) + 1,
				Question:       req.Question,
				SQL:            resp.GeneratedSQL,
				Status:         store.StepCurrent,
				Response:       resp,
			})
		}
		mu.Unlock()
		if err != nil {
			s.logger.Error("save workflow step failed", zap.String("conversation_id", convoID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to process query")
			return
		}
		metrics.WorkflowStepsCreated.Inc()
	}

	steps, err := s.store.ListWorkflowSteps(ctx, convoID)
	if err != nil {
		s.logger.Error("list workflow steps failed", zap.String("conversation_id", convoID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process query")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": convoID,
		"response":       resp,
		"workflowSteps":  steps,
	})
}

// schemaContextForSession renders the schema context of the warehouse session,
// or the empty context when no session is given or the lookup fails. Schema
// failures degrade rather than abort: the pipeline still answers, it just
// generates without table context.
func (s *Server) schemaContextForSession(r *http.Request, sessionID string) string {
	if sessionID == "" || s.sessions == nil {
		return schemactx.EmptyContext
	}
	wh, err := s.warehouseForSession(r.Context(), sessionID)
	if err != nil {
		s.logger.Warn("warehouse unavailable for session",
			zap.String("session_id", sessionID), zap.Error(err))
		return schemactx.EmptyContext
	}
	schemas, err := s.sessions.CachedSchemas(r.Context(), sessionID, wh.DescribeTable)
	if err != nil {
		s.logger.Warn("schema fetch failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return schemactx.EmptyContext
	}
	return schemactx.Build(schemas)
}
