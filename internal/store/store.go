// Package store owns conversation, message and workflow-step persistence.
// The repository interfaces keep the backend pluggable: an in-memory
// reference implementation and a Postgres implementation are provided.
//
// The at-most-one-current workflow invariant is deliberately NOT enforced
// here; the orchestration layer demotes the prior current step before
// creating a new one, so swapping storage backends can never violate it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sqlpilot/sqlpilot/internal/pipeline"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Conversation is one analysis thread.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Preview   string    `json:"preview" db:"preview"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Message is a single chat message. Immutable once created.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversationId" db:"conversation_id"`
	Role           string    `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	HasResponse    bool      `json:"hasResponse" db:"has_response"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// StepStatus is the lifecycle state of a workflow step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCurrent   StepStatus = "current"
	StepCompleted StepStatus = "completed"
)

// WorkflowStep is one recorded question-to-SQL iteration. Step numbers are
// 1-based, unique and increasing per conversation, and never reused.
type WorkflowStep struct {
	ID             string                  `json:"id" db:"id"`
	ConversationID string                  `json:"conversationId" db:"conversation_id"`
	StepNumber     int                     `json:"stepNumber" db:"step_number"`
	Question       string                  `json:"question" db:"question"`
	SQL            string                  `json:"sql" db:"sql"`
	Status         StepStatus              `json:"status" db:"status"`
	Response       *pipeline.AgentResponse `json:"response" db:"response"`
	CreatedAt      time.Time               `json:"createdAt" db:"created_at"`
}

// CreateConversation is the payload for ConversationRepository.Create.
type CreateConversation struct {
	Title   string
	Preview string
}

// UpdateConversation carries the mutable conversation fields; nil means keep.
type UpdateConversation struct {
	Title   *string
	Preview *string
}

// CreateMessage is the payload for MessageRepository.Create.
type CreateMessage struct {
	ConversationID string
	Role           string
	Content        string
	HasResponse    bool
}

// CreateWorkflowStep is the payload for WorkflowStepRepository.Create.
type CreateWorkflowStep struct {
	ConversationID string
	StepNumber     int
	Question       string
	SQL            string
	Status         StepStatus
	Response       *pipeline.AgentResponse
}

// UpdateWorkflowStep carries the mutable step fields; nil means keep.
type UpdateWorkflowStep struct {
	Status   *StepStatus
	Response *pipeline.AgentResponse
}

// ConversationRepository persists conversations.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, create CreateConversation) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	// ListConversations returns conversations ordered most-recently-updated
	// first.
	ListConversations(ctx context.Context) ([]*Conversation, error)
	// UpdateConversation applies the partial update and bumps UpdatedAt.
	UpdateConversation(ctx context.Context, id string, update UpdateConversation) (*Conversation, error)
	// DeleteConversation removes the conversation and cascades to its
	// messages and workflow steps.
	DeleteConversation(ctx context.Context, id string) error
}

// MessageRepository persists messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, create CreateMessage) (*Message, error)
	// ListMessages returns all messages of a conversation ordered by
	// creation time ascending.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
}

// WorkflowStepRepository persists workflow steps.
type WorkflowStepRepository interface {
	CreateWorkflowStep(ctx context.Context, create CreateWorkflowStep) (*WorkflowStep, error)
	// ListWorkflowSteps returns all steps of a conversation ordered by step
	// number ascending.
	ListWorkflowSteps(ctx context.Context, conversationID string) ([]*WorkflowStep, error)
	UpdateWorkflowStep(ctx context.Context, id string, update UpdateWorkflowStep) (*WorkflowStep, error)
	// ClearWorkflowSteps removes every step of the conversation. Messages
	// and the conversation record are untouched.
	ClearWorkflowSteps(ctx context.Context, conversationID string) error
}

// Store is the full persistence surface used by the HTTP layer.
type Store interface {
	ConversationRepository
	MessageRepository
	WorkflowStepRepository
}
