package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Store. It is safe for concurrent use and is the
// default backend for local development and tests.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]*Message      // keyed by conversation ID
	steps         map[string][]*WorkflowStep // keyed by conversation ID
	stepIndex     map[string]string          // step ID -> conversation ID
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		steps:         make(map[string][]*WorkflowStep),
		stepIndex:     make(map[string]string),
	}
}

func (m *Memory) CreateConversation(_ context.Context, create CreateConversation) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.New().String(),
		Title:     create.Title,
		Preview:   create.Preview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.conversations[conv.ID] = conv
	cp := *conv
	return &cp, nil
}

func (m *Memory) GetConversation(_ context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (m *Memory) ListConversations(_ context.Context) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		cp := *conv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateConversation(_ context.Context, id string, update UpdateConversation) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Title != nil {
		conv.Title = *update.Title
	}
	if update.Preview != nil {
		conv.Preview = *update.Preview
	}
	conv.UpdatedAt = time.Now().UTC()
	cp := *conv
	return &cp, nil
}

func (m *Memory) DeleteConversation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	for _, step := range m.steps[id] {
		delete(m.stepIndex, step.ID)
	}
	delete(m.steps, id)
	return nil
}

func (m *Memory) CreateMessage(_ context.Context, create CreateMessage) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[create.ConversationID]; !ok {
		return nil, ErrNotFound
	}
	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: create.ConversationID,
		Role:           create.Role,
		Content:        create.Content,
		HasResponse:    create.HasResponse,
		CreatedAt:      time.Now().UTC(),
	}
	m.messages[create.ConversationID] = append(m.messages[create.ConversationID], msg)
	cp := *msg
	return &cp, nil
}

func (m *Memory) ListMessages(_ context.Context, conversationID string) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[conversationID]
	out := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		cp := *msg
		out = append(out, &cp)
	}
	// Append order is creation order already; keep it stable regardless.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) CreateWorkflowStep(_ context.Context, create CreateWorkflowStep) (*WorkflowStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[create.ConversationID]; !ok {
		return nil, ErrNotFound
	}
	step := &WorkflowStep{
		ID:             uuid.New().String(),
		ConversationID: create.ConversationID,
		StepNumber:     create.StepNumber,
		Question:       create.Question,
		SQL:            create.SQL,
		Status:         create.Status,
		Response:       create.Response,
		CreatedAt:      time.Now().UTC(),
	}
	m.steps[create.ConversationID] = append(m.steps[create.ConversationID], step)
	m.stepIndex[step.ID] = create.ConversationID
	cp := *step
	return &cp, nil
}

func (m *Memory) ListWorkflowSteps(_ context.Context, conversationID string) ([]*WorkflowStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	steps := m.steps[conversationID]
	out := make([]*WorkflowStep, 0, len(steps))
	for _, step := range steps {
		cp := *step
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StepNumber < out[j].StepNumber
	})
	return out, nil
}

func (m *Memory) UpdateWorkflowStep(_ context.Context, id string, update UpdateWorkflowStep) (*WorkflowStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convID, ok := m.stepIndex[id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, step := range m.steps[convID] {
		if step.ID != id {
			continue
		}
		if update.Status != nil {
			step.Status = *update.Status
		}
		if update.Response != nil {
			step.Response = update.Response
		}
		cp := *step
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) ClearWorkflowSteps(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, step := range m.steps[conversationID] {
		delete(m.stepIndex, step.ID)
	}
	delete(m.steps, conversationID)
	return nil
}
