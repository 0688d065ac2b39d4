// Package session tracks warehouse connection sessions in Redis. A session
// holds the connection credentials, the tables the user selected for
// analysis, and a cache of their described schemas so the schema context can
// be rebuilt without re-querying the warehouse on every question.
package session

import (
	"errors"
	"time"

	"github.com/sqlpilot/sqlpilot/internal/warehouse"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session is one warehouse connection session.
type Session struct {
	ID             string                  `json:"id"`
	Credentials    warehouse.Credentials   `json:"credentials"`
	SelectedTables []string                `json:"selected_tables"`
	Schemas        []warehouse.TableSchema `json:"schemas,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	ExpiresAt      time.Time               `json:"expires_at"`
}

// IsExpired reports whether the session TTL has elapsed.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
