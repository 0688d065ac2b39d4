package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sqlpilot/sqlpilot/internal/metrics"
	"github.com/sqlpilot/sqlpilot/internal/warehouse"
)

// Manager handles warehouse session management with a Redis backend.
type Manager struct {
	client     *redis.Client
	logger     *zap.Logger
	ttl        time.Duration
	mu         sync.RWMutex
	localCache map[string]*Session // Local cache for performance
}

// NewManager connects to Redis and returns a session manager.
func NewManager(redisAddr string, ttl time.Duration, logger *zap.Logger) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewManagerWithClient(client, ttl, logger), nil
}

// NewManagerWithClient wires an existing Redis client. Used by tests.
func NewManagerWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		client:     client,
		logger:     logger,
		ttl:        ttl,
		localCache: make(map[string]*Session),
	}
}

// CreateSession records a new warehouse connection.
func (m *Manager) CreateSession(ctx context.Context, creds warehouse.Credentials) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:             uuid.New().String(),
		Credentials:    creds,
		SelectedTables: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(m.ttl),
	}

	if err := m.saveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[session.ID] = session
	metrics.SessionsActive.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Created warehouse session",
		zap.String("session_id", session.ID),
		zap.String("host", creds.Host),
		zap.String("database", creds.Database),
	)
	return session, nil
}

// GetSession retrieves a session by ID.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	if session, ok := m.localCache[sessionID]; ok {
		m.mu.RUnlock()
		if session.IsExpired() {
			m.DeleteSession(ctx, sessionID)
			return nil, ErrSessionExpired
		}
		return session, nil
	}
	m.mu.RUnlock()

	data, err := m.client.Get(ctx, m.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.IsExpired() {
		m.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	m.mu.Lock()
	m.localCache[sessionID] = &session
	metrics.SessionsActive.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	return &session, nil
}

// UpdateSession persists changed session state.
func (m *Manager) UpdateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	session.UpdatedAt = time.Now()

	if err := m.saveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[session.ID] = session
	m.mu.Unlock()
	return nil
}

// DeleteSession tears down a warehouse session.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.client.Del(ctx, m.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	m.mu.Lock()
	delete(m.localCache, sessionID)
	metrics.SessionsActive.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Deleted warehouse session", zap.String("session_id", sessionID))
	return nil
}

// SelectTables replaces the session's selected table list and clears the
// cached schemas, forcing a fresh describe on next use.
func (m *Manager) SelectTables(ctx context.Context, sessionID string, tables []string) (*Session, error) {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []string{}
	}
	session.SelectedTables = tables
	session.Schemas = nil
	if err := m.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CachedSchemas returns the described schemas for the session's selected
// tables, fetching via describe and caching on first use.
func (m *Manager) CachedSchemas(ctx context.Context, sessionID string, describe func(ctx context.Context, table string) (*warehouse.TableSchema, error)) ([]warehouse.TableSchema, error) {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Schemas != nil && len(session.Schemas) == len(session.SelectedTables) {
		metrics.SchemaCacheHits.Inc()
		return session.Schemas, nil
	}
	metrics.SchemaCacheMisses.Inc()

	schemas := make([]warehouse.TableSchema, 0, len(session.SelectedTables))
	for _, table := range session.SelectedTables {
		schema, err := describe(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		schemas = append(schemas, *schema)
	}

	session.Schemas = schemas
	if err := m.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return schemas, nil
}

func (m *Manager) saveSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return m.client.Set(ctx, m.sessionKey(session.ID), data, ttl).Err()
}

func (m *Manager) sessionKey(sessionID string) string {
	return fmt.Sprintf("warehouse:session:%s", sessionID)
}
