package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sqlpilot/sqlpilot/internal/pipeline"
)

// ResponseSnapshot stores an AgentResponse as a JSONB column.
type ResponseSnapshot struct {
	Response *pipeline.AgentResponse
}

// Value implements driver.Valuer.
func (r ResponseSnapshot) Value() (driver.Value, error) {
	if r.Response == nil {
		return nil, nil
	}
	return json.Marshal(r.Response)
}

// Scan implements sql.Scanner.
func (r *ResponseSnapshot) Scan(value interface{}) error {
	if value == nil {
		r.Response = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ResponseSnapshot", value)
	}
	r.Response = &pipeline.AgentResponse{}
	return json.Unmarshal(data, r.Response)
}

// PostgresConfig holds connection settings for the Postgres store.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Postgres is the sqlx-backed Store.
type Postgres struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgres opens and pings a Postgres connection.
func NewPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("Connected to Postgres store",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))
	return &Postgres{db: db, logger: logger}, nil
}

// newPostgresFromDB wires an existing connection. Used by tests.
func newPostgresFromDB(db *sqlx.DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Ping reports whether the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

type workflowStepRow struct {
	ID             string           `db:"id"`
	ConversationID string           `db:"conversation_id"`
	StepNumber     int              `db:"step_number"`
	Question       string           `db:"question"`
	SQL            string           `db:"sql"`
	Status         string           `db:"status"`
	Response       ResponseSnapshot `db:"response"`
	CreatedAt      time.Time        `db:"created_at"`
}

func (r workflowStepRow) toStep() *WorkflowStep {
	return &WorkflowStep{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		StepNumber:     r.StepNumber,
		Question:       r.Question,
		SQL:            r.SQL,
		Status:         StepStatus(r.Status),
		Response:       r.Response.Response,
		CreatedAt:      r.CreatedAt,
	}
}

func (p *Postgres) CreateConversation(ctx context.Context, create CreateConversation) (*Conversation, error) {
	conv := &Conversation{
		ID:      uuid.New().String(),
		Title:   create.Title,
		Preview: create.Preview,
	}
	row := p.db.QueryRowxContext(ctx, `
		INSERT INTO conversations (id, title, preview, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at`,
		conv.ID, conv.Title, conv.Preview)
	if err := row.Scan(&conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

func (p *Postgres) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	err := p.db.GetContext(ctx, &conv, `
		SELECT id, title, preview, created_at, updated_at
		FROM conversations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

func (p *Postgres) ListConversations(ctx context.Context) ([]*Conversation, error) {
	var convs []*Conversation
	err := p.db.SelectContext(ctx, &convs, `
		SELECT id, title, preview, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

func (p *Postgres) UpdateConversation(ctx context.Context, id string, update UpdateConversation) (*Conversation, error) {
	var conv Conversation
	err := p.db.GetContext(ctx, &conv, `
		UPDATE conversations
		SET title = COALESCE($2, title),
		    preview = COALESCE($3, preview),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, title, preview, created_at, updated_at`,
		id, update.Title, update.Preview)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	return &conv, nil
}

func (p *Postgres) DeleteConversation(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	// Messages and workflow steps cascade via FK constraints.
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateMessage(ctx context.Context, create CreateMessage) (*Message, error) {
	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: create.ConversationID,
		Role:           create.Role,
		Content:        create.Content,
		HasResponse:    create.HasResponse,
	}
	row := p.db.QueryRowxContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, has_response, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.HasResponse)
	if err := row.Scan(&msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (p *Postgres) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	var msgs []*Message
	err := p.db.SelectContext(ctx, &msgs, `
		SELECT id, conversation_id, role, content, has_response, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (p *Postgres) CreateWorkflowStep(ctx context.Context, create CreateWorkflowStep) (*WorkflowStep, error) {
	step := &WorkflowStep{
		ID:             uuid.New().String(),
		ConversationID: create.ConversationID,
		StepNumber:     create.StepNumber,
		Question:       create.Question,
		SQL:            create.SQL,
		Status:         create.Status,
		Response:       create.Response,
	}
	row := p.db.QueryRowxContext(ctx, `
		INSERT INTO workflow_steps (id, conversation_id, step_number, question, sql, status, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at`,
		step.ID, step.ConversationID, step.StepNumber, step.Question,
		step.SQL, string(step.Status), ResponseSnapshot{Response: step.Response})
	if err := row.Scan(&step.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert workflow step: %w", err)
	}
	return step, nil
}

func (p *Postgres) ListWorkflowSteps(ctx context.Context, conversationID string) ([]*WorkflowStep, error) {
	var rows []workflowStepRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, conversation_id, step_number, question, sql, status, response, created_at
		FROM workflow_steps WHERE conversation_id = $1
		ORDER BY step_number ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list workflow steps: %w", err)
	}
	steps := make([]*WorkflowStep, 0, len(rows))
	for _, r := range rows {
		steps = append(steps, r.toStep())
	}
	return steps, nil
}

func (p *Postgres) UpdateWorkflowStep(ctx context.Context, id string, update UpdateWorkflowStep) (*WorkflowStep, error) {
	var status *string
	if update.Status != nil {
		s := string(*update.Status)
		status = &s
	}
	var snapshot *ResponseSnapshot
	if update.Response != nil {
		snapshot = &ResponseSnapshot{Response: update.Response}
	}
	var r workflowStepRow
	err := p.db.GetContext(ctx, &r, `
		UPDATE workflow_steps
		SET status = COALESCE($2, status),
		    response = COALESCE($3, response)
		WHERE id = $1
		RETURNING id, conversation_id, step_number, question, sql, status, response, created_at`,
		id, status, snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update workflow step: %w", err)
	}
	return r.toStep(), nil
}

func (p *Postgres) ClearWorkflowSteps(ctx context.Context, conversationID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM workflow_steps WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return fmt.Errorf("clear workflow steps: %w", err)
	}
	return nil
}
