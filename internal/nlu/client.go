package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	ometrics "github.com/sqlpilot/sqlpilot/internal/metrics"
)

// Config holds NLU service connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the NLU sidecar over HTTP. Each operation maps to one
// endpoint returning structured JSON.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates an NLU client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("nlu base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type parseIntentRequest struct {
	Question      string `json:"question"`
	SchemaContext string `json:"schema_context"`
}

type generateSQLRequest struct {
	Question      string  `json:"question"`
	Intent        *Intent `json:"intent"`
	Role          string  `json:"role"`
	SchemaContext string  `json:"schema_context"`
}

type suggestRequest struct {
	Question   string      `json:"question"`
	Generation *Generation `json:"generation"`
}

// ParseIntent extracts structured intent from a question.
func (c *Client) ParseIntent(ctx context.Context, question, schemaContext string) (*Intent, error) {
	var intent Intent
	err := c.post(ctx, "parse_intent", "/v1/intent", parseIntentRequest{
		Question:      question,
		SchemaContext: schemaContext,
	}, &intent)
	if err != nil {
		return nil, fmt.Errorf("parse intent: %w", err)
	}
	if err := validateIntent(&intent); err != nil {
		ometrics.RecordNLUMetrics("parse_intent", "invalid", 0)
		return nil, fmt.Errorf("parse intent: invalid response: %w", err)
	}
	return &intent, nil
}

// GenerateSQL produces a SELECT statement for the question and parsed intent.
// The generation service is instructed to emit SELECT-only SQL; the validator
// downstream is the enforcement backstop, not a trust assumption.
func (c *Client) GenerateSQL(ctx context.Context, question string, intent *Intent, role, schemaContext string) (*Generation, error) {
	var gen Generation
	err := c.post(ctx, "generate_sql", "/v1/sql", generateSQLRequest{
		Question:      question,
		Intent:        intent,
		Role:          role,
		SchemaContext: schemaContext,
	}, &gen)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	if err := validateGeneration(&gen); err != nil {
		ometrics.RecordNLUMetrics("generate_sql", "invalid", 0)
		return nil, fmt.Errorf("generate sql: invalid response: %w", err)
	}
	return &gen, nil
}

// SuggestNextSteps asks for follow-up analysis suggestions.
func (c *Client) SuggestNextSteps(ctx context.Context, question string, gen *Generation) ([]Step, error) {
	var steps []Step
	err := c.post(ctx, "suggest_steps", "/v1/suggest", suggestRequest{
		Question:   question,
		Generation: gen,
	}, &steps)
	if err != nil {
		return nil, fmt.Errorf("suggest next steps: %w", err)
	}
	if err := validateSteps(steps); err != nil {
		ometrics.RecordNLUMetrics("suggest_steps", "invalid", 0)
		return nil, fmt.Errorf("suggest next steps: invalid response: %w", err)
	}
	return steps, nil
}

func (c *Client) post(ctx context.Context, operation, path string, payload, out any) error {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		ometrics.RecordNLUMetrics(operation, "error", time.Since(start).Seconds())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ometrics.RecordNLUMetrics(operation, "error", time.Since(start).Seconds())
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Warn("NLU request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("nlu %s status %d: %s", operation, resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		ometrics.RecordNLUMetrics(operation, "error", time.Since(start).Seconds())
		return fmt.Errorf("decode response: %w", err)
	}

	ometrics.RecordNLUMetrics(operation, "ok", time.Since(start).Seconds())
	return nil
}
