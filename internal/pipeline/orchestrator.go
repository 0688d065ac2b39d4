// Package pipeline composes intent parsing, SQL generation, safety
// validation, cost estimation and access resolution into a single
// query-processing run.
package pipeline

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sqlpilot/sqlpilot/internal/access"
	"github.com/sqlpilot/sqlpilot/internal/costing"
	"github.com/sqlpilot/sqlpilot/internal/metrics"
	"github.com/sqlpilot/sqlpilot/internal/nlu"
	"github.com/sqlpilot/sqlpilot/internal/sqlguard"
)

// DefaultLimit is appended to generated statements that carry no LIMIT.
const DefaultLimit = 1000

// Orchestrator runs the query-processing pipeline. It is safe for concurrent
// use; each Process call is an independent unit of work.
type Orchestrator struct {
	capability nlu.Capability
	costModel  costing.Model
	logger     *zap.Logger
}

// New creates an orchestrator over the given NLU capability and cost model.
func New(capability nlu.Capability, costModel costing.Model, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{capability: capability, costModel: costModel, logger: logger}
}

// Process turns a natural-language question into a full AgentResponse. It
// never returns an error: any failure of the external capability degrades to
// a FAIL-shaped response the caller can render. No retries are performed.
func (o *Orchestrator) Process(ctx context.Context, question string, role access.Role, schemaContext string) *AgentResponse {
	start := time.Now()

	intent, err := o.capability.ParseIntent(ctx, question, schemaContext)
	if err != nil {
		o.logger.Warn("Intent parsing failed", zap.String("question", question), zap.Error(err))
		metrics.RecordQueryMetrics(string(role), "error", time.Since(start).Seconds())
		return failResponse(role, err)
	}

	gen, err := o.capability.GenerateSQL(ctx, question, intent, string(role), schemaContext)
	if err != nil {
		o.logger.Warn("SQL generation failed", zap.String("question", question), zap.Error(err))
		metrics.RecordQueryMetrics(string(role), "error", time.Since(start).Seconds())
		return failResponse(role, err)
	}

	validation := sqlguard.Validate(gen.SQL)
	if !validation.Valid {
		metrics.ValidationFailures.Inc()
	}

	// The finalized SQL, not the raw generation, is what gets estimated,
	// reported and eventually executed.
	finalSQL := gen.SQL
	if !sqlguard.HasLimit(finalSQL) {
		finalSQL = sqlguard.EnsureLimit(finalSQL, DefaultLimit)
		metrics.LimitInjections.Inc()
	}

	estimate := o.costModel.Estimate(finalSQL)

	decision := access.Resolve(role, gen.TablesUsed, gen.ColumnsUsed)

	steps, err := o.capability.SuggestNextSteps(ctx, question, gen)
	if err != nil {
		o.logger.Debug("Suggestion call failed, using defaults", zap.Error(err))
		metrics.SuggestionFallbacks.Inc()
		steps = defaultSuggestions()
	}
	labels := make([]string, 0, len(steps))
	for _, s := range steps {
		labels = append(labels, s.Label)
	}

	status := "pass"
	if !validation.Valid {
		status = "fail"
	}
	metrics.RecordQueryMetrics(string(role), status, time.Since(start).Seconds())

	return &AgentResponse{
		IntentSummary:        intentSummary(intent),
		RetrievedContext:     "Tables: " + strings.Join(gen.TablesUsed, ", ") + ". Columns: " + strings.Join(gen.ColumnsUsed, ", "),
		GeneratedSQL:         finalSQL,
		AccessControlApplied: accessSummary(decision),
		CostEstimate:         "~" + estimate.BytesScanned + " scanned, " + formatCredits(estimate.Credits) + " credits",
		ValidationStatus:     validationStatus(validation.Valid),
		ExplainabilityNotes:  explainabilityNotes(gen.Explanation, validation),
		ResultPreview:        "Query ready for execution",
		WorkflowStepSaved:    validation.Valid,
		RecommendedNextSteps: labels,
		ReportingReady:       validation.Valid,
	}
}

func intentSummary(intent *nlu.Intent) string {
	dims := strings.Join(intent.Dimensions, ", ")
	if dims == "" {
		dims = "total"
	}
	return "Analyzing: " + strings.Join(intent.Metrics, ", ") + " by " + dims
}

func accessSummary(d access.Decision) string {
	masked := "No masking applied"
	if len(d.MaskedColumns) > 0 {
		masked = "Masked: " + strings.Join(d.MaskedColumns, ", ")
	}
	return "Role: " + d.Role + ". " + masked
}

func validationStatus(valid bool) string {
	if valid {
		return StatusPass
	}
	return StatusFail
}

func explainabilityNotes(explanation string, v sqlguard.Result) string {
	if v.Valid {
		return explanation
	}
	return "Validation errors: " + strings.Join(v.Errors, ", ")
}

func formatCredits(credits float64) string {
	return strconv.FormatFloat(credits, 'f', -1, 64)
}

// failResponse is the single error-recovery path for external-call failures.
func failResponse(role access.Role, err error) *AgentResponse {
	return &AgentResponse{
		IntentSummary:        "Failed to parse intent",
		RetrievedContext:     "Error retrieving context",
		GeneratedSQL:         "",
		AccessControlApplied: "Role: " + strings.ToUpper(string(role)),
		CostEstimate:         "N/A",
		ValidationStatus:     StatusFail,
		ExplainabilityNotes:  "Error: " + err.Error(),
		ResultPreview:        "No results",
		WorkflowStepSaved:    false,
		RecommendedNextSteps: []string{},
		ReportingReady:       false,
	}
}

func defaultSuggestions() []nlu.Step {
	return []nlu.Step{
		{ID: "1", Label: "Break down by another dimension", Type: nlu.StepDrillDown},
		{ID: "2", Label: "Compare with previous period", Type: nlu.StepCompare},
		{ID: "3", Label: "Add more filters", Type: nlu.StepFilter},
	}
}
