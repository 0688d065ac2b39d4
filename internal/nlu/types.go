// Package nlu defines the boundary to the externally hosted language
// understanding and generation capability. Responses are non-deterministic
// model output, so every payload is validated at this boundary before any
// field is trusted.
package nlu

import (
	"context"
	"fmt"
)

// Filter is a single column predicate extracted from a question.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// DateRange bounds a question in time.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SortSpec is the requested ordering.
type SortSpec struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// Intent is the structured extraction of a natural-language question.
type Intent struct {
	Metrics      []string   `json:"metrics"`
	Dimensions   []string   `json:"dimensions"`
	Filters      []Filter   `json:"filters"`
	DateRange    *DateRange `json:"dateRange"`
	Aggregations []string   `json:"aggregations"`
	Limit        int        `json:"limit"`
	SortBy       *SortSpec  `json:"sortBy"`
}

// Generation is the SQL produced for one question.
type Generation struct {
	SQL         string   `json:"sql"`
	Explanation string   `json:"explanation"`
	TablesUsed  []string `json:"tablesUsed"`
	ColumnsUsed []string `json:"columnsUsed"`
}

// Step is one recommended follow-up analysis.
type Step struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Step types the UI understands.
const (
	StepDrillDown = "drill-down"
	StepCompare   = "compare"
	StepFilter    = "filter"
	StepAggregate = "aggregate"
)

// Capability is the external NLU/generation contract. Implementations may
// fail on any call; callers own degradation.
type Capability interface {
	ParseIntent(ctx context.Context, question, schemaContext string) (*Intent, error)
	GenerateSQL(ctx context.Context, question string, intent *Intent, role, schemaContext string) (*Generation, error)
	SuggestNextSteps(ctx context.Context, question string, gen *Generation) ([]Step, error)
}

// validateIntent normalizes and checks a decoded intent. Optional fields are
// never assumed present.
func validateIntent(in *Intent) error {
	if in == nil {
		return fmt.Errorf("nil intent")
	}
	if in.Metrics == nil {
		in.Metrics = []string{}
	}
	if in.Dimensions == nil {
		in.Dimensions = []string{}
	}
	if in.Filters == nil {
		in.Filters = []Filter{}
	}
	if in.Aggregations == nil {
		in.Aggregations = []string{}
	}
	if in.Limit < 0 {
		return fmt.Errorf("negative limit %d", in.Limit)
	}
	if in.SortBy != nil && in.SortBy.Direction != "asc" && in.SortBy.Direction != "desc" {
		return fmt.Errorf("invalid sort direction %q", in.SortBy.Direction)
	}
	return nil
}

// validateGeneration checks a decoded generation result.
func validateGeneration(g *Generation) error {
	if g == nil {
		return fmt.Errorf("nil generation result")
	}
	if g.SQL == "" {
		return fmt.Errorf("generation returned empty sql")
	}
	if g.TablesUsed == nil {
		g.TablesUsed = []string{}
	}
	if g.ColumnsUsed == nil {
		g.ColumnsUsed = []string{}
	}
	return nil
}

// validateSteps checks decoded suggestions; unknown types are rejected so the
// UI never sees a label class it cannot render.
func validateSteps(steps []Step) error {
	for i, s := range steps {
		if s.Label == "" {
			return fmt.Errorf("step %d missing label", i)
		}
		switch s.Type {
		case StepDrillDown, StepCompare, StepFilter, StepAggregate:
		default:
			return fmt.Errorf("step %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}
