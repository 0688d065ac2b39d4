package pipeline

// AgentResponse is the assembled outcome of one query-processing run. Field
// names and the PASS/FAIL values are a stable contract with the UI layer;
// the struct is produced fresh per query and never mutated afterwards.
type AgentResponse struct {
	IntentSummary        string   `json:"intent_summary"`
	RetrievedContext     string   `json:"retrieved_context"`
	GeneratedSQL         string   `json:"generated_sql"`
	AccessControlApplied string   `json:"access_control_applied"`
	CostEstimate         string   `json:"cost_estimate"`
	ValidationStatus     string   `json:"validation_status"`
	ExplainabilityNotes  string   `json:"explainability_notes"`
	ResultPreview        string   `json:"result_preview"`
	WorkflowStepSaved    bool     `json:"workflow_step_saved"`
	RecommendedNextSteps []string `json:"recommended_next_steps"`
	ReportingReady       bool     `json:"reporting_ready"`
}

// Validation status values.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)
