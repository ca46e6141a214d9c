package models

import "time"

// ModuleStatus is a single axis module's lifecycle state (spec.md §3).
type ModuleStatus string

const (
	ModulePending   ModuleStatus = "pending"
	ModuleRunning   ModuleStatus = "running"
	ModuleCompleted ModuleStatus = "completed"
	ModuleFailed    ModuleStatus = "failed"
)

// ComplianceLevel is the label mapped from an aggregate numeric score.
type ComplianceLevel string

const (
	LevelAAA      ComplianceLevel = "AAA"
	LevelAAPlus   ComplianceLevel = "AA+"
	LevelAA       ComplianceLevel = "AA"
	LevelAPlus    ComplianceLevel = "A+"
	LevelA        ComplianceLevel = "A"
	LevelPartial  ComplianceLevel = "PARTIAL"
	LevelNone     ComplianceLevel = "NONE"
	LevelPoor     ComplianceLevel = "POOR"
	LevelCritical ComplianceLevel = "CRITICAL"
)

// CriterionStatus is one per-criterion evaluation's pass/fail state.
type CriterionStatus string

const (
	CriterionPassed  CriterionStatus = "PASSED"
	CriterionPartial CriterionStatus = "PARTIAL"
	CriterionWarning CriterionStatus = "WARNING"
	CriterionFailed  CriterionStatus = "FAILED"
)

// CriterionEvaluation is one per-criterion result within a module
// (spec.md §3).
type CriterionEvaluation struct {
	CriterionID    string          `json:"criterion_id"`
	Name           string          `json:"name"`
	Status         CriterionStatus `json:"status"`
	Finding        string          `json:"finding"`
	Impact         string          `json:"impact"`
	Recommendation string          `json:"recommendation"`
	Examples       []string        `json:"examples,omitempty"`
	Severity       string          `json:"severity"`
}

// Summary is the module-level rollup required at minimum by spec.md §3.
type Summary struct {
	Score             int             `json:"score"` // 0..100
	ComplianceLevel   ComplianceLevel `json:"compliance_level"`
	OverallAssessment string          `json:"overall_assessment"`
}

// PriorityAction is one recommended remediation item.
type PriorityAction struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AxisKey     AxisKey `json:"axis_key,omitempty"`
}

// PriorityActions buckets recommendations by urgency (spec.md §3, optional).
type PriorityActions struct {
	Immediate []PriorityAction `json:"immediate,omitempty"`
	ShortTerm []PriorityAction `json:"short_term,omitempty"`
	LongTerm  []PriorityAction `json:"long_term,omitempty"`
}

// AnalysisResult is the canonical parsed model-output schema (spec.md §3, §6).
type AnalysisResult struct {
	Summary            Summary               `json:"summary"`
	CriteriaEvaluation []CriterionEvaluation `json:"criteria_evaluation"`
	PriorityActions    *PriorityActions      `json:"priority_actions,omitempty"`
}

// ModuleResult is the persisted record of one axis's dispatch (spec.md §3).
type ModuleResult struct {
	JobID       string          `json:"job_id"`
	AxisKey     AxisKey         `json:"axis_key"`
	Status      ModuleStatus    `json:"status"`
	Result      *AnalysisResult `json:"result,omitempty"`
	RawText     string          `json:"raw_text,omitempty"` // retained for audit, even on success
	TokenUsage  int             `json:"token_usage"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorCode   string          `json:"error_code,omitempty"`
	Attempts    int             `json:"attempts"`
}
