package models

import "time"

// PlanTier sets how many pages a job may crawl (see PlanPageCap); it
// does not gate which axes run. The core only consumes the tier, it
// never decides what a tier is allowed to do (spec.md §1 non-goals).
type PlanTier string

const (
	PlanBasic      PlanTier = "basic"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// JobStatus is the Job's lifecycle state (spec.md §3).
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is the root aggregate of one audit run.
type Job struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Plan        PlanTier   `json:"plan"`
	MaxPages    int        `json:"max_pages"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"` // 0..100, monotonic non-decreasing
	Message     string     `json:"message,omitempty"`
	SubmitterID string     `json:"submitter_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorCode   string     `json:"error_code,omitempty"`
	Warning     string     `json:"warning,omitempty"`
	WarningCode string     `json:"warning_code,omitempty"`
}

// IsTerminal reports whether the job has reached an absorbing state.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// JobSubmission is the create() input contract (spec.md §4.1, §6).
type JobSubmission struct {
	URL         string   `json:"url" validate:"required,url"`
	Plan        PlanTier `json:"plan" validate:"required,oneof=basic pro enterprise"`
	MaxPages    int      `json:"max_pages" validate:"omitempty,min=1,max=200"`
	SubmitterID string   `json:"submitter_id,omitempty"`
}

// DefaultMaxPages is the plan-independent sensible default (spec.md §4.2).
const DefaultMaxPages = 5

// PlanPageCap returns the page cap implied by a plan tier: it is the
// default when the submission does not specify max_pages and the upper
// bound when it does. Business rules about which tier may
// run which modules are deliberately NOT encoded here beyond this cap —
// the core is told, per spec.md §1.
func PlanPageCap(plan PlanTier) int {
	switch plan {
	case PlanEnterprise:
		return 50
	case PlanPro:
		return 15
	default:
		return DefaultMaxPages
	}
}
