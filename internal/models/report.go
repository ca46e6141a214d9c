package models

import "time"

// FinalReport is the Result Reducer's output (spec.md §3, §4.6).
type FinalReport struct {
	JobID               string                      `json:"job_id"`
	URL                 string                      `json:"url"`
	TechnicalAnalysis   map[AxisKey]*AnalysisResult `json:"technical_analysis"`
	OverallScore        float64                     `json:"overall_score"`
	ContributingModules int                         `json:"contributing_modules"`
	OverallLevel        ComplianceLevel             `json:"overall_level"`
	PassedCount         int                         `json:"passed_count"`
	WarningCount        int                         `json:"warning_count"`
	ViolationCount      int                         `json:"violation_count"`
	ExecutiveSummary    string                      `json:"executive_summary"`
	Recommendations     PriorityActions             `json:"recommendations"`
	CreatedAt           time.Time                   `json:"created_at"`
}
