package common

import "github.com/google/uuid"

// NewJobID generates a unique job identifier with the "job_" prefix.
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewReportID generates a unique final-report identifier.
func NewReportID() string {
	return "rpt_" + uuid.New().String()
}
