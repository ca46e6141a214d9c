package interfaces

import (
	"context"

	"github.com/a11yscan/auditor/internal/models"
)

// PersistenceAdapter is the only component aware of the external
// schema (spec.md §4.7, §6). Every other component exchanges domain
// objects through this interface; writes are idempotent upserts.
type PersistenceAdapter interface {
	UpsertJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	UpsertModuleResult(ctx context.Context, result *models.ModuleResult) error
	ListModuleResults(ctx context.Context, jobID string) ([]*models.ModuleResult, error)

	UpsertFinalReport(ctx context.Context, report *models.FinalReport) error
	GetFinalReport(ctx context.Context, jobID string) (*models.FinalReport, error)

	Close() error
}
