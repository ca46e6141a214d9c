package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/interfaces"
	"github.com/a11yscan/auditor/internal/models"
)

// Manager implements interfaces.PersistenceAdapter. It is the only
// component aware of the on-disk schema; every other component
// exchanges domain objects (spec.md §4.7).
type Manager struct {
	db     *DB
	logger arbor.ILogger
}

// NewManager wraps an opened DB as a PersistenceAdapter.
func NewManager(db *DB, logger arbor.ILogger) *Manager {
	return &Manager{db: db, logger: logger}
}

// UpsertJob writes a job keyed by its id, tolerating retries without
// producing duplicates (spec.md §4.7, P7).
func (m *Manager) UpsertJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if err := m.db.Store().Upsert(job.ID, job); err != nil {
		return common.WrapError(common.CodePersistenceTransient, "upserting job", err)
	}
	return nil
}

// GetJob reads a job by id.
func (m *Manager) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := m.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, common.NewError(common.CodeNotFound, fmt.Sprintf("job %q not found", jobID))
		}
		return nil, common.WrapError(common.CodePersistenceTransient, "getting job", err)
	}
	return &job, nil
}

// moduleResultKey is the (job_id, axis_key) composite key spec.md
// §4.7 requires for idempotent per-axis upserts.
func moduleResultKey(jobID string, axisKey models.AxisKey) string {
	return jobID + "/" + string(axisKey)
}

// UpsertModuleResult writes a module result keyed by (job_id, axis_key).
func (m *Manager) UpsertModuleResult(ctx context.Context, result *models.ModuleResult) error {
	if result.JobID == "" || result.AxisKey == "" {
		return fmt.Errorf("job id and axis key are required")
	}
	key := moduleResultKey(result.JobID, result.AxisKey)
	if err := m.db.Store().Upsert(key, result); err != nil {
		return common.WrapError(common.CodePersistenceTransient, "upserting module result", err)
	}
	return nil
}

// ListModuleResults returns every module result recorded for a job,
// in axis-key order for deterministic output.
func (m *Manager) ListModuleResults(ctx context.Context, jobID string) ([]*models.ModuleResult, error) {
	var results []*models.ModuleResult
	query := badgerhold.Where("JobID").Eq(jobID)
	if err := m.db.Store().Find(&results, query); err != nil {
		return nil, common.WrapError(common.CodePersistenceTransient, "listing module results", err)
	}
	return results, nil
}

// UpsertFinalReport writes a job's final report keyed by job id.
func (m *Manager) UpsertFinalReport(ctx context.Context, report *models.FinalReport) error {
	if report.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	if err := m.db.Store().Upsert(report.JobID, report); err != nil {
		return common.WrapError(common.CodePersistenceTransient, "upserting final report", err)
	}
	return nil
}

// GetFinalReport reads a job's final report.
func (m *Manager) GetFinalReport(ctx context.Context, jobID string) (*models.FinalReport, error) {
	var report models.FinalReport
	if err := m.db.Store().Get(jobID, &report); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, common.NewError(common.CodeNotFound, fmt.Sprintf("report for job %q not found", jobID))
		}
		return nil, common.WrapError(common.CodePersistenceTransient, "getting final report", err)
	}
	return &report, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}

var _ interfaces.PersistenceAdapter = (*Manager)(nil)
