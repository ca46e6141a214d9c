package badger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "badger")
	db, err := Open(common.StorageConfig{Path: dir}, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewManager(db, arbor.NewLogger())
}

func TestUpsertJobIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	job := &models.Job{ID: "job_1", URL: "https://example.com", Status: models.JobPending, CreatedAt: time.Now(), UpdatedAt: time.Now()}

	require.NoError(t, m.UpsertJob(t.Context(), job))
	job.Status = models.JobRunning
	require.NoError(t, m.UpsertJob(t.Context(), job))

	loaded, err := m.GetJob(t.Context(), "job_1")
	require.NoError(t, err)
	require.Equal(t, models.JobRunning, loaded.Status)
}

func TestGetJobNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.GetJob(t.Context(), "missing")
	require.Error(t, err)
	require.Equal(t, common.CodeNotFound, common.CodeOf(err))
}

func TestModuleResultsKeyedByJobAndAxis(t *testing.T) {
	m := newTestManager(t)
	result := &models.ModuleResult{JobID: "job_1", AxisKey: models.AxisTextAlternatives, Status: models.ModuleCompleted, CreatedAt: time.Now()}
	require.NoError(t, m.UpsertModuleResult(t.Context(), result))

	other := &models.ModuleResult{JobID: "job_1", AxisKey: models.AxisAdaptable, Status: models.ModuleCompleted, CreatedAt: time.Now()}
	require.NoError(t, m.UpsertModuleResult(t.Context(), other))

	results, err := m.ListModuleResults(t.Context(), "job_1")
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestFinalReportRoundTrip(t *testing.T) {
	m := newTestManager(t)
	report := &models.FinalReport{JobID: "job_1", URL: "https://example.com", OverallLevel: models.LevelAA, CreatedAt: time.Now()}
	require.NoError(t, m.UpsertFinalReport(t.Context(), report))

	loaded, err := m.GetFinalReport(t.Context(), "job_1")
	require.NoError(t, err)
	require.Equal(t, models.LevelAA, loaded.OverallLevel)
}
