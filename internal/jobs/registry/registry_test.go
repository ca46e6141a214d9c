package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/models"
)

func TestCreateBeginCompleteLifecycle(t *testing.T) {
	r := New()
	job, ctx, err := r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic})
	require.NoError(t, err)
	require.Equal(t, models.JobPending, job.Status)
	require.NoError(t, ctx.Err())

	require.NoError(t, r.Begin(job.ID))
	require.NoError(t, r.MarkProgress(job.ID, 50, "modules running"))

	loaded, err := r.Load(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobRunning, loaded.Status)
	require.Equal(t, 50, loaded.Progress)

	require.NoError(t, r.Complete(job.ID))
	loaded, err = r.Load(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, loaded.Status)
	require.Equal(t, 100, loaded.Progress)
	require.True(t, loaded.IsTerminal())
}

func TestTerminalTransitionsAreIdempotent(t *testing.T) {
	r := New()
	job, _, err := r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic})
	require.NoError(t, err)
	require.NoError(t, r.Begin(job.ID))
	require.NoError(t, r.Complete(job.ID))
	require.NoError(t, r.Complete(job.ID))
}

func TestTransitionFromTerminalToAnotherStatusIsIllegalState(t *testing.T) {
	r := New()
	job, _, err := r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic})
	require.NoError(t, err)
	require.NoError(t, r.Begin(job.ID))
	require.NoError(t, r.Complete(job.ID))

	err = r.Fail(job.ID, common.CodeDeadline, "too late")
	require.Error(t, err)
	require.Equal(t, common.CodeIllegalState, common.CodeOf(err))
}

func TestProgressIsMonotonicNonDecreasing(t *testing.T) {
	r := New()
	job, _, err := r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic})
	require.NoError(t, err)
	require.NoError(t, r.Begin(job.ID))
	require.NoError(t, r.MarkProgress(job.ID, 40, ""))
	require.NoError(t, r.MarkProgress(job.ID, 20, "")) // lower, should not regress

	loaded, err := r.Load(job.ID)
	require.NoError(t, err)
	require.Equal(t, 40, loaded.Progress)
}

func TestCancelInvokesCancellationContext(t *testing.T) {
	r := New()
	job, ctx, err := r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic})
	require.NoError(t, err)
	require.NoError(t, r.Begin(job.ID))
	require.NoError(t, r.Cancel(job.ID))

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected job context to be cancelled")
	}

	loaded, err := r.Load(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobCancelled, loaded.Status)
}

func TestSetWarningDoesNotChangeStatus(t *testing.T) {
	r := New()
	job, _, err := r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic})
	require.NoError(t, err)
	require.NoError(t, r.Begin(job.ID))
	require.NoError(t, r.SetWarning(job.ID, common.CodeCrawlPartial, "2 of 5 pages failed to fetch"))

	loaded, err := r.Load(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobRunning, loaded.Status)
	require.Equal(t, string(common.CodeCrawlPartial), loaded.WarningCode)
	require.Equal(t, "2 of 5 pages failed to fetch", loaded.Warning)
}

func TestRemoveCancelsJobContextOnNormalCompletion(t *testing.T) {
	r := New()
	job, ctx, err := r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic})
	require.NoError(t, err)
	require.NoError(t, r.Begin(job.ID))
	require.NoError(t, r.Complete(job.ID))

	select {
	case <-ctx.Done():
		t.Fatal("job context must still be live immediately after Complete")
	default:
	}

	r.Remove(job.ID)

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected Remove to cancel the job context on the normal-completion path")
	}
}

func TestCreateBoundsMaxPagesToPlanCap(t *testing.T) {
	r := New()

	job, _, err := r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic})
	require.NoError(t, err)
	require.Equal(t, models.PlanPageCap(models.PlanBasic), job.MaxPages)

	job, _, err = r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanPro, MaxPages: 3})
	require.NoError(t, err)
	require.Equal(t, 3, job.MaxPages)

	job, _, err = r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: models.PlanBasic, MaxPages: 200})
	require.NoError(t, err)
	require.Equal(t, models.PlanPageCap(models.PlanBasic), job.MaxPages, "a submission may not exceed its plan's page cap")
}

func TestLoadUnknownJobIsNotFound(t *testing.T) {
	r := New()
	_, err := r.Load("job_does_not_exist")
	require.Error(t, err)
	require.Equal(t, common.CodeNotFound, common.CodeOf(err))
}

func TestCreateRejectsInvalidSubmission(t *testing.T) {
	r := New()
	_, _, err := r.Create(t.Context(), models.JobSubmission{URL: "not-a-url", Plan: models.PlanBasic})
	require.Error(t, err)
	require.Equal(t, common.CodeIllegalState, common.CodeOf(err))

	_, _, err = r.Create(t.Context(), models.JobSubmission{URL: "https://example.com", Plan: "unknown-tier"})
	require.Error(t, err)
}
