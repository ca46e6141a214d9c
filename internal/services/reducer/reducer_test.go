package reducer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/models"
)

func completedResult(axisKey models.AxisKey, score int, level models.ComplianceLevel) *models.ModuleResult {
	return &models.ModuleResult{
		AxisKey: axisKey,
		Status:  models.ModuleCompleted,
		Result: &models.AnalysisResult{
			Summary: models.Summary{Score: score, ComplianceLevel: level, OverallAssessment: "x"},
			CriteriaEvaluation: []models.CriterionEvaluation{
				{CriterionID: "1", Status: models.CriterionPassed},
				{CriterionID: "2", Status: models.CriterionWarning},
			},
		},
	}
}

func TestReduceInsufficientCoverage(t *testing.T) {
	results := []*models.ModuleResult{
		completedResult(models.AxisTextAlternatives, 90, models.LevelAA),
		completedResult(models.AxisTimeBasedMedia, 90, models.LevelAA),
	}
	_, err := Reduce("job_1", "https://example.com", results)
	require.Error(t, err)
	require.Equal(t, common.CodeInsufficientCoverage, common.CodeOf(err))
}

func TestReduceAveragesScoreExcludingFailures(t *testing.T) {
	results := []*models.ModuleResult{
		completedResult(models.AxisTextAlternatives, 100, models.LevelAAA),
		completedResult(models.AxisTimeBasedMedia, 80, models.LevelAA),
		completedResult(models.AxisAdaptable, 80, models.LevelAA),
		completedResult(models.AxisDistinguishable, 80, models.LevelAA),
		completedResult(models.AxisKeyboard, 80, models.LevelAA),
		completedResult(models.AxisEnoughTime, 80, models.LevelAA),
		{AxisKey: models.AxisSeizures, Status: models.ModuleFailed},
	}

	report, err := Reduce("job_1", "https://example.com", results)
	require.NoError(t, err)
	require.Equal(t, 6, report.ContributingModules)
	require.InDelta(t, 83.33, report.OverallScore, 0.1)
}

func TestReduceCapsOverallLevelOnLevelACritical(t *testing.T) {
	results := []*models.ModuleResult{
		completedResult(models.AxisTextAlternatives, 95, models.LevelCritical),
		completedResult(models.AxisTimeBasedMedia, 95, models.LevelAA),
		completedResult(models.AxisAdaptable, 95, models.LevelAA),
		completedResult(models.AxisDistinguishable, 95, models.LevelAA),
		completedResult(models.AxisKeyboard, 95, models.LevelAA),
		completedResult(models.AxisEnoughTime, 95, models.LevelAA),
	}

	report, err := Reduce("job_1", "https://example.com", results)
	require.NoError(t, err)
	require.Equal(t, models.LevelPartial, report.OverallLevel)
}

func TestReduceDeduplicatesRecommendationsKeepingHighestPriority(t *testing.T) {
	r1 := completedResult(models.AxisTextAlternatives, 80, models.LevelAA)
	r1.Result.PriorityActions = &models.PriorityActions{
		ShortTerm: []models.PriorityAction{{Title: "Add alt text", Description: "a"}},
	}
	r2 := completedResult(models.AxisTimeBasedMedia, 80, models.LevelAA)
	r2.Result.PriorityActions = &models.PriorityActions{
		Immediate: []models.PriorityAction{{Title: "Add alt text", Description: "b"}},
	}
	results := []*models.ModuleResult{
		r1, r2,
		completedResult(models.AxisAdaptable, 80, models.LevelAA),
		completedResult(models.AxisDistinguishable, 80, models.LevelAA),
		completedResult(models.AxisKeyboard, 80, models.LevelAA),
		completedResult(models.AxisEnoughTime, 80, models.LevelAA),
	}

	report, err := Reduce("job_1", "https://example.com", results)
	require.NoError(t, err)

	want := models.PriorityActions{
		Immediate: []models.PriorityAction{{Title: "Add alt text", Description: "b"}},
	}
	if diff := cmp.Diff(want, report.Recommendations); diff != "" {
		t.Fatalf("merged recommendations mismatch (-want +got):\n%s", diff)
	}
}
