// Package reducer implements the Result Reducer (spec.md §4.6): it
// aggregates twelve Module Results into a single Final Report.
package reducer

import (
	"fmt"
	"time"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/models"
)

// DefaultTopImmediateActions is how many immediate actions the
// executive summary names by default (spec.md §4.6).
const DefaultTopImmediateActions = 5

// Reduce aggregates moduleResults into a FinalReport. It returns a
// CodeInsufficientCoverage error when fewer than
// models.MinRequiredCompletedModules modules completed; the caller is
// responsible for marking the job failed in that case.
func Reduce(jobID, siteURL string, moduleResults []*models.ModuleResult) (*models.FinalReport, error) {
	completed := completedModules(moduleResults)
	if len(completed) < models.MinRequiredCompletedModules {
		return nil, common.NewError(common.CodeInsufficientCoverage,
			fmt.Sprintf("only %d of %d modules completed, need at least %d", len(completed), models.TotalAxisCount, models.MinRequiredCompletedModules))
	}

	report := &models.FinalReport{
		JobID:               jobID,
		URL:                 siteURL,
		TechnicalAnalysis:   make(map[models.AxisKey]*models.AnalysisResult, len(completed)),
		ContributingModules: len(completed),
		CreatedAt:           time.Now(),
	}

	report.OverallScore = averageScore(completed)
	report.OverallLevel = levelForScore(report.OverallScore)
	if anyLevelACritical(completed) && levelRank(report.OverallLevel) > levelRank(models.LevelPartial) {
		report.OverallLevel = models.LevelPartial
	}

	for _, m := range completed {
		report.TechnicalAnalysis[m.AxisKey] = m.Result
		passed, warnings, violations := countCriteria(m.Result)
		report.PassedCount += passed
		report.WarningCount += warnings
		report.ViolationCount += violations
	}

	report.Recommendations = mergeRecommendations(completed)
	report.ExecutiveSummary = buildExecutiveSummary(report)

	return report, nil
}

func completedModules(results []*models.ModuleResult) []*models.ModuleResult {
	var out []*models.ModuleResult
	for _, r := range results {
		if r != nil && r.Status == models.ModuleCompleted && r.Result != nil {
			out = append(out, r)
		}
	}
	return out
}

func averageScore(completed []*models.ModuleResult) float64 {
	if len(completed) == 0 {
		return 0
	}
	var sum int
	for _, m := range completed {
		sum += m.Result.Summary.Score
	}
	return float64(sum) / float64(len(completed))
}

// levelForScore maps a score to a compliance level using the
// thresholds from spec.md §4.6.
func levelForScore(score float64) models.ComplianceLevel {
	switch {
	case score >= 98:
		return models.LevelAAA
	case score >= 80:
		return models.LevelAA
	case score >= 65:
		return models.LevelA
	case score >= 40:
		return models.LevelPartial
	case score >= 20:
		return models.LevelPoor
	default:
		return models.LevelCritical
	}
}

// levelRank orders compliance levels from best (highest rank) to
// worst, so the capping rule can compare "is this level better than
// PARTIAL" without a second switch statement at each call site.
func levelRank(level models.ComplianceLevel) int {
	switch level {
	case models.LevelAAA:
		return 8
	case models.LevelAAPlus:
		return 7
	case models.LevelAA:
		return 6
	case models.LevelAPlus:
		return 5
	case models.LevelA:
		return 4
	case models.LevelPartial:
		return 3
	case models.LevelNone:
		return 2
	case models.LevelPoor:
		return 1
	case models.LevelCritical:
		return 0
	default:
		return -1
	}
}

// anyLevelACritical reports whether a completed module on a WCAG
// level-A axis reports NONE or CRITICAL, triggering the overall-level
// cap at PARTIAL (spec.md §4.6).
func anyLevelACritical(completed []*models.ModuleResult) bool {
	for _, m := range completed {
		if !models.IsLevelAAxis(m.AxisKey) {
			continue
		}
		switch m.Result.Summary.ComplianceLevel {
		case models.LevelNone, models.LevelCritical:
			return true
		}
	}
	return false
}

func countCriteria(result *models.AnalysisResult) (passed, warnings, violations int) {
	for _, c := range result.CriteriaEvaluation {
		switch c.Status {
		case models.CriterionPassed:
			passed++
		case models.CriterionWarning:
			warnings++
		case models.CriterionFailed:
			violations++
		}
	}
	return
}

// mergeRecommendations merges priority actions across modules,
// deduplicating by title and keeping the highest-priority bucket each
// title appears in (immediate > short_term > long_term).
func mergeRecommendations(completed []*models.ModuleResult) models.PriorityActions {
	type slot struct {
		action models.PriorityAction
		bucket int // 0=immediate, 1=short_term, 2=long_term
	}
	seen := make(map[string]*slot)
	var order []string

	consider := func(bucket int, actions []models.PriorityAction) {
		for _, a := range actions {
			if existing, ok := seen[a.Title]; ok {
				if bucket < existing.bucket {
					existing.bucket = bucket
					existing.action = a
				}
				continue
			}
			seen[a.Title] = &slot{action: a, bucket: bucket}
			order = append(order, a.Title)
		}
	}

	for _, m := range completed {
		if m.Result.PriorityActions == nil {
			continue
		}
		consider(0, m.Result.PriorityActions.Immediate)
		consider(1, m.Result.PriorityActions.ShortTerm)
		consider(2, m.Result.PriorityActions.LongTerm)
	}

	var out models.PriorityActions
	for _, title := range order {
		s := seen[title]
		switch s.bucket {
		case 0:
			out.Immediate = append(out.Immediate, s.action)
		case 1:
			out.ShortTerm = append(out.ShortTerm, s.action)
		case 2:
			out.LongTerm = append(out.LongTerm, s.action)
		}
	}
	return out
}

func buildExecutiveSummary(report *models.FinalReport) string {
	top := report.Recommendations.Immediate
	if len(top) > DefaultTopImmediateActions {
		top = top[:DefaultTopImmediateActions]
	}

	summary := fmt.Sprintf(
		"Accessibility audit of %s completed on %s. Overall compliance level: %s (score %.1f, based on %d of %d axes). "+
			"%d criteria passed, %d flagged as warnings, %d flagged as violations.",
		report.URL, report.CreatedAt.Format("2006-01-02"), report.OverallLevel, report.OverallScore,
		report.ContributingModules, models.TotalAxisCount,
		report.PassedCount, report.WarningCount, report.ViolationCount,
	)

	if len(top) > 0 {
		summary += " Top immediate actions:"
		for _, a := range top {
			summary += fmt.Sprintf(" [%s]", a.Title)
		}
	}

	return summary
}
