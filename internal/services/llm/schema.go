package llm

import (
	"encoding/json"
	"fmt"

	"github.com/a11yscan/auditor/internal/models"
)

// legacyAnalysisResult is the German-keyed schema some model
// responses still emit (spec.md §4.5 step 4, §9). ParseAnalysis (via
// tryLegacy) treats it as equivalent to models.AnalysisResult.
type legacyAnalysisResult struct {
	Gesamtbewertung        *legacySummary    `json:"gesamtbewertung"`
	Detailbewertung        []legacyCriterion `json:"detailbewertung"`
	PriorisierteMassnahmen *legacyPriorities `json:"priorisierte_massnahmen"`
}

type legacySummary struct {
	Punktzahl       *float64 `json:"punktzahl"`
	Konformitaet    string   `json:"konformitaetsstufe"`
	Zusammenfassung string   `json:"zusammenfassung"`
}

type legacyCriterion struct {
	KriteriumID string   `json:"kriterium_id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Befund      string   `json:"befund"`
	Auswirkung  string   `json:"auswirkung"`
	Empfehlung  string   `json:"empfehlung"`
	Beispiele   []string `json:"beispiele"`
	Schweregrad string   `json:"schweregrad"`
}

type legacyPriorities struct {
	Sofort      []legacyAction `json:"sofort"`
	Kurzfristig []legacyAction `json:"kurzfristig"`
	Langfristig []legacyAction `json:"langfristig"`
}

type legacyAction struct {
	Titel        string `json:"titel"`
	Beschreibung string `json:"beschreibung"`
}

// canonical is the English-keyed wire schema models.AnalysisResult
// round-trips through; field names match spec.md §3.
type canonical struct {
	Summary *struct {
		Score             *float64 `json:"score"`
		ComplianceLevel   string   `json:"compliance_level"`
		OverallAssessment string   `json:"overall_assessment"`
	} `json:"summary"`
	CriteriaEvaluation []struct {
		CriterionID    string   `json:"criterion_id"`
		Name           string   `json:"name"`
		Status         string   `json:"status"`
		Finding        string   `json:"finding"`
		Impact         string   `json:"impact"`
		Recommendation string   `json:"recommendation"`
		Examples       []string `json:"examples"`
		Severity       string   `json:"severity"`
	} `json:"criteria_evaluation"`
	PriorityActions *struct {
		Immediate []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"immediate"`
		ShortTerm []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"short_term"`
		LongTerm []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"long_term"`
	} `json:"priority_actions"`
}

// ParseAnalysis runs the full parse pipeline from spec.md §4.5 step 3:
// a strict parse attempt, then the tolerant-repair candidates in
// order, stopping at the first candidate that parses and validates.
// It returns the canonical AnalysisResult, or an error when no
// candidate parses and validates.
func ParseAnalysis(raw string) (*models.AnalysisResult, error) {
	if result, err := parseAndValidate(raw); err == nil {
		return result, nil
	}

	for _, candidate := range Repair(raw) {
		if result, err := parseAndValidate(candidate); err == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("no repair candidate produced a valid analysis result")
}

func parseAndValidate(text string) (*models.AnalysisResult, error) {
	result, err := tryCanonical(text)
	if err != nil || result == nil {
		result, err = tryLegacy(text)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("neither canonical nor legacy schema matched")
	}
	if err := validate(result); err != nil {
		return nil, err
	}
	coerce(result)
	return result, nil
}

func tryCanonical(text string) (*models.AnalysisResult, error) {
	var c canonical
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, err
	}
	if c.Summary == nil {
		return nil, fmt.Errorf("canonical schema missing summary")
	}

	result := &models.AnalysisResult{
		Summary: models.Summary{
			ComplianceLevel:   models.ComplianceLevel(c.Summary.ComplianceLevel),
			OverallAssessment: c.Summary.OverallAssessment,
		},
	}
	if c.Summary.Score != nil {
		result.Summary.Score = int(*c.Summary.Score)
	}
	for _, ce := range c.CriteriaEvaluation {
		result.CriteriaEvaluation = append(result.CriteriaEvaluation, models.CriterionEvaluation{
			CriterionID: ce.CriterionID, Name: ce.Name, Status: models.CriterionStatus(ce.Status),
			Finding: ce.Finding, Impact: ce.Impact, Recommendation: ce.Recommendation,
			Examples: ce.Examples, Severity: ce.Severity,
		})
	}
	if c.PriorityActions != nil {
		result.PriorityActions = &models.PriorityActions{}
		for _, a := range c.PriorityActions.Immediate {
			result.PriorityActions.Immediate = append(result.PriorityActions.Immediate, models.PriorityAction{Title: a.Title, Description: a.Description})
		}
		for _, a := range c.PriorityActions.ShortTerm {
			result.PriorityActions.ShortTerm = append(result.PriorityActions.ShortTerm, models.PriorityAction{Title: a.Title, Description: a.Description})
		}
		for _, a := range c.PriorityActions.LongTerm {
			result.PriorityActions.LongTerm = append(result.PriorityActions.LongTerm, models.PriorityAction{Title: a.Title, Description: a.Description})
		}
	}
	return result, nil
}

func tryLegacy(text string) (*models.AnalysisResult, error) {
	var l legacyAnalysisResult
	if err := json.Unmarshal([]byte(text), &l); err != nil {
		return nil, err
	}
	if l.Gesamtbewertung == nil {
		return nil, fmt.Errorf("legacy schema missing gesamtbewertung")
	}

	result := &models.AnalysisResult{
		Summary: models.Summary{
			ComplianceLevel:   models.ComplianceLevel(l.Gesamtbewertung.Konformitaet),
			OverallAssessment: l.Gesamtbewertung.Zusammenfassung,
		},
	}
	if l.Gesamtbewertung.Punktzahl != nil {
		result.Summary.Score = int(*l.Gesamtbewertung.Punktzahl)
	}
	for _, ce := range l.Detailbewertung {
		result.CriteriaEvaluation = append(result.CriteriaEvaluation, models.CriterionEvaluation{
			CriterionID: ce.KriteriumID, Name: ce.Name, Status: models.CriterionStatus(ce.Status),
			Finding: ce.Befund, Impact: ce.Auswirkung, Recommendation: ce.Empfehlung,
			Examples: ce.Beispiele, Severity: ce.Schweregrad,
		})
	}
	if l.PriorisierteMassnahmen != nil {
		result.PriorityActions = &models.PriorityActions{}
		for _, a := range l.PriorisierteMassnahmen.Sofort {
			result.PriorityActions.Immediate = append(result.PriorityActions.Immediate, models.PriorityAction{Title: a.Titel, Description: a.Beschreibung})
		}
		for _, a := range l.PriorisierteMassnahmen.Kurzfristig {
			result.PriorityActions.ShortTerm = append(result.PriorityActions.ShortTerm, models.PriorityAction{Title: a.Titel, Description: a.Beschreibung})
		}
		for _, a := range l.PriorisierteMassnahmen.Langfristig {
			result.PriorityActions.LongTerm = append(result.PriorityActions.LongTerm, models.PriorityAction{Title: a.Titel, Description: a.Beschreibung})
		}
	}
	return result, nil
}

// validate checks the required fields from spec.md §4.5 step 4.
func validate(r *models.AnalysisResult) error {
	if r.Summary.ComplianceLevel == "" {
		return fmt.Errorf("missing summary.compliance_level")
	}
	if r.Summary.OverallAssessment == "" {
		return fmt.Errorf("missing summary.overall_assessment")
	}
	if len(r.CriteriaEvaluation) == 0 {
		return fmt.Errorf("missing criteria_evaluation")
	}
	return nil
}

// coerce clamps an out-of-range score into 0..100 (spec.md §4.5 step 4).
func coerce(r *models.AnalysisResult) {
	if r.Summary.Score < 0 {
		r.Summary.Score = 0
	}
	if r.Summary.Score > 100 {
		r.Summary.Score = 100
	}
}
