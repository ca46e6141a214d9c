package models

// AxisKey identifies one of the twelve WCAG success-criterion groupings
// the orchestrator evaluates independently.
type AxisKey string

const (
	AxisTextAlternatives AxisKey = "1.1"
	AxisTimeBasedMedia   AxisKey = "1.2"
	AxisAdaptable        AxisKey = "1.3"
	AxisDistinguishable  AxisKey = "1.4"
	AxisKeyboard         AxisKey = "2.1"
	AxisEnoughTime       AxisKey = "2.2"
	AxisSeizures         AxisKey = "2.3"
	AxisNavigable        AxisKey = "2.4"
	AxisReadable         AxisKey = "3.1"
	AxisPredictable      AxisKey = "3.2"
	AxisInputAssistance  AxisKey = "3.3"
	AxisCompatible       AxisKey = "4.1"
)

// AllAxes returns the fixed set of twelve axes in canonical order.
// The orchestrator never hard-codes this list outside this function;
// every other component iterates the axis registry instead.
func AllAxes() []AxisKey {
	return []AxisKey{
		AxisTextAlternatives,
		AxisTimeBasedMedia,
		AxisAdaptable,
		AxisDistinguishable,
		AxisKeyboard,
		AxisEnoughTime,
		AxisSeizures,
		AxisNavigable,
		AxisReadable,
		AxisPredictable,
		AxisInputAssistance,
		AxisCompatible,
	}
}

// MinRequiredCompletedModules is the coverage floor from spec.md §4.6/§7:
// fewer than this many completed modules makes the job InsufficientCoverage.
const MinRequiredCompletedModules = 6

// TotalAxisCount is len(AllAxes()); kept as a constant for invariant checks (P4).
const TotalAxisCount = 12

// IsLevelAAxis reports whether an axis belongs to the WCAG "A" conformance
// level, used by the Reducer's overall-level capping rule (spec.md §4.6).
func IsLevelAAxis(key AxisKey) bool {
	switch key {
	case AxisTextAlternatives, AxisTimeBasedMedia, AxisAdaptable, AxisKeyboard,
		AxisSeizures, AxisNavigable, AxisReadable, AxisPredictable,
		AxisInputAssistance, AxisCompatible:
		return true
	default:
		return false
	}
}
