package stats

import (
	"fmt"

	"behaviorkit/domain/core"
)

// Mode selects how comparisons are enumerated
type Mode string

const (
	// ModePairs compares every pair of levels of one condition column
	ModePairs Mode = "pairs"
	// ModeMatrix correlates every pair of numeric columns
	ModeMatrix Mode = "matrix"
)

// ParseMode parses a comparison mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePairs, ModeMatrix:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown comparison mode %q (known: pairs, matrix)", s)
	}
}

// WarningCode explains why a comparison was skipped rather than computed
type WarningCode string

const (
	WarningInsufficientData WarningCode = "INSUFFICIENT_DATA" // group below the test's minimum size
	WarningLowVariance      WarningCode = "LOW_VARIANCE"      // degenerate zero-variance input
	WarningHighMissing      WarningCode = "HIGH_MISSING"      // missing rate above the configured cap
)

// ComparisonResult holds one statistical comparison between two groups
// (pairs mode) or two numeric columns (matrix mode).
// INVARIANTS:
// - PValue always in [0.0, 1.0] for non-skipped results
// - NA and NB (samples actually used) > 0 for non-skipped results
// - QValue == 0 means no correction was applied to this result
type ComparisonResult struct {
	GroupA     string      `json:"group_a"`            // first level / column name
	GroupB     string      `json:"group_b"`            // second level / column name
	TestName   string      `json:"test_name"`          // e.g. "welch_ttest", "pearson"
	Statistic  float64     `json:"statistic"`          // test statistic (t, U, r, ...)
	PValue     float64     `json:"p_value"`            // uncorrected p-value
	QValue     float64     `json:"q_value,omitempty"`  // corrected p-value (0 = unset)
	DF         float64     `json:"df,omitempty"`       // degrees of freedom where defined
	EffectSize float64     `json:"effect_size"`        // standardized effect
	EffectUnit string      `json:"effect_unit"`        // "d", "r", "rb"
	NA         int         `json:"n_a"`                // samples used from group A
	NB         int         `json:"n_b"`                // samples used from group B
	Label      string      `json:"label"`              // significance label from the scale
	Skipped    bool        `json:"skipped"`            // true when the comparison was not computed
	SkipReason WarningCode `json:"skip_reason,omitempty"`
}

// NewComparisonResult constructs a computed result with invariant validation
func NewComparisonResult(groupA, groupB, testName string, statistic, pValue, df, effectSize float64, effectUnit string, nA, nB int) (ComparisonResult, error) {
	if pValue < 0 || pValue > 1 {
		return ComparisonResult{}, fmt.Errorf("p-value %v outside [0,1] for %s vs %s", pValue, groupA, groupB)
	}
	if nA <= 0 || nB <= 0 {
		return ComparisonResult{}, fmt.Errorf("non-positive sample size (%d, %d) for %s vs %s", nA, nB, groupA, groupB)
	}
	return ComparisonResult{
		GroupA:     groupA,
		GroupB:     groupB,
		TestName:   testName,
		Statistic:  statistic,
		PValue:     pValue,
		DF:         df,
		EffectSize: effectSize,
		EffectUnit: effectUnit,
		NA:         nA,
		NB:         nB,
	}, nil
}

// NewSkippedComparison constructs a placeholder for a comparison that was
// requested but could not be computed. Skips are reported, never raised.
func NewSkippedComparison(groupA, groupB, testName string, reason WarningCode) ComparisonResult {
	return ComparisonResult{
		GroupA:     groupA,
		GroupB:     groupB,
		TestName:   testName,
		Label:      LabelNotSignificant,
		Skipped:    true,
		SkipReason: reason,
	}
}

// EffectiveP returns the p-value labels should be derived from: the
// corrected value when a correction was applied, else the raw p-value
func (r ComparisonResult) EffectiveP(corrected bool) float64 {
	if corrected && r.QValue > 0 {
		return r.QValue
	}
	return r.PValue
}

// ResultSet is the Annotator's full output for one call: one element per
// requested comparison (skips included), in the deterministic order derived
// from input group ordering, plus an echo of the request that produced it.
type ResultSet struct {
	RunID       core.RunID              `json:"run_id"`
	Fingerprint core.DatasetFingerprint `json:"dataset_fingerprint"`
	Test        string                  `json:"test"`
	Mode        Mode                    `json:"mode"`
	Correction  Correction              `json:"correction"`
	Alpha       float64                 `json:"alpha"`
	Scale       ThresholdScale          `json:"scale"`
	CreatedAt   core.Timestamp          `json:"created_at"`
	Comparisons []ComparisonResult      `json:"comparisons"`
}

// Corrected reports whether a multiple-comparison correction was applied
func (rs *ResultSet) Corrected() bool {
	return rs.Correction != CorrectionNone
}

// ByPair finds the comparison between two groups, in either order
func (rs *ResultSet) ByPair(a, b string) (ComparisonResult, bool) {
	for _, c := range rs.Comparisons {
		if (c.GroupA == a && c.GroupB == b) || (c.GroupA == b && c.GroupB == a) {
			return c, true
		}
	}
	return ComparisonResult{}, false
}

// LabelBetween returns the significance label between two groups, or
// the not-significant label when the pair is absent or skipped
func (rs *ResultSet) LabelBetween(a, b string) string {
	c, ok := rs.ByPair(a, b)
	if !ok || c.Skipped {
		return LabelNotSignificant
	}
	return c.Label
}

// Computed returns the non-skipped comparisons, preserving order
func (rs *ResultSet) Computed() []ComparisonResult {
	out := make([]ComparisonResult, 0, len(rs.Comparisons))
	for _, c := range rs.Comparisons {
		if !c.Skipped {
			out = append(out, c)
		}
	}
	return out
}

// SkipCounts tallies skipped comparisons by reason
func (rs *ResultSet) SkipCounts() map[WarningCode]int {
	counts := make(map[WarningCode]int)
	for _, c := range rs.Comparisons {
		if c.Skipped {
			counts[c.SkipReason]++
		}
	}
	return counts
}
