package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// TestParseCorrection tests method name parsing
func TestParseCorrection(t *testing.T) {
	for _, name := range []string{"none", "bonferroni", "holm", "fdr_bh", "fdr_by"} {
		if _, err := ParseCorrection(name); err != nil {
			t.Errorf("ParseCorrection(%q) failed: %v", name, err)
		}
	}

	if c, err := ParseCorrection(""); err != nil || c != CorrectionNone {
		t.Errorf("empty name should parse to none, got %q / %v", c, err)
	}

	if _, err := ParseCorrection("sidak"); err == nil {
		t.Error("expected error for unknown correction method")
	}
}

// TestCorrectionSingleComparisonNoOp verifies correction over one item
// changes nothing for every method
func TestCorrectionSingleComparisonNoOp(t *testing.T) {
	methods := []Correction{CorrectionNone, CorrectionBonferroni, CorrectionHolm, CorrectionFDRBH, CorrectionFDRBY}
	for _, method := range methods {
		got := method.Adjust([]float64{0.032})
		if len(got) != 1 || !almostEqual(got[0], 0.032, 1e-12) {
			t.Errorf("%s: single-item adjustment should be a no-op, got %v", method, got)
		}
	}
}

// TestBonferroni tests q = min(1, p*m)
func TestBonferroni(t *testing.T) {
	got := CorrectionBonferroni.Adjust([]float64{0.01, 0.3, 0.5})
	want := []float64{0.03, 0.9, 1.0}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("bonferroni[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestHolm tests the step-down adjustment against hand-computed values
func TestHolm(t *testing.T) {
	// Sorted: 0.005, 0.01, 0.03, 0.04; multipliers 4,3,2,1 ->
	// 0.02, 0.03, 0.06, 0.04; running max -> 0.02, 0.03, 0.06, 0.06
	got := CorrectionHolm.Adjust([]float64{0.01, 0.04, 0.03, 0.005})
	want := []float64{0.03, 0.06, 0.06, 0.02}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("holm[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestHolmAtLeastBonferroniPerRank verifies Holm never exceeds Bonferroni
func TestHolmAtLeastBonferroniPerRank(t *testing.T) {
	ps := []float64{0.001, 0.013, 0.04, 0.021, 0.3, 0.008}
	holm := CorrectionHolm.Adjust(ps)
	bonf := CorrectionBonferroni.Adjust(ps)
	for i := range ps {
		if holm[i] > bonf[i]+1e-12 {
			t.Errorf("holm[%d]=%v exceeds bonferroni[%d]=%v", i, holm[i], i, bonf[i])
		}
		if holm[i] < ps[i] {
			t.Errorf("holm[%d]=%v below raw p %v", i, holm[i], ps[i])
		}
	}
}

// TestFDRBH tests the step-up adjustment with the monotonicity pass
func TestFDRBH(t *testing.T) {
	// Sorted: 0.005, 0.01, 0.03, 0.04 -> raw q: 0.02, 0.02, 0.04, 0.04
	got := CorrectionFDRBH.Adjust([]float64{0.01, 0.04, 0.03, 0.005})
	want := []float64{0.02, 0.04, 0.04, 0.02}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("fdr_bh[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestFDRBHMonotonicity verifies the cummin pass: equal step-up bounds
// collapse to the family minimum
func TestFDRBHMonotonicity(t *testing.T) {
	// p*m/rank is 0.04 for every item; q must be 0.04 throughout
	got := CorrectionFDRBH.Adjust([]float64{0.01, 0.02, 0.03, 0.04})
	for i, q := range got {
		if !almostEqual(q, 0.04, 1e-12) {
			t.Errorf("fdr_bh[%d] = %v, want 0.04", i, q)
		}
	}
}

// TestFDRBY tests the harmonic-factor variant
func TestFDRBY(t *testing.T) {
	// m=4, c(m) = 1 + 1/2 + 1/3 + 1/4 = 25/12
	cm := 25.0 / 12.0
	bh := CorrectionFDRBH.Adjust([]float64{0.01, 0.04, 0.03, 0.005})
	got := CorrectionFDRBY.Adjust([]float64{0.01, 0.04, 0.03, 0.005})
	for i := range got {
		want := bh[i] * cm
		if want > 1 {
			want = 1
		}
		if !almostEqual(got[i], want, 1e-12) {
			t.Errorf("fdr_by[%d] = %v, want %v", i, got[i], want)
		}
	}
}

// TestAdjustDeterminism verifies identical inputs adjust identically
func TestAdjustDeterminism(t *testing.T) {
	ps := []float64{0.02, 0.02, 0.01, 0.5}
	first := CorrectionFDRBH.Adjust(ps)
	second := CorrectionFDRBH.Adjust(ps)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("adjustment not deterministic at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

// TestComparisonResultInvariants tests constructor validation
func TestComparisonResultInvariants(t *testing.T) {
	if _, err := NewComparisonResult("A", "B", "welch_ttest", 2.0, 1.5, 4, 0.5, "d", 3, 3); err == nil {
		t.Error("expected error for p-value above 1")
	}
	if _, err := NewComparisonResult("A", "B", "welch_ttest", 2.0, -0.1, 4, 0.5, "d", 3, 3); err == nil {
		t.Error("expected error for negative p-value")
	}
	if _, err := NewComparisonResult("A", "B", "welch_ttest", 2.0, 0.05, 4, 0.5, "d", 0, 3); err == nil {
		t.Error("expected error for zero sample size")
	}

	r, err := NewComparisonResult("A", "B", "welch_ttest", 2.0, 0.05, 4, 0.5, "d", 3, 3)
	if err != nil {
		t.Fatalf("valid result rejected: %v", err)
	}
	if r.Skipped {
		t.Error("computed result should not be skipped")
	}

	skipped := NewSkippedComparison("A", "B", "welch_ttest", WarningInsufficientData)
	if !skipped.Skipped || skipped.SkipReason != WarningInsufficientData {
		t.Error("skipped comparison not flagged correctly")
	}
	if skipped.Label != LabelNotSignificant {
		t.Errorf("skipped comparison label = %q, want %q", skipped.Label, LabelNotSignificant)
	}
}

// TestResultSetLookups tests pair lookup in either order
func TestResultSetLookups(t *testing.T) {
	r1, _ := NewComparisonResult("A", "B", "welch_ttest", 3.1, 0.002, 4, 1.2, "d", 5, 5)
	r1.Label = "**"
	rs := &ResultSet{
		Test:        "welch_ttest",
		Mode:        ModePairs,
		Correction:  CorrectionNone,
		Comparisons: []ComparisonResult{r1, NewSkippedComparison("A", "C", "welch_ttest", WarningInsufficientData)},
	}

	if got := rs.LabelBetween("B", "A"); got != "**" {
		t.Errorf("LabelBetween reversed order = %q, want **", got)
	}
	if got := rs.LabelBetween("A", "C"); got != LabelNotSignificant {
		t.Errorf("LabelBetween skipped pair = %q, want %q", got, LabelNotSignificant)
	}
	if got := rs.LabelBetween("B", "C"); got != LabelNotSignificant {
		t.Errorf("LabelBetween absent pair = %q, want %q", got, LabelNotSignificant)
	}
	if len(rs.Computed()) != 1 {
		t.Errorf("Computed() = %d results, want 1", len(rs.Computed()))
	}
	if rs.SkipCounts()[WarningInsufficientData] != 1 {
		t.Error("SkipCounts missing the skipped pair")
	}
}
