package engine

import (
	"math"
	"reflect"
	"testing"

	"behaviorkit/domain/dataset"
	"behaviorkit/domain/stats"
	"behaviorkit/internal/errors"
	"behaviorkit/internal/logger"
)

func threeGroupTable(t *testing.T) *dataset.Table {
	t.Helper()
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("condition", dataset.RoleCondition).
		AddColumn("score", dataset.RoleMeasurement)

	// Levels appear in order A, B, C
	rows := []struct {
		subject   string
		condition string
		score     float64
	}{
		{"s01", "A", 1}, {"s02", "A", 2}, {"s03", "A", 3},
		{"s04", "B", 10}, {"s05", "B", 11}, {"s06", "B", 12},
		{"s07", "C", 5}, {"s08", "C", 6}, {"s09", "C", 7},
	}
	for _, r := range rows {
		b.AddRow(r.subject, r.condition, r.score)
	}
	tbl, err := b.Build()
	if err != nil {
		t.Fatalf("building fixture table: %v", err)
	}
	return tbl
}

// TestAnnotatePairsAllPairs verifies one result per pair of levels, in
// first-appearance order, with p-values in range
func TestAnnotatePairsAllPairs(t *testing.T) {
	ds := threeGroupTable(t)
	annotator := New(logger.Test(t))

	rs, err := annotator.Annotate(ds, Config{
		Test:        "welch_ttest",
		GroupColumn: "condition",
		ValueColumn: "score",
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	if len(rs.Comparisons) != 3 {
		t.Fatalf("expected 3 comparisons for 3 levels, got %d", len(rs.Comparisons))
	}
	wantPairs := [][2]string{{"A", "B"}, {"A", "C"}, {"B", "C"}}
	for i, want := range wantPairs {
		c := rs.Comparisons[i]
		if c.GroupA != want[0] || c.GroupB != want[1] {
			t.Errorf("comparison %d = %s vs %s, want %s vs %s", i, c.GroupA, c.GroupB, want[0], want[1])
		}
		if c.PValue < 0 || c.PValue > 1 {
			t.Errorf("comparison %d p-value %v outside [0,1]", i, c.PValue)
		}
		if c.Skipped {
			t.Errorf("comparison %d unexpectedly skipped (%s)", i, c.SkipReason)
		}
	}
}

// TestAnnotateSeparatedGroupsGetStrictestLabel covers the A=[1,2,3] vs
// B=[10,11,12] scenario: p well under 0.001, strictest symbol
func TestAnnotateSeparatedGroupsGetStrictestLabel(t *testing.T) {
	ds := threeGroupTable(t)
	annotator := New(logger.Nop())

	rs, err := annotator.Annotate(ds, Config{
		Test:        "welch_ttest",
		GroupColumn: "condition",
		ValueColumn: "score",
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	ab, ok := rs.ByPair("A", "B")
	if !ok {
		t.Fatal("A vs B comparison missing")
	}
	if ab.PValue >= 0.001 {
		t.Errorf("A vs B p = %v, want << 0.001", ab.PValue)
	}
	if ab.Label != "***" {
		t.Errorf("A vs B label = %q, want ***", ab.Label)
	}
}

// TestAnnotateDeterminism verifies identical inputs give identical
// comparisons (RunID and CreatedAt excluded from the guarantee)
func TestAnnotateDeterminism(t *testing.T) {
	ds := threeGroupTable(t)
	annotator := New(logger.Nop())
	cfg := Config{
		Test:        "mann_whitney",
		GroupColumn: "condition",
		ValueColumn: "score",
		Correction:  stats.CorrectionFDRBH,
	}

	first, err := annotator.Annotate(ds, cfg)
	if err != nil {
		t.Fatalf("first Annotate failed: %v", err)
	}
	second, err := annotator.Annotate(ds, cfg)
	if err != nil {
		t.Fatalf("second Annotate failed: %v", err)
	}

	if !reflect.DeepEqual(first.Comparisons, second.Comparisons) {
		t.Errorf("comparisons differ across identical calls:\n%+v\n%+v", first.Comparisons, second.Comparisons)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Error("dataset fingerprint not deterministic")
	}
	if first.RunID == second.RunID {
		t.Error("each call should mint a fresh RunID")
	}
}

// TestAnnotateSkipsSmallGroup verifies a group below the test minimum is
// reported skipped while all other pairs still complete
func TestAnnotateSkipsSmallGroup(t *testing.T) {
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("condition", dataset.RoleCondition).
		AddColumn("score", dataset.RoleMeasurement)
	b.AddRow("s01", "A", 1.0).AddRow("s02", "A", 2.0).AddRow("s03", "A", 3.0)
	b.AddRow("s04", "B", 10.0).AddRow("s05", "B", 11.0).AddRow("s06", "B", 12.0)
	b.AddRow("s07", "C", 5.0) // single observation
	ds, err := b.Build()
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}

	rs, err := New(logger.Test(t)).Annotate(ds, Config{
		Test:        "welch_ttest",
		GroupColumn: "condition",
		ValueColumn: "score",
	})
	if err != nil {
		t.Fatalf("Annotate should not fail on a small group: %v", err)
	}

	if len(rs.Comparisons) != 3 {
		t.Fatalf("expected 3 requested comparisons, got %d", len(rs.Comparisons))
	}

	ab, _ := rs.ByPair("A", "B")
	if ab.Skipped {
		t.Error("A vs B should have completed")
	}
	ac, _ := rs.ByPair("A", "C")
	if !ac.Skipped || ac.SkipReason != stats.WarningInsufficientData {
		t.Errorf("A vs C should be skipped INSUFFICIENT_DATA, got %+v", ac)
	}
	bc, _ := rs.ByPair("B", "C")
	if !bc.Skipped || bc.SkipReason != stats.WarningInsufficientData {
		t.Errorf("B vs C should be skipped INSUFFICIENT_DATA, got %+v", bc)
	}
}

// TestAnnotateSkipsZeroVariance verifies two constant groups skip as
// LOW_VARIANCE instead of failing
func TestAnnotateSkipsZeroVariance(t *testing.T) {
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("condition", dataset.RoleCondition).
		AddColumn("score", dataset.RoleMeasurement)
	for _, s := range []string{"s01", "s02", "s03"} {
		b.AddRow(s, "A", 4.0)
	}
	for _, s := range []string{"s04", "s05", "s06"} {
		b.AddRow(s, "B", 9.0)
	}
	ds, err := b.Build()
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}

	rs, err := New(logger.Nop()).Annotate(ds, Config{
		Test:        "welch_ttest",
		GroupColumn: "condition",
		ValueColumn: "score",
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	ab := rs.Comparisons[0]
	if !ab.Skipped || ab.SkipReason != stats.WarningLowVariance {
		t.Errorf("constant groups should skip LOW_VARIANCE, got %+v", ab)
	}
}

// TestAnnotateSkipsHighMissing verifies the missing-rate cap
func TestAnnotateSkipsHighMissing(t *testing.T) {
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("condition", dataset.RoleCondition).
		AddColumn("score", dataset.RoleMeasurement)
	b.AddRow("s01", "A", 1.0).AddRow("s02", "A", math.NaN()).AddRow("s03", "A", math.NaN()).AddRow("s04", "A", 2.0)
	b.AddRow("s05", "B", 4.0).AddRow("s06", "B", 5.0).AddRow("s07", "B", 6.0).AddRow("s08", "B", 7.0)
	ds, err := b.Build()
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}

	rs, err := New(logger.Nop()).Annotate(ds, Config{
		Test:        "welch_ttest",
		GroupColumn: "condition",
		ValueColumn: "score",
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if !rs.Comparisons[0].Skipped || rs.Comparisons[0].SkipReason != stats.WarningHighMissing {
		t.Errorf("50%% missing should skip HIGH_MISSING, got %+v", rs.Comparisons[0])
	}
}

// TestAnnotateConfigurationErrors verifies atomic validation failures
func TestAnnotateConfigurationErrors(t *testing.T) {
	ds := threeGroupTable(t)
	annotator := New(logger.Nop())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown test", Config{Test: "anova", GroupColumn: "condition", ValueColumn: "score"}},
		{"absent group column", Config{Test: "welch_ttest", GroupColumn: "block", ValueColumn: "score"}},
		{"absent value column", Config{Test: "welch_ttest", GroupColumn: "condition", ValueColumn: "rt"}},
		{"group column wrong role", Config{Test: "welch_ttest", GroupColumn: "score", ValueColumn: "score"}},
		{"bad scale", Config{Test: "welch_ttest", GroupColumn: "condition", ValueColumn: "score",
			Scale: stats.ThresholdScale{{MaxP: 0.05, Label: "*"}, {MaxP: 0.01, Label: "**"}}}},
		{"bad correction", Config{Test: "welch_ttest", GroupColumn: "condition", ValueColumn: "score",
			Correction: stats.Correction("sidak")}},
		{"bad alpha", Config{Test: "welch_ttest", GroupColumn: "condition", ValueColumn: "score", Alpha: 1.5}},
		{"unknown mode", Config{Test: "welch_ttest", Mode: stats.Mode("triples"), GroupColumn: "condition", ValueColumn: "score"}},
	}

	for _, test := range tests {
		rs, err := annotator.Annotate(ds, test.cfg)
		if err == nil {
			t.Errorf("%s: expected configuration error, got result with %d comparisons", test.name, len(rs.Comparisons))
			continue
		}
		if !errors.IsConfiguration(err) {
			t.Errorf("%s: expected CONFIG_INVALID, got %v (code %s)", test.name, err, errors.GetCode(err))
		}
		if rs != nil {
			t.Errorf("%s: no partial output allowed on configuration error", test.name)
		}
	}
}

// TestAnnotateMatrixMode verifies upper-triangle enumeration over numeric
// columns with pairwise-complete handling
func TestAnnotateMatrixMode(t *testing.T) {
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("x", dataset.RoleMeasurement).
		AddColumn("y", dataset.RoleMeasurement).
		AddColumn("z", dataset.RoleMeasurement)
	data := [][3]float64{
		{1, 2, 9}, {2, 4, 7}, {3, 6, 8}, {4, 8, 2}, {5, 10, 4}, {6, 12, 1},
	}
	for i, row := range data {
		b.AddRow("s"+string(rune('a'+i)), row[0], row[1], row[2])
	}
	ds, err := b.Build()
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}

	rs, err := New(logger.Test(t)).Annotate(ds, Config{
		Test: "pearson",
		Mode: stats.ModeMatrix,
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	if len(rs.Comparisons) != 3 {
		t.Fatalf("expected 3 column pairs, got %d", len(rs.Comparisons))
	}
	xy := rs.Comparisons[0]
	if xy.GroupA != "x" || xy.GroupB != "y" {
		t.Errorf("first pair = %s vs %s, want x vs y", xy.GroupA, xy.GroupB)
	}
	// y = 2x exactly
	if math.Abs(xy.Statistic-1.0) > 1e-9 || xy.PValue != 0 {
		t.Errorf("x vs y should be perfectly correlated, got r=%v p=%v", xy.Statistic, xy.PValue)
	}
	if xy.Label != "***" {
		t.Errorf("x vs y label = %q, want ***", xy.Label)
	}
}

// TestAnnotateCorrectionFamily verifies the correction runs once over the
// whole family of computed comparisons, skips excluded
func TestAnnotateCorrectionFamily(t *testing.T) {
	ds := threeGroupTable(t)
	annotator := New(logger.Nop())

	raw, err := annotator.Annotate(ds, Config{
		Test:        "welch_ttest",
		GroupColumn: "condition",
		ValueColumn: "score",
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	corrected, err := annotator.Annotate(ds, Config{
		Test:        "welch_ttest",
		GroupColumn: "condition",
		ValueColumn: "score",
		Correction:  stats.CorrectionBonferroni,
	})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	m := float64(len(raw.Comparisons))
	for i := range corrected.Comparisons {
		c := corrected.Comparisons[i]
		want := raw.Comparisons[i].PValue * m
		if want > 1 {
			want = 1
		}
		if math.Abs(c.QValue-want) > 1e-12 {
			t.Errorf("comparison %d q = %v, want bonferroni %v over family of %v", i, c.QValue, want, m)
		}
		// Labels derive from the corrected value
		if got := corrected.Scale.LabelFor(c.QValue); c.Label != got {
			t.Errorf("comparison %d label %q does not match corrected p %v", i, c.Label, c.QValue)
		}
	}
	if !corrected.Corrected() {
		t.Error("ResultSet should report correction applied")
	}
}
