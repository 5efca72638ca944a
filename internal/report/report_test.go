package report

import (
	"strings"
	"testing"

	"behaviorkit/domain/stats"
)

func sampleResultSet(t *testing.T) *stats.ResultSet {
	t.Helper()
	computed, err := stats.NewComparisonResult("control", "treated", "welch_ttest", -4.2, 0.003, 7.8, -1.9, "d", 5, 5)
	if err != nil {
		t.Fatalf("build result: %v", err)
	}
	computed.QValue = 0.009
	computed.Label = "**"
	skipped := stats.NewSkippedComparison("control", "sham", "welch_ttest", stats.WarningInsufficientData)

	return &stats.ResultSet{
		Test:        "welch_ttest",
		Mode:        stats.ModePairs,
		Correction:  stats.CorrectionFDRBH,
		Alpha:       0.05,
		Comparisons: []stats.ComparisonResult{computed, skipped},
	}
}

func TestMarkdownContainsComparisons(t *testing.T) {
	md := Markdown(sampleResultSet(t))

	for _, want := range []string{
		"welch_ttest",
		"| control | treated |",
		"0.003",
		"d = -1.900",
		"| ** |",
		"skipped (INSUFFICIENT_DATA)",
		"INSUFFICIENT_DATA: 1",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownUncorrectedOmitsQColumn(t *testing.T) {
	rs := sampleResultSet(t)
	rs.Correction = stats.CorrectionNone

	md := Markdown(rs)
	if strings.Contains(md, "| q |") {
		t.Errorf("uncorrected report should not have a q column:\n%s", md)
	}
	if !strings.Contains(md, "Correction: none") {
		t.Errorf("uncorrected report should say so:\n%s", md)
	}
}

func TestHTMLRendersTable(t *testing.T) {
	out := string(HTML(sampleResultSet(t)))

	if !strings.Contains(out, "<table>") {
		t.Errorf("html output missing table:\n%s", out)
	}
	if !strings.Contains(out, "treated") {
		t.Errorf("html output missing group name:\n%s", out)
	}
}
