package tests

import (
	"strings"

	"behaviorkit/internal/errors"

	"github.com/montanaflynn/stats"
)

// Outcome is the raw result of one hypothesis test before thresholding
// and correction. PValue is always clamped to [0,1].
type Outcome struct {
	Statistic  float64
	PValue     float64
	DF         float64
	EffectSize float64
	EffectUnit string
	N          int
}

// TwoSample compares the measurements of two independent groups
type TwoSample interface {
	Name() string
	// MinGroupSize is the smallest per-group n the test accepts; groups
	// below it are skipped upstream, not failed
	MinGroupSize() int
	Compare(a, b []float64) Outcome
}

// Correlation tests the association of two paired numeric columns
type Correlation interface {
	Name() string
	MinSamples() int
	Correlate(x, y []float64) Outcome
}

var twoSampleRegistry = map[string]TwoSample{
	"welch_ttest":   &WelchTTest{},
	"student_ttest": &StudentTTest{},
	"mann_whitney":  &MannWhitney{},
}

var correlationRegistry = map[string]Correlation{
	"pearson":  &Pearson{},
	"spearman": &Spearman{},
}

// TwoSampleForName resolves a two-sample test by name
func TwoSampleForName(name string) (TwoSample, error) {
	if t, ok := twoSampleRegistry[name]; ok {
		return t, nil
	}
	return nil, errors.ConfigInvalidf("unknown two-sample test %q (known: %s)", name, strings.Join(TwoSampleNames(), ", "))
}

// CorrelationForName resolves a correlation test by name
func CorrelationForName(name string) (Correlation, error) {
	if t, ok := correlationRegistry[name]; ok {
		return t, nil
	}
	return nil, errors.ConfigInvalidf("unknown correlation test %q (known: %s)", name, strings.Join(CorrelationNames(), ", "))
}

// TwoSampleNames lists registered two-sample test names, sorted
func TwoSampleNames() []string {
	return sortedKeys(twoSampleRegistry)
}

// CorrelationNames lists registered correlation test names, sorted
func CorrelationNames() []string {
	return sortedKeys(correlationRegistry)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	for i := 0; i < len(names)-1; i++ {
		for j := i + 1; j < len(names); j++ {
			if names[i] > names[j] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	return names
}

// Descriptive helpers shared by the tests. Inputs are pre-validated
// upstream (length over the test minimum, NaN already dropped) so the
// library error paths cannot trigger.

func mean(data []float64) float64 {
	m, _ := stats.Mean(data)
	return m
}

func sampleVariance(data []float64) float64 {
	v, _ := stats.SampleVariance(data)
	return v
}

func clampP(p float64) float64 {
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
