// Package testkit generates deterministic synthetic datasets for tests.
// All randomness comes from a seeded linear congruential generator so
// fixtures reproduce exactly across runs and platforms.
package testkit

import (
	"fmt"
	"math"

	"behaviorkit/domain/dataset"
)

// Rand is a small deterministic generator. Not for statistics production
// use, only for reproducible fixtures.
type Rand struct {
	state uint64
}

// NewRand seeds a generator
func NewRand(seed uint64) *Rand {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &Rand{state: seed}
}

// Float64 returns a uniform value in (0, 1)
func (r *Rand) Float64() float64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	// Top 53 bits, shifted into (0,1)
	return (float64(r.state>>11) + 0.5) / (1 << 53)
}

// Normal returns a draw from N(mean, sd) via Box-Muller
func (r *Rand) Normal(mean, sd float64) float64 {
	u1 := r.Float64()
	u2 := r.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + sd*z
}

// GroupSpec describes one condition group of a synthetic dataset
type GroupSpec struct {
	Name string
	Mean float64
	SD   float64
	N    int
}

// GroupedTable builds a subject/condition/measurement table with the given
// groups, in the order given
func GroupedTable(seed uint64, valueCol string, groups ...GroupSpec) (*dataset.Table, error) {
	r := NewRand(seed)
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("group", dataset.RoleCondition).
		AddColumn(valueCol, dataset.RoleMeasurement)

	subject := 0
	for _, g := range groups {
		for i := 0; i < g.N; i++ {
			subject++
			b.AddRow(fmt.Sprintf("s%02d", subject), g.Name, r.Normal(g.Mean, g.SD))
		}
	}
	return b.Build()
}

// CorrelatedTable builds a table of numeric columns where each column k>0
// is column 0 scaled by slope[k-1] plus seeded noise with the given sd
func CorrelatedTable(seed uint64, n int, noiseSD float64, slopes ...float64) (*dataset.Table, error) {
	r := NewRand(seed)
	b := dataset.NewBuilder().AddColumn("subject", dataset.RoleSubject)
	b.AddColumn("x0", dataset.RoleMeasurement)
	for k := range slopes {
		b.AddColumn(fmt.Sprintf("x%d", k+1), dataset.RoleMeasurement)
	}

	for i := 0; i < n; i++ {
		base := float64(i) + r.Normal(0, 0.1)
		cells := make([]any, 0, 2+len(slopes))
		cells = append(cells, fmt.Sprintf("s%02d", i+1), base)
		for _, slope := range slopes {
			cells = append(cells, slope*base+r.Normal(0, noiseSD))
		}
		b.AddRow(cells...)
	}
	return b.Build()
}

// TimecourseTable builds a repeated-measures table: each subject in each
// group is measured at every timepoint, with the group mean shifting by
// drift per timepoint
type TimecourseSpec struct {
	Group string
	Mean  float64
	Drift float64
	SD    float64
	N     int
}

func TimecourseTable(seed uint64, valueCol string, timepoints []float64, groups ...TimecourseSpec) (*dataset.Table, error) {
	r := NewRand(seed)
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("group", dataset.RoleCondition).
		AddColumn("t", dataset.RoleTime).
		AddColumn(valueCol, dataset.RoleMeasurement)

	subject := 0
	for _, g := range groups {
		for i := 0; i < g.N; i++ {
			subject++
			id := fmt.Sprintf("s%02d", subject)
			for ti, tp := range timepoints {
				mean := g.Mean + g.Drift*float64(ti)
				b.AddRow(id, g.Group, tp, r.Normal(mean, g.SD))
			}
		}
	}
	return b.Build()
}
