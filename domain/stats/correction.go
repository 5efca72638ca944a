package stats

import (
	"fmt"
	"sort"
)

// Correction names a multiple-comparison correction method. Corrections
// are applied once over the full family of comparisons produced by one
// Annotator call, never per pair.
type Correction string

const (
	CorrectionNone       Correction = "none"
	CorrectionBonferroni Correction = "bonferroni"
	CorrectionHolm       Correction = "holm"
	CorrectionFDRBH      Correction = "fdr_bh" // Benjamini-Hochberg
	CorrectionFDRBY      Correction = "fdr_by" // Benjamini-Yekutieli
)

// ParseCorrection parses a correction method name
func ParseCorrection(s string) (Correction, error) {
	if s == "" {
		return CorrectionNone, nil
	}
	c := Correction(s)
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate checks the correction method is known
func (c Correction) Validate() error {
	switch c {
	case CorrectionNone, CorrectionBonferroni, CorrectionHolm, CorrectionFDRBH, CorrectionFDRBY:
		return nil
	default:
		return fmt.Errorf("unknown correction method %q (known: none, bonferroni, holm, fdr_bh, fdr_by)", c)
	}
}

// Adjust computes corrected p-values for one family of raw p-values,
// returned in input order. All methods are deterministic: ranking uses a
// stable sort, so ties resolve by input position. Adjusting a single
// p-value is a numerical no-op for every method.
func (c Correction) Adjust(ps []float64) []float64 {
	m := len(ps)
	out := make([]float64, m)
	if m == 0 {
		return out
	}

	switch c {
	case CorrectionNone:
		copy(out, ps)
		return out

	case CorrectionBonferroni:
		for i, p := range ps {
			out[i] = clampP(p * float64(m))
		}
		return out

	case CorrectionHolm:
		order := sortOrder(ps)
		// Step-down: multiply by (m - rank + 1), enforce monotone
		// non-decreasing q along ascending p.
		running := 0.0
		for rank, idx := range order {
			q := clampP(ps[idx] * float64(m-rank))
			if q < running {
				q = running
			}
			running = q
			out[idx] = q
		}
		return out

	case CorrectionFDRBH:
		return adjustBH(ps, 1.0)

	case CorrectionFDRBY:
		// Harmonic correction factor c(m) = sum 1/i
		cm := 0.0
		for i := 1; i <= m; i++ {
			cm += 1.0 / float64(i)
		}
		return adjustBH(ps, cm)

	default:
		copy(out, ps)
		return out
	}
}

// adjustBH is the Benjamini-Hochberg step-up: q_(i) = min over j >= i of
// p_(j) * m * factor / j, realized as a cummin pass from the largest p down
func adjustBH(ps []float64, factor float64) []float64 {
	m := len(ps)
	order := sortOrder(ps)
	out := make([]float64, m)

	running := 1.0
	for rank := m - 1; rank >= 0; rank-- {
		idx := order[rank]
		q := clampP(ps[idx] * float64(m) * factor / float64(rank+1))
		if q < running {
			running = q
		}
		out[idx] = running
	}
	return out
}

// sortOrder returns indices ordered by ascending p, stable in input order
func sortOrder(ps []float64) []int {
	order := make([]int, len(ps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ps[order[a]] < ps[order[b]]
	})
	return order
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
