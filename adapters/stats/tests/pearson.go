package tests

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
)

// Pearson tests linear association between two paired numeric columns.
// The correlation coefficient comes from gonum; the two-sided p-value is
// the exact closed form via the regularized incomplete beta function.
type Pearson struct{}

func (t *Pearson) Name() string {
	return "pearson"
}

func (t *Pearson) MinSamples() int {
	return 3
}

func (t *Pearson) Correlate(x, y []float64) Outcome {
	r := stat.Correlation(x, y, nil)
	n := len(x)

	return Outcome{
		Statistic:  r,
		PValue:     pFromR(r, n),
		DF:         float64(n - 2),
		EffectSize: r,
		EffectUnit: "r",
		N:          n,
	}
}

// pFromR converts a correlation coefficient to a two-sided p-value through
// the regularized incomplete beta function:
//
//	df = n - 2
//	t^2 = r^2 * df / ((1 - r)(1 + r))
//	p   = I(df/2, 1/2; df / (df + t^2))
//
// |r| = 1 is exact dependence, p = 0.
func pFromR(r float64, n int) float64 {
	if n < 3 {
		return 1.0
	}
	if math.IsNaN(r) {
		return 1.0
	}
	// Clamp against floating point drift past the unit interval
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	if r == 1 || r == -1 {
		return 0.0
	}

	df := float64(n - 2)
	t2 := r * r * df / ((1 - r) * (1 + r))
	return clampP(mathext.RegIncBeta(df/2, 0.5, df/(df+t2)))
}
