package tests

import (
	"math"
)

// StudentTTest is the classical pooled-variance two-sample t-test.
// Assumes equal group variances; prefer WelchTTest when that is in doubt.
type StudentTTest struct{}

func (t *StudentTTest) Name() string {
	return "student_ttest"
}

func (t *StudentTTest) MinGroupSize() int {
	return 2
}

func (t *StudentTTest) Compare(a, b []float64) Outcome {
	n1 := float64(len(a))
	n2 := float64(len(b))
	mean1, mean2 := mean(a), mean(b)
	var1, var2 := sampleVariance(a), sampleVariance(b)

	df := n1 + n2 - 2
	pooledVar := ((n1-1)*var1 + (n2-1)*var2) / df
	se := math.Sqrt(pooledVar * (1/n1 + 1/n2))
	tStat := (mean1 - mean2) / se

	return Outcome{
		Statistic:  tStat,
		PValue:     twoSidedT(tStat, df),
		DF:         df,
		EffectSize: cohensD(mean1, mean2, var1, var2, n1, n2),
		EffectUnit: "d",
		N:          len(a) + len(b),
	}
}
