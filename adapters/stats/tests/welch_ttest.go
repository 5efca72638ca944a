package tests

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// WelchTTest compares two group means without assuming equal variances.
// The default two-sample test: Welch's statistic, Welch-Satterthwaite
// degrees of freedom, two-sided p via the Student's t CDF, Cohen's d
// (pooled sd) effect size.
type WelchTTest struct{}

func (t *WelchTTest) Name() string {
	return "welch_ttest"
}

func (t *WelchTTest) MinGroupSize() int {
	return 2
}

func (t *WelchTTest) Compare(a, b []float64) Outcome {
	n1 := float64(len(a))
	n2 := float64(len(b))
	mean1, mean2 := mean(a), mean(b)
	var1, var2 := sampleVariance(a), sampleVariance(b)

	se := math.Sqrt(var1/n1 + var2/n2)
	tStat := (mean1 - mean2) / se

	// Welch-Satterthwaite equation
	df := math.Pow(var1/n1+var2/n2, 2) /
		(math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1))

	pValue := twoSidedT(tStat, df)

	return Outcome{
		Statistic:  tStat,
		PValue:     pValue,
		DF:         df,
		EffectSize: cohensD(mean1, mean2, var1, var2, n1, n2),
		EffectUnit: "d",
		N:          len(a) + len(b),
	}
}

// twoSidedT is the two-sided p-value for a t statistic at df degrees of
// freedom
func twoSidedT(tStat, df float64) float64 {
	if math.IsNaN(tStat) || math.IsInf(tStat, 0) || df <= 0 {
		return 1.0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clampP(2 * tDist.CDF(-math.Abs(tStat)))
}

// cohensD is the standardized mean difference with pooled sd
func cohensD(mean1, mean2, var1, var2, n1, n2 float64) float64 {
	pooledSD := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2))
	if pooledSD == 0 {
		return 0
	}
	return (mean1 - mean2) / pooledSD
}
