package engine

import (
	"math"

	"behaviorkit/adapters/stats/tests"
	"behaviorkit/domain/core"
	"behaviorkit/domain/dataset"
	"behaviorkit/domain/stats"
	"behaviorkit/internal/errors"
	"behaviorkit/internal/logger"
)

// DefaultMaxMissingRate caps the tolerated fraction of missing cells per
// side of a comparison before it is skipped as HIGH_MISSING
const DefaultMaxMissingRate = 0.3

// Config specifies one Annotate call
type Config struct {
	// Test names the statistical test: a two-sample test in pairs mode,
	// a correlation test in matrix mode
	Test string `yaml:"test"`
	// Mode selects comparison enumeration (default pairs)
	Mode stats.Mode `yaml:"mode"`

	// Pairs mode: condition column defining groups, measurement column
	// supplying values
	GroupColumn string `yaml:"group_column"`
	ValueColumn string `yaml:"value_column"`

	// Matrix mode: numeric columns to correlate (empty = all)
	Columns []string `yaml:"columns"`

	Correction stats.Correction     `yaml:"correction"`
	Alpha      float64              `yaml:"alpha"`
	Scale      stats.ThresholdScale `yaml:"scale"`

	MaxMissingRate float64 `yaml:"max_missing_rate"`
}

// withDefaults returns a copy with zero values filled in
func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = stats.ModePairs
	}
	if c.Correction == "" {
		c.Correction = stats.CorrectionNone
	}
	if c.Alpha == 0 {
		c.Alpha = 0.05
	}
	if c.Scale == nil {
		c.Scale = stats.DefaultScale()
	}
	if c.MaxMissingRate == 0 {
		c.MaxMissingRate = DefaultMaxMissingRate
	}
	return c
}

// Annotator turns a dataset plus a comparison config into a ResultSet:
// one result per requested comparison with p-values, family-wise corrected
// q-values, and significance labels. Each call is a pure function of its
// inputs; the Annotator itself holds no state beyond a logger.
type Annotator struct {
	log logger.Logger
}

// New creates an Annotator. Pass logger.Nop() for silent library use.
func New(log logger.Logger) *Annotator {
	if log == nil {
		log = logger.Nop()
	}
	return &Annotator{log: log}
}

// Annotate runs the configured comparisons over the dataset.
//
// Validation is atomic: any configuration problem fails before the first
// comparison is computed, with no partial output. Per-comparison data
// problems (a group below the test minimum, excessive missingness, zero
// variance) are never errors: the comparison is emitted flagged Skipped
// with a reason, and all other comparisons complete.
func (a *Annotator) Annotate(ds *dataset.Table, cfg Config) (*stats.ResultSet, error) {
	cfg = cfg.withDefaults()

	rs := &stats.ResultSet{
		Test:        cfg.Test,
		Mode:        cfg.Mode,
		Correction:  cfg.Correction,
		Alpha:       cfg.Alpha,
		Scale:       cfg.Scale,
		Fingerprint: ds.Fingerprint(),
	}

	var err error
	switch cfg.Mode {
	case stats.ModePairs:
		rs.Comparisons, err = a.annotatePairs(ds, cfg)
	case stats.ModeMatrix:
		rs.Comparisons, err = a.annotateMatrix(ds, cfg)
	default:
		return nil, errors.ConfigInvalidf("unknown comparison mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	a.applyCorrection(rs, cfg)
	a.applyLabels(rs, cfg)

	rs.RunID = core.NewRunID()
	rs.CreatedAt = core.Now()

	a.log.Debugw("annotation complete",
		"test", cfg.Test,
		"mode", cfg.Mode,
		"comparisons", len(rs.Comparisons),
		"skipped", len(rs.Comparisons)-len(rs.Computed()),
	)
	return rs, nil
}

func (a *Annotator) annotatePairs(ds *dataset.Table, cfg Config) ([]stats.ComparisonResult, error) {
	test, err := tests.TwoSampleForName(cfg.Test)
	if err != nil {
		return nil, err
	}
	if err := a.validateCommon(cfg); err != nil {
		return nil, err
	}
	if !ds.HasColumn(cfg.GroupColumn) {
		return nil, errors.ConfigInvalidf("grouping column %q not in dataset", cfg.GroupColumn)
	}
	if role, _ := ds.ColumnRole(cfg.GroupColumn); role != dataset.RoleCondition {
		return nil, errors.ConfigInvalidf("grouping column %q is %s, need condition", cfg.GroupColumn, role)
	}
	if !ds.HasColumn(cfg.ValueColumn) {
		return nil, errors.ConfigInvalidf("value column %q not in dataset", cfg.ValueColumn)
	}
	if role, _ := ds.ColumnRole(cfg.ValueColumn); role != dataset.RoleMeasurement {
		return nil, errors.ConfigInvalidf("value column %q is %s, need measurement", cfg.ValueColumn, role)
	}

	levels, err := ds.Levels(cfg.GroupColumn)
	if err != nil {
		return nil, errors.Wrap(err, "resolving group levels")
	}
	groups, err := ds.GroupValues(cfg.ValueColumn, cfg.GroupColumn)
	if err != nil {
		return nil, errors.Wrap(err, "splitting values by group")
	}

	// One result per unordered pair, enumerated in first-appearance
	// order of the levels
	results := make([]stats.ComparisonResult, 0, len(levels)*(len(levels)-1)/2)
	for i := 0; i < len(levels)-1; i++ {
		for j := i + 1; j < len(levels); j++ {
			results = append(results, a.comparePair(test, cfg, levels[i], levels[j], groups[levels[i]], groups[levels[j]]))
		}
	}
	return results, nil
}

func (a *Annotator) comparePair(test tests.TwoSample, cfg Config, levelA, levelB string, rawA, rawB []float64) stats.ComparisonResult {
	missA := missingRate(rawA)
	missB := missingRate(rawB)
	if missA > cfg.MaxMissingRate || missB > cfg.MaxMissingRate {
		a.log.Debugw("comparison skipped", "pair", levelA+" vs "+levelB, "reason", stats.WarningHighMissing)
		return stats.NewSkippedComparison(levelA, levelB, test.Name(), stats.WarningHighMissing)
	}

	va := dropMissing(rawA)
	vb := dropMissing(rawB)
	if len(va) < test.MinGroupSize() || len(vb) < test.MinGroupSize() {
		a.log.Debugw("comparison skipped", "pair", levelA+" vs "+levelB, "reason", stats.WarningInsufficientData)
		return stats.NewSkippedComparison(levelA, levelB, test.Name(), stats.WarningInsufficientData)
	}
	if isConstant(va) && isConstant(vb) {
		a.log.Debugw("comparison skipped", "pair", levelA+" vs "+levelB, "reason", stats.WarningLowVariance)
		return stats.NewSkippedComparison(levelA, levelB, test.Name(), stats.WarningLowVariance)
	}

	out := test.Compare(va, vb)
	result, err := stats.NewComparisonResult(levelA, levelB, test.Name(),
		out.Statistic, out.PValue, out.DF, out.EffectSize, out.EffectUnit, len(va), len(vb))
	if err != nil {
		// Numerically degenerate input the preconditions did not catch
		a.log.Warnw("comparison degenerate", "pair", levelA+" vs "+levelB, "err", err)
		return stats.NewSkippedComparison(levelA, levelB, test.Name(), stats.WarningLowVariance)
	}
	return result
}

func (a *Annotator) annotateMatrix(ds *dataset.Table, cfg Config) ([]stats.ComparisonResult, error) {
	test, err := tests.CorrelationForName(cfg.Test)
	if err != nil {
		return nil, err
	}
	if err := a.validateCommon(cfg); err != nil {
		return nil, err
	}

	cols := cfg.Columns
	if len(cols) == 0 {
		cols = ds.NumericColumns()
	}
	if len(cols) < 2 {
		return nil, errors.ConfigInvalid("matrix mode needs at least two numeric columns")
	}
	series := make(map[string][]float64, len(cols))
	for _, name := range cols {
		if !ds.HasColumn(name) {
			return nil, errors.ConfigInvalidf("matrix column %q not in dataset", name)
		}
		role, _ := ds.ColumnRole(name)
		if role != dataset.RoleMeasurement {
			return nil, errors.ConfigInvalidf("matrix column %q is %s, need measurement", name, role)
		}
		vals, err := ds.Values(name)
		if err != nil {
			return nil, errors.Wrap(err, "reading matrix column")
		}
		series[name] = vals
	}

	// Upper-triangle pairs in table column order
	results := make([]stats.ComparisonResult, 0, len(cols)*(len(cols)-1)/2)
	for i := 0; i < len(cols)-1; i++ {
		for j := i + 1; j < len(cols); j++ {
			results = append(results, a.correlatePair(test, cfg, cols[i], cols[j], series[cols[i]], series[cols[j]]))
		}
	}
	return results, nil
}

func (a *Annotator) correlatePair(test tests.Correlation, cfg Config, colX, colY string, rawX, rawY []float64) stats.ComparisonResult {
	// Pairwise-complete: drop rows missing either value
	n := len(rawX)
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(rawX[i]) || math.IsNaN(rawY[i]) {
			continue
		}
		x = append(x, rawX[i])
		y = append(y, rawY[i])
	}

	if n > 0 && float64(n-len(x))/float64(n) > cfg.MaxMissingRate {
		return stats.NewSkippedComparison(colX, colY, test.Name(), stats.WarningHighMissing)
	}
	if len(x) < test.MinSamples() {
		return stats.NewSkippedComparison(colX, colY, test.Name(), stats.WarningInsufficientData)
	}
	if isConstant(x) || isConstant(y) {
		return stats.NewSkippedComparison(colX, colY, test.Name(), stats.WarningLowVariance)
	}

	out := test.Correlate(x, y)
	result, err := stats.NewComparisonResult(colX, colY, test.Name(),
		out.Statistic, out.PValue, out.DF, out.EffectSize, out.EffectUnit, len(x), len(y))
	if err != nil {
		a.log.Warnw("correlation degenerate", "pair", colX+" vs "+colY, "err", err)
		return stats.NewSkippedComparison(colX, colY, test.Name(), stats.WarningLowVariance)
	}
	return result
}

func (a *Annotator) validateCommon(cfg Config) error {
	if err := cfg.Scale.Validate(); err != nil {
		return errors.Wrap(errors.ConfigInvalid(err.Error()), "invalid threshold scale")
	}
	if err := cfg.Correction.Validate(); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		return errors.ConfigInvalidf("alpha %v outside (0,1)", cfg.Alpha)
	}
	if cfg.MaxMissingRate < 0 || cfg.MaxMissingRate > 1 {
		return errors.ConfigInvalidf("max missing rate %v outside [0,1]", cfg.MaxMissingRate)
	}
	return nil
}

// applyCorrection adjusts p-values once over the full family of computed
// comparisons produced by this call. Skipped comparisons stay unset.
func (a *Annotator) applyCorrection(rs *stats.ResultSet, cfg Config) {
	if cfg.Correction == stats.CorrectionNone {
		return
	}
	idx := make([]int, 0, len(rs.Comparisons))
	ps := make([]float64, 0, len(rs.Comparisons))
	for i, c := range rs.Comparisons {
		if !c.Skipped {
			idx = append(idx, i)
			ps = append(ps, c.PValue)
		}
	}
	qs := cfg.Correction.Adjust(ps)
	for k, i := range idx {
		rs.Comparisons[i].QValue = qs[k]
	}
}

// applyLabels derives significance labels from the effective p-value
// (corrected when a correction ran, raw otherwise)
func (a *Annotator) applyLabels(rs *stats.ResultSet, cfg Config) {
	corrected := cfg.Correction != stats.CorrectionNone
	for i := range rs.Comparisons {
		if rs.Comparisons[i].Skipped {
			continue
		}
		rs.Comparisons[i].Label = cfg.Scale.LabelFor(rs.Comparisons[i].EffectiveP(corrected))
	}
}

func missingRate(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	missing := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			missing++
		}
	}
	return float64(missing) / float64(len(vals))
}

func dropMissing(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func isConstant(vals []float64) bool {
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}
