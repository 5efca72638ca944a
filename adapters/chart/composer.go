package chart

import (
	"math"

	"behaviorkit/domain/dataset"
	"behaviorkit/domain/plot"
	"behaviorkit/domain/stats"
	"behaviorkit/internal/errors"
	"behaviorkit/internal/logger"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Default figure dimensions when the spec leaves them zero
const (
	DefaultWidth  = 1024
	DefaultHeight = 768
)

// TimepointMark carries a per-timepoint significance label for timeseries
// overlays. The caller computes these by annotating each timepoint slice
// separately (the pipeline does this).
type TimepointMark struct {
	Time  float64
	Label string
}

// Annotation bundles the Annotator output a plot may overlay
type Annotation struct {
	// Results feeds heatmap cell markers (matrix mode) and pointplot
	// brackets (pairs mode)
	Results *stats.ResultSet
	// Timepoints feeds timeseries per-timepoint markers
	Timepoints []TimepointMark
}

func (a *Annotation) empty() bool {
	return a == nil || (a.Results == nil && len(a.Timepoints) == 0)
}

// Composer renders datasets into styled figures. It holds a default theme
// and a logger; each Compose call is a pure function of its inputs.
type Composer struct {
	theme Theme
	log   logger.Logger
}

// NewComposer creates a Composer with the given default theme
func NewComposer(theme Theme, log logger.Logger) *Composer {
	if log == nil {
		log = logger.Nop()
	}
	if theme.Name == "" {
		theme = DefaultTheme()
	}
	return &Composer{theme: theme, log: log}
}

// Compose validates the spec against the dataset and produces a Figure.
// All validation happens before any drawing: a bad spec fails with a
// PlotConfigurationError and no partial output. The returned figure
// rasterizes lazily via Render/WriteFile.
func (c *Composer) Compose(ds *dataset.Table, spec plot.Spec, ann *Annotation) (*Figure, error) {
	if err := spec.Validate(); err != nil {
		return nil, errors.PlotConfigInvalid(err.Error())
	}

	theme := c.theme
	if spec.Theme != "" {
		resolved, err := ThemeForName(spec.Theme)
		if err != nil {
			return nil, err
		}
		theme = resolved
	}

	width, height := spec.Width, spec.Height
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}

	c.log.Debugw("composing figure", "kind", spec.Kind, "theme", theme.Name, "width", width, "height", height)

	switch spec.Kind {
	case plot.KindHeatmap:
		return c.composeHeatmap(ds, spec, ann, theme, width, height)
	case plot.KindPointplot:
		return c.composePointplot(ds, spec, ann, theme, width, height)
	case plot.KindTimeseries:
		return c.composeTimeseries(ds, spec, ann, theme, width, height)
	case plot.KindScatter:
		if !ann.empty() {
			return nil, errors.PlotConfigInvalid("scatter plots do not support significance overlays")
		}
		return c.composeScatter(ds, spec, theme, width, height)
	default:
		return nil, errors.PlotConfigInvalidf("unknown plot kind %q", spec.Kind)
	}
}

// requireColumn checks a spec-referenced column exists with the right role
func requireColumn(ds *dataset.Table, name string, role dataset.Role) error {
	if !ds.HasColumn(name) {
		return errors.PlotConfigInvalidf("column %q not in dataset", name)
	}
	if got, _ := ds.ColumnRole(name); got != role {
		return errors.PlotConfigInvalidf("column %q is %s, need %s", name, got, role)
	}
	return nil
}

// seriesStats are the per-group summary values a pointplot or timeseries
// draws
type seriesStats struct {
	mean float64
	err  float64 // half-width of the error bar, 0 when disabled
	n    int
}

// summarize computes mean and error bar half-width for one cell of values,
// missing cells dropped
func summarize(values []float64, bars plot.ErrorBars) seriesStats {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return seriesStats{mean: math.NaN()}
	}

	mean, _ := mstats.Mean(clean)
	s := seriesStats{mean: mean, n: len(clean)}
	if len(clean) < 2 {
		return s
	}

	switch bars {
	case plot.ErrorBarsSEM:
		sd, _ := mstats.StandardDeviationSample(clean)
		s.err = sd / math.Sqrt(float64(len(clean)))
	case plot.ErrorBarsCI95:
		sd, _ := mstats.StandardDeviationSample(clean)
		sem := sd / math.Sqrt(float64(len(clean)))
		tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(clean) - 1)}
		s.err = tDist.Quantile(0.975) * sem
	}
	return s
}
