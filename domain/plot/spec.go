package plot

import (
	"fmt"
)

// Kind selects the chart type
type Kind string

const (
	KindHeatmap    Kind = "heatmap"    // correlation-matrix heatmap
	KindPointplot  Kind = "pointplot"  // group means with error bars
	KindTimeseries Kind = "timeseries" // per-condition mean lines over time
	KindScatter    Kind = "scatter"    // raw points with optional regression fit
)

// Metric selects what a heatmap cell displays
type Metric string

const (
	MetricPearson    Metric = "pearson"     // correlation coefficient
	MetricP          Metric = "p"           // raw p-value
	MetricPCorrected Metric = "p_corrected" // corrected p-value
	MetricSlope      Metric = "slope"       // regression slope r * sy/sx
)

// ErrorBars selects the error bar statistic
type ErrorBars string

const (
	ErrorBarsNone ErrorBars = "none"
	ErrorBarsSEM  ErrorBars = "sem"
	ErrorBarsCI95 ErrorBars = "ci95"
)

// Spec is the configuration bundle mapping dataset columns to a chart's
// visual encodings. Specs load from YAML files; zero values fall back to
// composer defaults (theme, size).
type Spec struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Title  string `json:"title,omitempty" yaml:"title"`
	Theme  string `json:"theme,omitempty" yaml:"theme"`
	Width  int    `json:"width,omitempty" yaml:"width"`
	Height int    `json:"height,omitempty" yaml:"height"`

	// Labels renames columns and condition levels for display. Keys
	// without a mapping pass through unchanged rather than being dropped.
	Labels map[string]string `json:"labels,omitempty" yaml:"labels"`

	// Annotate overlays significance markers where the kind supports them
	Annotate bool `json:"annotate,omitempty" yaml:"annotate"`

	// Heatmap: numeric columns to include (empty = all) and cell metric
	Columns []string `json:"columns,omitempty" yaml:"columns"`
	Metric  Metric   `json:"metric,omitempty" yaml:"metric"`

	// Pointplot / timeseries / scatter encodings
	X         string    `json:"x,omitempty" yaml:"x"`
	Y         string    `json:"y,omitempty" yaml:"y"`
	Hue       string    `json:"hue,omitempty" yaml:"hue"`
	Time      string    `json:"time,omitempty" yaml:"time"`
	ErrorBars ErrorBars `json:"error_bars,omitempty" yaml:"error_bars"`

	// Scatter extras
	FitLine        bool `json:"fit_line,omitempty" yaml:"fit_line"`
	ConfidenceBand bool `json:"confidence_band,omitempty" yaml:"confidence_band"`
	PredictionBand bool `json:"prediction_band,omitempty" yaml:"prediction_band"`
}

// Validate checks kind-independent structure and that each kind names the
// encodings it needs. Column existence against a concrete dataset is the
// composer's job.
func (s *Spec) Validate() error {
	switch s.Kind {
	case KindHeatmap:
		switch s.Metric {
		case "", MetricPearson, MetricP, MetricPCorrected, MetricSlope:
		default:
			return fmt.Errorf("unknown heatmap metric %q", s.Metric)
		}
	case KindPointplot:
		if s.X == "" || s.Y == "" {
			return fmt.Errorf("pointplot needs x (condition) and y (measurement) columns")
		}
	case KindTimeseries:
		if s.Time == "" || s.Y == "" || s.Hue == "" {
			return fmt.Errorf("timeseries needs time, y, and hue columns")
		}
	case KindScatter:
		if s.X == "" || s.Y == "" {
			return fmt.Errorf("scatter needs x and y numeric columns")
		}
		if s.Annotate {
			return fmt.Errorf("scatter does not support significance overlays")
		}
	case "":
		return fmt.Errorf("plot kind is required")
	default:
		return fmt.Errorf("unknown plot kind %q (known: heatmap, pointplot, timeseries, scatter)", s.Kind)
	}

	switch s.ErrorBars {
	case "", ErrorBarsNone, ErrorBarsSEM, ErrorBarsCI95:
	default:
		return fmt.Errorf("unknown error bar style %q", s.ErrorBars)
	}

	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("negative figure dimensions")
	}
	return nil
}

// DisplayName translates a column or level name through Labels, keeping
// unmapped names unchanged
func (s *Spec) DisplayName(name string) string {
	if mapped, ok := s.Labels[name]; ok {
		return mapped
	}
	return name
}

// EffectiveMetric returns the heatmap metric with its default applied
func (s *Spec) EffectiveMetric() Metric {
	if s.Metric == "" {
		return MetricPearson
	}
	return s.Metric
}
