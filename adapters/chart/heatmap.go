package chart

import (
	"fmt"
	"io"
	"math"

	"behaviorkit/domain/dataset"
	"behaviorkit/domain/plot"
	"behaviorkit/domain/stats"
	"behaviorkit/internal/errors"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/stat"
)

// composeHeatmap draws a correlation-matrix heatmap over the selected
// numeric columns. Cells colour by the spec metric through a diverging
// colormap with midpoint normalization; significance markers come from
// matrix-mode annotation results.
func (c *Composer) composeHeatmap(ds *dataset.Table, spec plot.Spec, ann *Annotation, theme Theme, width, height int) (*Figure, error) {
	cols := spec.Columns
	if len(cols) == 0 {
		cols = ds.NumericColumns()
	}
	if len(cols) < 2 {
		return nil, errors.PlotConfigInvalid("heatmap needs at least two numeric columns")
	}
	series := make(map[string][]float64, len(cols))
	for _, name := range cols {
		if err := requireColumn(ds, name, dataset.RoleMeasurement); err != nil {
			return nil, err
		}
		vals, err := ds.Values(name)
		if err != nil {
			return nil, errors.PlotConfigInvalid(err.Error())
		}
		series[name] = vals
	}

	metric := spec.EffectiveMetric()
	var results *stats.ResultSet
	if ann != nil {
		results = ann.Results
	}
	if metric == plot.MetricP || metric == plot.MetricPCorrected {
		if results == nil || results.Mode != stats.ModeMatrix {
			return nil, errors.PlotConfigInvalidf("heatmap metric %q needs matrix-mode annotation results", metric)
		}
		if metric == plot.MetricPCorrected && !results.Corrected() {
			return nil, errors.PlotConfigInvalid("heatmap metric p_corrected needs correction-applied results")
		}
	}
	if spec.Annotate {
		if results == nil || results.Mode != stats.ModeMatrix {
			return nil, errors.PlotConfigInvalid("annotated heatmap needs matrix-mode annotation results")
		}
	}

	n := len(cols)
	cells := make([][]float64, n)
	for i := range cells {
		cells[i] = make([]float64, n)
		for j := range cells[i] {
			cells[i][j] = cellValue(metric, cols[i], cols[j], series, results)
		}
	}

	markers := make([][]string, n)
	for i := range markers {
		markers[i] = make([]string, n)
		if !spec.Annotate {
			continue
		}
		for j := range markers[i] {
			if i == j {
				continue
			}
			if label := results.LabelBetween(cols[i], cols[j]); label != stats.LabelNotSignificant {
				markers[i][j] = label
			}
		}
	}

	vmin, midpoint, vmax := metricRange(metric, cells)
	labels := make([]string, n)
	for i, name := range cols {
		labels[i] = spec.DisplayName(name)
	}
	caption := metricCaption(metric, results)

	render := func(w io.Writer) error {
		r, err := gochart.PNG(width, height)
		if err != nil {
			return err
		}
		font, err := gochart.GetDefaultFont()
		if err != nil {
			return err
		}
		r.SetFont(font)

		fillRect(r, 0, 0, width, height, theme.Background)

		const (
			marginLeft   = 150
			marginTop    = 70
			marginBottom = 40
			colorbarGap  = 30
			colorbarW    = 24
			marginRight  = colorbarGap + colorbarW + 70
		)
		gridW := width - marginLeft - marginRight
		gridH := height - marginTop - marginBottom
		cellW := gridW / n
		cellH := gridH / n

		// Cells with optional significance markers
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				x0 := marginLeft + j*cellW
				y0 := marginTop + i*cellH
				v := cells[i][j]
				col := theme.Grid
				if !math.IsNaN(v) {
					col = divergingColor(midpointNormalize(v, vmin, midpoint, vmax))
				}
				fillRect(r, x0, y0, x0+cellW, y0+cellH, col)
				if markers[i][j] != "" {
					drawCenteredText(r, markers[i][j], x0+cellW/2, y0+cellH/2, theme.FontSize*theme.MarkerFontScale, theme.Text)
				}
			}
		}

		// Tick labels: rows on the left, columns along the top
		r.SetFontColor(theme.Text)
		r.SetFontSize(theme.FontSize)
		for i, label := range labels {
			box := r.MeasureText(label)
			r.Text(label, marginLeft-box.Width()-8, marginTop+i*cellH+cellH/2+box.Height()/2)
			r.Text(label, marginLeft+i*cellW+4, marginTop-8)
		}

		drawColorbar(r, width-marginRight+colorbarGap, marginTop, colorbarW, gridH, vmin, midpoint, vmax, theme)

		// Title and metric caption
		if spec.Title != "" {
			drawCenteredText(r, spec.Title, width/2, marginTop/2, theme.TitleFontSize, theme.Text)
		}
		r.SetFontSize(theme.FontSize)
		r.SetFontColor(theme.Text)
		captionBox := r.MeasureText(caption)
		r.Text(caption, width-marginRight+colorbarGap, marginTop+gridH+captionBox.Height()+6)

		return r.Save(w)
	}

	return &Figure{Width: width, Height: height, render: render}, nil
}

// cellValue computes one heatmap cell for the chosen metric
func cellValue(metric plot.Metric, colA, colB string, series map[string][]float64, results *stats.ResultSet) float64 {
	switch metric {
	case plot.MetricP, plot.MetricPCorrected:
		if colA == colB {
			return 0
		}
		res, ok := results.ByPair(colA, colB)
		if !ok || res.Skipped {
			return math.NaN()
		}
		if metric == plot.MetricPCorrected {
			return res.QValue
		}
		return res.PValue
	case plot.MetricSlope:
		if colA == colB {
			return 1
		}
		x, y := completePairs(series[colA], series[colB])
		if len(x) < 3 {
			return math.NaN()
		}
		sdX := stat.StdDev(x, nil)
		sdY := stat.StdDev(y, nil)
		if sdX == 0 || sdY == 0 {
			return math.NaN()
		}
		return stat.Correlation(x, y, nil) * sdY / sdX
	default: // pearson
		if colA == colB {
			return 1
		}
		x, y := completePairs(series[colA], series[colB])
		if len(x) < 3 {
			return math.NaN()
		}
		if stat.StdDev(x, nil) == 0 || stat.StdDev(y, nil) == 0 {
			return math.NaN()
		}
		return stat.Correlation(x, y, nil)
	}
}

// metricRange picks colormap bounds and the normalization midpoint
func metricRange(metric plot.Metric, cells [][]float64) (vmin, midpoint, vmax float64) {
	switch metric {
	case plot.MetricP, plot.MetricPCorrected:
		// Significance threshold as the visual pivot
		return 0, 0.05, 1
	case plot.MetricSlope:
		extent := 0.0
		for _, row := range cells {
			for _, v := range row {
				if !math.IsNaN(v) && math.Abs(v) > extent {
					extent = math.Abs(v)
				}
			}
		}
		if extent == 0 {
			extent = 1
		}
		return -extent, 0, extent
	default:
		return -1, 0, 1
	}
}

func metricCaption(metric plot.Metric, results *stats.ResultSet) string {
	switch metric {
	case plot.MetricP:
		return "p-value (uncorrected)"
	case plot.MetricPCorrected:
		return fmt.Sprintf("p-value (%s, alpha=%g)", results.Correction, results.Alpha)
	case plot.MetricSlope:
		return "regression slope"
	default:
		return "Pearson's r"
	}
}

// completePairs drops rows where either value is missing
func completePairs(a, b []float64) ([]float64, []float64) {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}

// fillRect paints an axis-aligned rectangle
func fillRect(r gochart.Renderer, x0, y0, x1, y1 int, col drawing.Color) {
	r.SetFillColor(col)
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.Close()
	r.Fill()
}

func drawCenteredText(r gochart.Renderer, s string, x, y int, size float64, col drawing.Color) {
	r.SetFontSize(size)
	r.SetFontColor(col)
	box := r.MeasureText(s)
	r.Text(s, x-box.Width()/2, y+box.Height()/2)
}

// drawColorbar paints a vertical gradient strip with min/mid/max labels
func drawColorbar(r gochart.Renderer, x, y, w, h int, vmin, midpoint, vmax float64, theme Theme) {
	for row := 0; row < h; row++ {
		// Top of the bar is vmax
		t := 1 - float64(row)/float64(h-1)
		fillRect(r, x, y+row, x+w, y+row+1, divergingColor(t))
	}

	r.SetFontSize(theme.FontSize)
	r.SetFontColor(theme.Text)
	labels := []struct {
		v  float64
		at int
	}{
		{vmax, y},
		{midpoint, y + h/2},
		{vmin, y + h},
	}
	for _, l := range labels {
		s := fmt.Sprintf("%.2g", l.v)
		box := r.MeasureText(s)
		r.Text(s, x+w+6, l.at+box.Height()/2)
	}
}
