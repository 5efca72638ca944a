package chart

import (
	"io"
	"math"
	"sort"

	"behaviorkit/domain/dataset"
	"behaviorkit/domain/plot"
	"behaviorkit/internal/errors"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// composeTimeseries draws per-condition mean lines over the time column,
// one series per hue level, with optional error bars and per-timepoint
// significance markers along the top of the plot area.
func (c *Composer) composeTimeseries(ds *dataset.Table, spec plot.Spec, ann *Annotation, theme Theme, width, height int) (*Figure, error) {
	if err := requireColumn(ds, spec.Time, dataset.RoleTime); err != nil {
		return nil, err
	}
	if err := requireColumn(ds, spec.Y, dataset.RoleMeasurement); err != nil {
		return nil, err
	}
	if err := requireColumn(ds, spec.Hue, dataset.RoleCondition); err != nil {
		return nil, err
	}

	var marks []TimepointMark
	if spec.Annotate {
		if ann == nil || len(ann.Timepoints) == 0 {
			return nil, errors.PlotConfigInvalid("annotated timeseries needs per-timepoint annotation marks")
		}
		marks = ann.Timepoints
	}

	hueLevels, err := ds.Levels(spec.Hue)
	if err != nil {
		return nil, errors.PlotConfigInvalid(err.Error())
	}

	times, _ := ds.Values(spec.Time)
	yValues, _ := ds.Values(spec.Y)
	hueLabels, _ := ds.Labels(spec.Hue)

	// Sorted unique timepoints define the x positions
	seen := make(map[float64]bool)
	timepoints := make([]float64, 0)
	for _, t := range times {
		if !seen[t] {
			seen[t] = true
			timepoints = append(timepoints, t)
		}
	}
	if len(timepoints) < 2 {
		return nil, errors.PlotConfigInvalid("timeseries needs at least two timepoints")
	}
	sort.Float64s(timepoints)

	// Per hue level, per timepoint summary
	summaries := make(map[string][]seriesStats, len(hueLevels))
	for _, hue := range hueLevels {
		cells := make([]seriesStats, len(timepoints))
		for i, tp := range timepoints {
			values := make([]float64, 0)
			for row := range yValues {
				if times[row] == tp && hueLabels[row] == hue {
					values = append(values, yValues[row])
				}
			}
			cells[i] = summarize(values, spec.ErrorBars)
		}
		summaries[hue] = cells
	}

	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, cells := range summaries {
		for _, s := range cells {
			if math.IsNaN(s.mean) {
				continue
			}
			yMin = math.Min(yMin, s.mean-s.err)
			yMax = math.Max(yMax, s.mean+s.err)
		}
	}
	if math.IsInf(yMin, 1) {
		return nil, errors.PlotConfigInvalid("timeseries has no non-missing data to draw")
	}

	span := yMax - yMin
	if span == 0 {
		span = math.Abs(yMax)
		if span == 0 {
			span = 1
		}
	}
	pad := 0.08 * span
	top := yMax + pad
	if len(marks) > 0 {
		// Room for the marker row above the data
		top += 0.1 * span
	}
	bottom := yMin - pad

	tSpan := timepoints[len(timepoints)-1] - timepoints[0]
	tPad := 0.04 * tSpan
	xRangeMin := timepoints[0] - tPad
	xRangeMax := timepoints[len(timepoints)-1] + tPad

	series := make([]gochart.Series, 0, len(hueLevels))
	for h, hue := range hueLevels {
		xs := make([]float64, 0, len(timepoints))
		ys := make([]float64, 0, len(timepoints))
		for i, s := range summaries[hue] {
			if math.IsNaN(s.mean) {
				continue
			}
			xs = append(xs, timepoints[i])
			ys = append(ys, s.mean)
		}
		if len(xs) < 2 {
			c.log.Debugw("timeseries level has too few points, skipping series", "level", hue, "points", len(xs))
			continue
		}
		col := theme.SeriesColor(h)
		series = append(series, gochart.ContinuousSeries{
			Name:    spec.DisplayName(hue),
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: col,
				StrokeWidth: theme.StrokeWidth,
				DotColor:    col,
				DotWidth:    theme.DotWidth,
			},
		})
	}
	if len(series) == 0 {
		return nil, errors.PlotConfigInvalid("timeseries has no drawable series")
	}

	ch := gochart.Chart{
		Title:      spec.Title,
		TitleStyle: gochart.Style{FontSize: theme.TitleFontSize, FontColor: theme.Text},
		Width:      width,
		Height:     height,
		Background: gochart.Style{FillColor: theme.Background, Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		Canvas:     gochart.Style{FillColor: theme.Background},
		XAxis: gochart.XAxis{
			Name:  spec.DisplayName(spec.Time),
			Range: &gochart.ContinuousRange{Min: xRangeMin, Max: xRangeMax},
			Style: gochart.Style{FontColor: theme.Text, FontSize: theme.FontSize},
		},
		YAxis: gochart.YAxis{
			Name:  spec.DisplayName(spec.Y),
			Range: &gochart.ContinuousRange{Min: bottom, Max: top},
			Style: gochart.Style{FontColor: theme.Text, FontSize: theme.FontSize},
		},
		Series: series,
	}

	overlay := func(r gochart.Renderer, canvasBox gochart.Box, defaults gochart.Style) {
		toX := func(v float64) int {
			return canvasBox.Left + int(float64(canvasBox.Width())*(v-xRangeMin)/(xRangeMax-xRangeMin))
		}
		toY := func(v float64) int {
			return canvasBox.Bottom - int(float64(canvasBox.Height())*(v-bottom)/(top-bottom))
		}

		if spec.ErrorBars != "" && spec.ErrorBars != plot.ErrorBarsNone {
			for h, hue := range hueLevels {
				col := theme.SeriesColor(h)
				for i, s := range summaries[hue] {
					if math.IsNaN(s.mean) || s.err == 0 {
						continue
					}
					drawErrorBar(r, toX(timepoints[i]), toY(s.mean-s.err), toY(s.mean+s.err), col, theme.StrokeWidth)
				}
			}
		}

		if len(marks) == 0 {
			return
		}
		font, err := gochart.GetDefaultFont()
		if err != nil {
			return
		}
		r.SetFont(font)
		markerY := toY(yMax + pad + 0.05*span)
		for _, m := range marks {
			if m.Label == "" || m.Label == "ns" {
				continue
			}
			drawCenteredText(r, m.Label, toX(m.Time), markerY, theme.FontSize*theme.MarkerFontScale, theme.Text)
		}
	}
	ch.Elements = []gochart.Renderable{overlay, gochart.Legend(&ch)}

	render := func(w io.Writer) error {
		return ch.Render(gochart.PNG, w)
	}
	return &Figure{Width: width, Height: height, render: render}, nil
}
