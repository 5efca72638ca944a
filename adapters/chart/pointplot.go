package chart

import (
	"io"
	"math"

	"behaviorkit/domain/dataset"
	"behaviorkit/domain/plot"
	"behaviorkit/domain/stats"
	"behaviorkit/internal/errors"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// bracket is one significance bracket between two group positions
type bracket struct {
	xa, xb float64
	label  string
}

// composePointplot draws per-group mean markers connected per hue series,
// with optional error bars and significance brackets between annotated
// pairs.
func (c *Composer) composePointplot(ds *dataset.Table, spec plot.Spec, ann *Annotation, theme Theme, width, height int) (*Figure, error) {
	if err := requireColumn(ds, spec.X, dataset.RoleCondition); err != nil {
		return nil, err
	}
	if err := requireColumn(ds, spec.Y, dataset.RoleMeasurement); err != nil {
		return nil, err
	}
	if spec.Hue != "" {
		if err := requireColumn(ds, spec.Hue, dataset.RoleCondition); err != nil {
			return nil, err
		}
	}

	var results *stats.ResultSet
	if ann != nil {
		results = ann.Results
	}
	if spec.Annotate {
		if results == nil || results.Mode != stats.ModePairs {
			return nil, errors.PlotConfigInvalid("annotated pointplot needs pairs-mode annotation results")
		}
	}

	levels, err := ds.Levels(spec.X)
	if err != nil {
		return nil, errors.PlotConfigInvalid(err.Error())
	}
	if len(levels) < 2 {
		return nil, errors.PlotConfigInvalid("pointplot needs at least two group levels")
	}
	levelIndex := make(map[string]int, len(levels))
	for i, level := range levels {
		levelIndex[level] = i
	}

	hueLevels := []string{""}
	if spec.Hue != "" {
		hueLevels, err = ds.Levels(spec.Hue)
		if err != nil {
			return nil, errors.PlotConfigInvalid(err.Error())
		}
	}

	xLabels, _ := ds.Labels(spec.X)
	yValues, _ := ds.Values(spec.Y)
	var hueLabels []string
	if spec.Hue != "" {
		hueLabels, _ = ds.Labels(spec.Hue)
	}

	// Summaries per hue series x group level
	summaries := make([][]seriesStats, len(hueLevels))
	for h, hue := range hueLevels {
		summaries[h] = make([]seriesStats, len(levels))
		for i, level := range levels {
			cell := make([]float64, 0)
			for row := range yValues {
				if xLabels[row] != level {
					continue
				}
				if spec.Hue != "" && hueLabels[row] != hue {
					continue
				}
				cell = append(cell, yValues[row])
			}
			summaries[h][i] = summarize(cell, spec.ErrorBars)
		}
	}

	// Y range over means and error extents
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, series := range summaries {
		for _, s := range series {
			if math.IsNaN(s.mean) {
				continue
			}
			yMin = math.Min(yMin, s.mean-s.err)
			yMax = math.Max(yMax, s.mean+s.err)
		}
	}
	if math.IsInf(yMin, 1) {
		return nil, errors.PlotConfigInvalid("pointplot has no non-missing data to draw")
	}

	// Brackets between annotated pairs, non-significant pairs omitted
	brackets := make([]bracket, 0)
	if spec.Annotate {
		for _, cmp := range results.Computed() {
			ia, okA := levelIndex[cmp.GroupA]
			ib, okB := levelIndex[cmp.GroupB]
			if !okA || !okB || cmp.Label == stats.LabelNotSignificant {
				continue
			}
			brackets = append(brackets, bracket{xa: float64(ia), xb: float64(ib), label: cmp.Label})
		}
	}

	span := yMax - yMin
	if span == 0 {
		span = math.Abs(yMax)
		if span == 0 {
			span = 1
		}
	}
	pad := 0.08 * span
	// Headroom above the data for stacked brackets
	top := yMax + pad + float64(len(brackets))*0.12*span
	bottom := yMin - pad

	xRangeMin, xRangeMax := -0.5, float64(len(levels))-0.5

	ticks := make([]gochart.Tick, len(levels))
	for i, level := range levels {
		ticks[i] = gochart.Tick{Value: float64(i), Label: spec.DisplayName(level)}
	}

	series := make([]gochart.Series, 0, len(hueLevels))
	for h, hue := range hueLevels {
		xs := make([]float64, 0, len(levels))
		ys := make([]float64, 0, len(levels))
		for i, s := range summaries[h] {
			if math.IsNaN(s.mean) {
				continue
			}
			xs = append(xs, float64(i))
			ys = append(ys, s.mean)
		}
		if len(xs) < 2 {
			continue
		}
		name := spec.DisplayName(hue)
		col := theme.SeriesColor(h)
		series = append(series, gochart.ContinuousSeries{
			Name:    name,
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
		return nil, errors.PlotConfigInvalid("pointplot has no drawable series")
	}

	ch := gochart.Chart{
		Title:      spec.Title,
		TitleStyle: gochart.Style{FontSize: theme.TitleFontSize, FontColor: theme.Text},
		Width:      width,
		Height:     height,
		Background: gochart.Style{FillColor: theme.Background, Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		Canvas:     gochart.Style{FillColor: theme.Background},
		XAxis: gochart.XAxis{
			Name:  spec.DisplayName(spec.X),
			Ticks: ticks,
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

		// Error bars per series point
		if spec.ErrorBars != "" && spec.ErrorBars != plot.ErrorBarsNone {
			for h := range summaries {
				col := theme.SeriesColor(h)
				for i, s := range summaries[h] {
					if math.IsNaN(s.mean) || s.err == 0 {
						continue
					}
					drawErrorBar(r, toX(float64(i)), toY(s.mean-s.err), toY(s.mean+s.err), col, theme.StrokeWidth)
				}
			}
		}

		// Significance brackets stacked above the data
		font, err := gochart.GetDefaultFont()
		if err != nil {
			return
		}
		r.SetFont(font)
		for k, b := range brackets {
			level := yMax + pad + (float64(k)+0.5)*0.12*span
			xa, xb := toX(b.xa), toX(b.xb)
			y := toY(level)
			drop := 6

			r.SetStrokeColor(theme.Text)
			r.SetStrokeWidth(1)
			r.MoveTo(xa, y+drop)
			r.LineTo(xa, y)
			r.LineTo(xb, y)
			r.LineTo(xb, y+drop)
			r.Stroke()

			drawCenteredText(r, b.label, (xa+xb)/2, y-8, theme.FontSize*theme.MarkerFontScale, theme.Text)
		}
	}

	elements := []gochart.Renderable{overlay}
	if spec.Hue != "" {
		elements = append(elements, gochart.Legend(&ch))
	}
	ch.Elements = elements

	render := func(w io.Writer) error {
		return ch.Render(gochart.PNG, w)
	}
	return &Figure{Width: width, Height: height, render: render}, nil
}

func drawErrorBar(r gochart.Renderer, x, yLow, yHigh int, col drawing.Color, strokeWidth float64) {
	const capHalf = 4
	r.SetStrokeColor(col)
	r.SetStrokeWidth(strokeWidth)
	r.MoveTo(x, yLow)
	r.LineTo(x, yHigh)
	r.Stroke()
	r.MoveTo(x-capHalf, yLow)
	r.LineTo(x+capHalf, yLow)
	r.Stroke()
	r.MoveTo(x-capHalf, yHigh)
	r.LineTo(x+capHalf, yHigh)
	r.Stroke()
}
