package chart

import (
	"io"
	"math"
	"sort"

	"behaviorkit/domain/dataset"
	"behaviorkit/domain/plot"
	"behaviorkit/internal/errors"

	gochart "github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// composeScatter draws raw x/y points with an optional least-squares fit
// line and 95% confidence or prediction bands around it.
func (c *Composer) composeScatter(ds *dataset.Table, spec plot.Spec, theme Theme, width, height int) (*Figure, error) {
	for _, name := range []string{spec.X, spec.Y} {
		if !ds.HasColumn(name) {
			return nil, errors.PlotConfigInvalidf("column %q not in dataset", name)
		}
		if role, _ := ds.ColumnRole(name); role != dataset.RoleMeasurement && role != dataset.RoleTime {
			return nil, errors.PlotConfigInvalidf("column %q is %s, scatter needs numeric columns", name, role)
		}
	}

	rawX, _ := ds.Values(spec.X)
	rawY, _ := ds.Values(spec.Y)

	// Pairwise-complete points, sorted by x so fit and band series draw
	// left to right
	type point struct{ x, y float64 }
	points := make([]point, 0, len(rawX))
	for i := range rawX {
		if math.IsNaN(rawX[i]) || math.IsNaN(rawY[i]) {
			continue
		}
		points = append(points, point{rawX[i], rawY[i]})
	}
	if len(points) < 2 {
		return nil, errors.PlotConfigInvalid("scatter needs at least two complete points")
	}
	sort.Slice(points, func(i, j int) bool { return points[i].x < points[j].x })

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.x
		ys[i] = p.y
	}

	pointColor := theme.SeriesColor(0)
	series := []gochart.Series{
		gochart.ContinuousSeries{
			Name:    "observations",
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeWidth: gochart.Disabled,
				DotColor:    pointColor,
				DotWidth:    theme.DotWidth,
			},
		},
	}

	wantFit := spec.FitLine || spec.ConfidenceBand || spec.PredictionBand
	if wantFit {
		fitSeries, err := fitWithBands(xs, ys, spec, theme)
		if err != nil {
			return nil, err
		}
		series = append(series, fitSeries...)
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
			Style: gochart.Style{FontColor: theme.Text, FontSize: theme.FontSize},
		},
		YAxis: gochart.YAxis{
			Name:  spec.DisplayName(spec.Y),
			Style: gochart.Style{FontColor: theme.Text, FontSize: theme.FontSize},
		},
		Series: series,
	}

	render := func(w io.Writer) error {
		return ch.Render(gochart.PNG, w)
	}
	return &Figure{Width: width, Height: height, render: render}, nil
}

// fitWithBands builds the least-squares line and any requested bands over
// a dense grid spanning the observed x range. Bands use the t distribution
// with n-2 degrees of freedom.
func fitWithBands(xs, ys []float64, spec plot.Spec, theme Theme) ([]gochart.Series, error) {
	n := len(xs)
	if n < 3 {
		return nil, errors.PlotConfigInvalid("regression fit needs at least three points")
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	xMean := stat.Mean(xs, nil)
	var ssx, sse float64
	for i := range xs {
		dx := xs[i] - xMean
		ssx += dx * dx
		resid := ys[i] - (alpha + beta*xs[i])
		sse += resid * resid
	}
	if ssx == 0 {
		return nil, errors.PlotConfigInvalid("regression fit needs x variance")
	}
	// Residual standard error
	s := math.Sqrt(sse / float64(n-2))
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	tCrit := tDist.Quantile(0.975)

	const gridSize = 64
	xLo, xHi := xs[0], xs[n-1]
	grid := make([]float64, gridSize)
	fit := make([]float64, gridSize)
	for i := 0; i < gridSize; i++ {
		x := xLo + (xHi-xLo)*float64(i)/float64(gridSize-1)
		grid[i] = x
		fit[i] = alpha + beta*x
	}

	fitColor := theme.SeriesColor(1)
	out := make([]gochart.Series, 0, 5)
	if spec.FitLine || spec.ConfidenceBand || spec.PredictionBand {
		out = append(out, gochart.ContinuousSeries{
			Name:    "fit",
			XValues: grid,
			YValues: fit,
			Style:   gochart.Style{StrokeColor: fitColor, StrokeWidth: theme.StrokeWidth},
		})
	}

	band := func(name string, predictive bool) []gochart.Series {
		lo := make([]float64, gridSize)
		hi := make([]float64, gridSize)
		for i, x := range grid {
			dx := x - xMean
			variance := 1/float64(n) + dx*dx/ssx
			if predictive {
				variance += 1
			}
			half := tCrit * s * math.Sqrt(variance)
			lo[i] = fit[i] - half
			hi[i] = fit[i] + half
		}
		style := gochart.Style{
			StrokeColor:     fitColor,
			StrokeWidth:     1,
			StrokeDashArray: []float64{4, 4},
		}
		return []gochart.Series{
			gochart.ContinuousSeries{Name: name + " lower", XValues: grid, YValues: lo, Style: style},
			gochart.ContinuousSeries{Name: name + " upper", XValues: grid, YValues: hi, Style: style},
		}
	}

	if spec.ConfidenceBand {
		out = append(out, band("95% confidence", false)...)
	}
	if spec.PredictionBand {
		out = append(out, band("95% prediction", true)...)
	}
	return out, nil
}
