package chart

import (
	"bytes"
	"math"
	"testing"

	"behaviorkit/adapters/stats/engine"
	"behaviorkit/domain/dataset"
	"behaviorkit/domain/plot"
	"behaviorkit/domain/stats"
	"behaviorkit/internal/errors"
	"behaviorkit/internal/logger"
)

func groupedTable(t *testing.T) *dataset.Table {
	t.Helper()
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("treatment", dataset.RoleCondition).
		AddColumn("score", dataset.RoleMeasurement)
	for i, v := range []float64{1, 2, 3, 2, 1.5} {
		b.AddRow("c"+string(rune('1'+i)), "control", v)
	}
	for i, v := range []float64{10, 11, 12, 10.5, 11.5} {
		b.AddRow("t"+string(rune('1'+i)), "treated", v)
	}
	ds, err := b.Build()
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return ds
}

func matrixTable(t *testing.T) *dataset.Table {
	t.Helper()
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("a", dataset.RoleMeasurement).
		AddColumn("b", dataset.RoleMeasurement).
		AddColumn("c", dataset.RoleMeasurement)
	for i := 0; i < 8; i++ {
		x := float64(i)
		b.AddRow("s"+string(rune('1'+i)), x, 2*x+1, 10-x+0.3*float64(i%3))
	}
	ds, err := b.Build()
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return ds
}

func timeTable(t *testing.T) *dataset.Table {
	t.Helper()
	b := dataset.NewBuilder().
		AddColumn("subject", dataset.RoleSubject).
		AddColumn("treatment", dataset.RoleCondition).
		AddColumn("session", dataset.RoleTime).
		AddColumn("score", dataset.RoleMeasurement)
	for _, session := range []float64{1, 2, 3} {
		for i := 0; i < 4; i++ {
			b.AddRow("c"+string(rune('1'+i)), "control", session, 2+0.1*float64(i))
			b.AddRow("t"+string(rune('1'+i)), "treated", session, 2+session+0.1*float64(i))
		}
	}
	ds, err := b.Build()
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return ds
}

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	return NewComposer(DefaultTheme(), logger.Test(t))
}

func TestComposeRejectsMissingColumnBeforeDrawing(t *testing.T) {
	c := newTestComposer(t)
	ds := groupedTable(t)

	_, err := c.Compose(ds, plot.Spec{Kind: plot.KindPointplot, X: "dose", Y: "score"}, nil)
	if !errors.IsPlotConfiguration(err) {
		t.Fatalf("expected plot configuration error for absent column, got %v", err)
	}
}

func TestComposeRejectsRoleMismatch(t *testing.T) {
	c := newTestComposer(t)
	ds := groupedTable(t)

	_, err := c.Compose(ds, plot.Spec{Kind: plot.KindPointplot, X: "score", Y: "score"}, nil)
	if !errors.IsPlotConfiguration(err) {
		t.Fatalf("expected plot configuration error for role mismatch, got %v", err)
	}
}

func TestComposeRejectsScatterWithAnnotation(t *testing.T) {
	c := newTestComposer(t)
	ds := matrixTable(t)

	ann := &Annotation{Results: &stats.ResultSet{Mode: stats.ModeMatrix}}
	_, err := c.Compose(ds, plot.Spec{Kind: plot.KindScatter, X: "a", Y: "b"}, ann)
	if !errors.IsPlotConfiguration(err) {
		t.Fatalf("expected plot configuration error for annotated scatter, got %v", err)
	}
}

func TestComposeRejectsUnknownTheme(t *testing.T) {
	c := newTestComposer(t)
	ds := groupedTable(t)

	spec := plot.Spec{Kind: plot.KindPointplot, X: "treatment", Y: "score", Theme: "neon"}
	_, err := c.Compose(ds, spec, nil)
	if !errors.IsPlotConfiguration(err) {
		t.Fatalf("expected plot configuration error for unknown theme, got %v", err)
	}
}

func TestPointplotRendersPNG(t *testing.T) {
	c := newTestComposer(t)
	ds := groupedTable(t)

	spec := plot.Spec{
		Kind:      plot.KindPointplot,
		Title:     "score by treatment",
		X:         "treatment",
		Y:         "score",
		ErrorBars: plot.ErrorBarsSEM,
		Width:     400,
		Height:    300,
	}
	fig, err := c.Compose(ds, spec, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	var buf bytes.Buffer
	if err := fig.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("rendered figure is empty")
	}
	// PNG magic bytes
	if !bytes.HasPrefix(buf.Bytes(), []byte{0x89, 'P', 'N', 'G'}) {
		t.Errorf("output is not a PNG, starts with % x", buf.Bytes()[:4])
	}
}

func TestPointplotAnnotatedWithPairsResults(t *testing.T) {
	c := newTestComposer(t)
	ds := groupedTable(t)

	ann := engine.New(logger.Test(t))
	rs, err := ann.Annotate(ds, engine.Config{
		Test:        "welch_ttest",
		GroupColumn: "treatment",
		ValueColumn: "score",
	})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}

	spec := plot.Spec{Kind: plot.KindPointplot, X: "treatment", Y: "score", Annotate: true, Width: 400, Height: 300}
	fig, err := c.Compose(ds, spec, &Annotation{Results: rs})
	if err != nil {
		t.Fatalf("compose annotated pointplot: %v", err)
	}
	var buf bytes.Buffer
	if err := fig.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestPointplotAnnotateRequiresPairsMode(t *testing.T) {
	c := newTestComposer(t)
	ds := groupedTable(t)

	spec := plot.Spec{Kind: plot.KindPointplot, X: "treatment", Y: "score", Annotate: true}

	_, err := c.Compose(ds, spec, nil)
	if !errors.IsPlotConfiguration(err) {
		t.Fatalf("expected plot configuration error without results, got %v", err)
	}

	matrixResults := &Annotation{Results: &stats.ResultSet{Mode: stats.ModeMatrix}}
	_, err = c.Compose(ds, spec, matrixResults)
	if !errors.IsPlotConfiguration(err) {
		t.Fatalf("expected plot configuration error for matrix results, got %v", err)
	}
}

func TestHeatmapRendersWithMatrixAnnotation(t *testing.T) {
	c := newTestComposer(t)
	ds := matrixTable(t)

	annotator := engine.New(logger.Test(t))
	rs, err := annotator.Annotate(ds, engine.Config{Test: "pearson", Mode: stats.ModeMatrix})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}

	spec := plot.Spec{
		Kind:     plot.KindHeatmap,
		Metric:   plot.MetricPearson,
		Annotate: true,
		Width:    400,
		Height:   300,
	}
	fig, err := c.Compose(ds, spec, &Annotation{Results: rs})
	if err != nil {
		t.Fatalf("compose heatmap: %v", err)
	}
	var buf bytes.Buffer
	if err := fig.Render(&buf); err != nil {
		t.Fatalf("render heatmap: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("rendered heatmap is empty")
	}
}

func TestHeatmapPMetricNeedsMatrixResults(t *testing.T) {
	c := newTestComposer(t)
	ds := matrixTable(t)

	spec := plot.Spec{Kind: plot.KindHeatmap, Metric: plot.MetricP}
	_, err := c.Compose(ds, spec, nil)
	if !errors.IsPlotConfiguration(err) {
		t.Fatalf("expected plot configuration error for p metric without results, got %v", err)
	}
}

func TestTimeseriesRendersWithTimepointMarks(t *testing.T) {
	c := newTestComposer(t)
	ds := timeTable(t)

	spec := plot.Spec{
		Kind:      plot.KindTimeseries,
		Time:      "session",
		Y:         "score",
		Hue:       "treatment",
		ErrorBars: plot.ErrorBarsSEM,
		Annotate:  true,
		Width:     400,
		Height:    300,
	}
	marks := []TimepointMark{{Time: 1, Label: "ns"}, {Time: 2, Label: "*"}, {Time: 3, Label: "***"}}
	fig, err := c.Compose(ds, spec, &Annotation{Timepoints: marks})
	if err != nil {
		t.Fatalf("compose timeseries: %v", err)
	}
	var buf bytes.Buffer
	if err := fig.Render(&buf); err != nil {
		t.Fatalf("render timeseries: %v", err)
	}
}

func TestTimeseriesAnnotateNeedsMarks(t *testing.T) {
	c := newTestComposer(t)
	ds := timeTable(t)

	spec := plot.Spec{Kind: plot.KindTimeseries, Time: "session", Y: "score", Hue: "treatment", Annotate: true}
	_, err := c.Compose(ds, spec, nil)
	if !errors.IsPlotConfiguration(err) {
		t.Fatalf("expected plot configuration error without timepoint marks, got %v", err)
	}
}

func TestScatterWithFitAndBands(t *testing.T) {
	c := newTestComposer(t)
	ds := matrixTable(t)

	spec := plot.Spec{
		Kind:           plot.KindScatter,
		X:              "a",
		Y:              "b",
		FitLine:        true,
		ConfidenceBand: true,
		PredictionBand: true,
		Width:          400,
		Height:         300,
	}
	fig, err := c.Compose(ds, spec, nil)
	if err != nil {
		t.Fatalf("compose scatter: %v", err)
	}
	var buf bytes.Buffer
	if err := fig.Render(&buf); err != nil {
		t.Fatalf("render scatter: %v", err)
	}
}

func TestThemeRegistry(t *testing.T) {
	for _, name := range []string{"behavior", "dark", "minimal"} {
		theme, err := ThemeForName(name)
		if err != nil {
			t.Errorf("theme %q: %v", name, err)
		}
		if theme.Name != name {
			t.Errorf("theme %q resolved to %q", name, theme.Name)
		}
		if len(theme.Palette) == 0 {
			t.Errorf("theme %q has empty palette", name)
		}
	}
	if _, err := ThemeForName("nope"); err == nil {
		t.Error("expected error for unknown theme")
	}
}

func TestMidpointNormalize(t *testing.T) {
	cases := []struct {
		v, vmin, mid, vmax, want float64
	}{
		{0, -1, 0, 1, 0.5},
		{-1, -1, 0, 1, 0},
		{1, -1, 0, 1, 1},
		{0.5, -1, 0, 1, 0.75},
		{0.05, 0, 0.05, 1, 0.5},
	}
	for _, tc := range cases {
		got := midpointNormalize(tc.v, tc.vmin, tc.mid, tc.vmax)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("midpointNormalize(%v, %v, %v, %v) = %v, want %v", tc.v, tc.vmin, tc.mid, tc.vmax, got, tc.want)
		}
	}
}

func TestSummarizeDropsMissing(t *testing.T) {
	s := summarize([]float64{1, 2, 3, math.NaN()}, plot.ErrorBarsSEM)
	if s.n != 3 {
		t.Errorf("n = %d, want 3", s.n)
	}
	if math.Abs(s.mean-2) > 1e-12 {
		t.Errorf("mean = %v, want 2", s.mean)
	}
	if s.err <= 0 {
		t.Errorf("sem = %v, want positive", s.err)
	}
}
