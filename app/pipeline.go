package app

import (
	"context"
	"os"
	"path/filepath"

	"behaviorkit/adapters/chart"
	"behaviorkit/adapters/eventlog"
	"behaviorkit/adapters/stats/engine"
	"behaviorkit/adapters/tabular"
	"behaviorkit/domain/dataset"
	"behaviorkit/domain/plot"
	"behaviorkit/domain/stats"
	"behaviorkit/internal/errors"
	"behaviorkit/internal/logger"
	"behaviorkit/internal/report"
	"behaviorkit/ports"

	"golang.org/x/sync/errgroup"
)

// Pipeline executes run specs: load dataset, annotate, render plots
// concurrently, write reports
type Pipeline struct {
	annotator *engine.Annotator
	composer  *chart.Composer
	log       logger.Logger
}

// NewPipeline builds a pipeline with the given default theme
func NewPipeline(theme chart.Theme, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		annotator: engine.New(log),
		composer:  chart.NewComposer(theme, log),
		log:       log,
	}
}

// Result summarizes one pipeline run
type Result struct {
	Results     *stats.ResultSet
	PlotOutputs []string
}

// Run executes the spec end to end. Plot rendering fans out across
// goroutines; the first failure cancels the rest.
func (p *Pipeline) Run(ctx context.Context, spec *RunSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	ds, err := p.loadDataset(ctx, spec.Dataset)
	if err != nil {
		return nil, err
	}
	p.log.Infow("dataset loaded", "rows", ds.Len(), "fingerprint", ds.Fingerprint())

	res := &Result{}
	if spec.Annotate != nil {
		rs, err := p.annotator.Annotate(ds, *spec.Annotate)
		if err != nil {
			return nil, err
		}
		res.Results = rs
		p.log.Infow("annotation complete",
			"run_id", rs.RunID, "comparisons", len(rs.Comparisons), "skips", len(rs.Comparisons)-len(rs.Computed()))
	}

	if err := p.renderPlots(ctx, ds, spec, res); err != nil {
		return nil, err
	}

	if err := p.writeReports(spec.Report, res.Results); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) loadDataset(ctx context.Context, spec DatasetSpec) (*dataset.Table, error) {
	var reader ports.DatasetReader
	if spec.EventLog != "" {
		store, err := eventlog.Open(spec.EventLog, p.log)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		reader = store
	} else {
		reader = tabular.NewReader(spec.Path, spec.Schema, p.log)
	}
	return reader.ReadDataset(ctx)
}

func (p *Pipeline) renderPlots(ctx context.Context, ds *dataset.Table, spec *RunSpec, res *Result) error {
	if len(spec.Plots) == 0 {
		return nil
	}

	// Annotations are prepared serially so the concurrent phase only
	// draws; timeseries marks need a fresh per-timepoint annotation run
	annotations := make([]*chart.Annotation, len(spec.Plots))
	for i, job := range spec.Plots {
		if !job.Spec.Annotate {
			continue
		}
		ann, err := p.annotationFor(ds, job.Spec, spec.Annotate, res.Results)
		if err != nil {
			return err
		}
		annotations[i] = ann
	}

	g, ctx := errgroup.WithContext(ctx)
	outputs := make([]string, len(spec.Plots))
	for i, job := range spec.Plots {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fig, err := p.composer.Compose(ds, job.Spec, annotations[i])
			if err != nil {
				return errors.Wrapf(err, "plot %s", job.Output)
			}
			if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
				return errors.Wrapf(err, "create output directory for %s", job.Output)
			}
			if err := fig.WriteFile(job.Output); err != nil {
				return errors.Wrapf(err, "write plot %s", job.Output)
			}
			p.log.Infow("plot written", "path", job.Output, "kind", job.Spec.Kind)
			outputs[i] = job.Output
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	res.PlotOutputs = outputs
	return nil
}

// annotationFor builds the overlay input one annotated plot needs. Heatmap
// and pointplot reuse the run-level result set; timeseries gets one
// annotation per timepoint over slices of the dataset.
func (p *Pipeline) annotationFor(ds *dataset.Table, ps plot.Spec, cfg *engine.Config, rs *stats.ResultSet) (*chart.Annotation, error) {
	if ps.Kind != plot.KindTimeseries {
		return &chart.Annotation{Results: rs}, nil
	}

	marks, err := p.timepointMarks(ds, ps, cfg)
	if err != nil {
		return nil, err
	}
	return &chart.Annotation{Timepoints: marks}, nil
}

// timepointMarks annotates each timepoint slice separately and keeps the
// label between the first two hue levels. More than two levels would need
// per-pair mark rows, which the timeseries overlay does not draw.
func (p *Pipeline) timepointMarks(ds *dataset.Table, ps plot.Spec, cfg *engine.Config) ([]chart.TimepointMark, error) {
	levels, err := ds.Levels(ps.Hue)
	if err != nil {
		return nil, errors.PlotConfigInvalid(err.Error())
	}
	if len(levels) != 2 {
		return nil, errors.PlotConfigInvalid("annotated timeseries needs exactly two hue levels")
	}

	times, err := ds.Values(ps.Time)
	if err != nil {
		return nil, errors.PlotConfigInvalid(err.Error())
	}
	seen := make(map[float64]bool)
	timepoints := make([]float64, 0)
	for _, t := range times {
		if !seen[t] {
			seen[t] = true
			timepoints = append(timepoints, t)
		}
	}

	sliceCfg := *cfg
	sliceCfg.Mode = stats.ModePairs
	sliceCfg.GroupColumn = ps.Hue
	sliceCfg.ValueColumn = ps.Y

	marks := make([]chart.TimepointMark, 0, len(timepoints))
	for _, tp := range timepoints {
		slice, err := ds.SelectTime(ps.Time, tp)
		if err != nil {
			return nil, err
		}
		rs, err := p.annotator.Annotate(slice, sliceCfg)
		if err != nil {
			return nil, err
		}
		marks = append(marks, chart.TimepointMark{Time: tp, Label: rs.LabelBetween(levels[0], levels[1])})
	}
	return marks, nil
}

func (p *Pipeline) writeReports(spec ReportSpec, rs *stats.ResultSet) error {
	if rs == nil {
		return nil
	}
	if spec.Markdown != "" {
		if err := os.WriteFile(spec.Markdown, []byte(report.Markdown(rs)), 0o644); err != nil {
			return errors.Wrapf(err, "write markdown report %s", spec.Markdown)
		}
		p.log.Infow("report written", "path", spec.Markdown)
	}
	if spec.HTML != "" {
		if err := os.WriteFile(spec.HTML, report.HTML(rs), 0o644); err != nil {
			return errors.Wrapf(err, "write html report %s", spec.HTML)
		}
		p.log.Infow("report written", "path", spec.HTML)
	}
	return nil
}
