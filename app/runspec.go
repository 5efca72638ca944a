// Package app wires readers, the annotator, the composer, and the report
// writer into a single pipeline driven by a YAML run spec.
package app

import (
	"fmt"
	"os"

	"behaviorkit/adapters/stats/engine"
	"behaviorkit/adapters/tabular"
	"behaviorkit/domain/plot"
	"behaviorkit/internal/errors"

	"gopkg.in/yaml.v3"
)

// DatasetSpec names the dataset source. Exactly one of Path or EventLog
// must be set: Path reads a schema-mapped tabular file, EventLog reads and
// aggregates a SQLite event log.
type DatasetSpec struct {
	Path     string         `yaml:"path"`
	Schema   tabular.Schema `yaml:"schema"`
	EventLog string         `yaml:"event_log"`
}

// PlotJob pairs one plot spec with its output file
type PlotJob struct {
	Spec   plot.Spec `yaml:"spec"`
	Output string    `yaml:"output"`
}

// ReportSpec names optional report outputs
type ReportSpec struct {
	Markdown string `yaml:"markdown"`
	HTML     string `yaml:"html"`
}

// RunSpec is one complete pipeline invocation loaded from YAML
type RunSpec struct {
	Dataset  DatasetSpec    `yaml:"dataset"`
	Annotate *engine.Config `yaml:"annotate"`
	Plots    []PlotJob      `yaml:"plots"`
	Report   ReportSpec     `yaml:"report"`
}

// LoadRunSpec reads and validates a run spec file
func LoadRunSpec(path string) (*RunSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read run spec %s", path)
	}
	var spec RunSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, errors.ConfigInvalidf("parse run spec %s: %v", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks structural consistency before any work starts
func (s *RunSpec) Validate() error {
	hasPath := s.Dataset.Path != ""
	hasEventLog := s.Dataset.EventLog != ""
	if hasPath == hasEventLog {
		return errors.ConfigInvalid("dataset needs exactly one of path or event_log")
	}

	if len(s.Plots) == 0 && s.Report.Markdown == "" && s.Report.HTML == "" && s.Annotate == nil {
		return errors.ConfigInvalid("run spec has nothing to do")
	}
	if (s.Report.Markdown != "" || s.Report.HTML != "") && s.Annotate == nil {
		return errors.ConfigInvalid("report output needs an annotate section")
	}

	seen := make(map[string]bool, len(s.Plots))
	for i, job := range s.Plots {
		if job.Output == "" {
			return errors.ConfigInvalidf("plot %d has no output path", i)
		}
		if seen[job.Output] {
			return errors.ConfigInvalidf("plot output %q used twice", job.Output)
		}
		seen[job.Output] = true
		if err := job.Spec.Validate(); err != nil {
			return errors.PlotConfigInvalid(fmt.Sprintf("plot %d: %v", i, err))
		}
		if job.Spec.Annotate && s.Annotate == nil {
			return errors.ConfigInvalidf("plot %d requests annotation but the run spec has no annotate section", i)
		}
	}
	return nil
}
