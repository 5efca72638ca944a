package dataset

import (
	"fmt"
	"sort"
	"time"

	"behaviorkit/domain/core"
)

// Event is one manually logged occurrence from the experiment-presentation
// collaborator: the experimenter pressed a key at At for Subject, tagged
// with Label and an optional numeric Value (0 when the event is a pure count).
type Event struct {
	At      time.Time `json:"at" db:"at"`
	Subject string    `json:"subject" db:"subject"`
	Label   string    `json:"label" db:"label"`
	Value   float64   `json:"value" db:"value"`
}

// EventLog is the full sequence of logged events from one session
type EventLog struct {
	Events []Event `json:"events"`
}

// Span returns the duration between the first and last event
func (l EventLog) Span() time.Duration {
	if len(l.Events) < 2 {
		return 0
	}
	first, last := l.Events[0].At, l.Events[0].At
	for _, e := range l.Events[1:] {
		if e.At.Before(first) {
			first = e.At
		}
		if e.At.After(last) {
			last = e.At
		}
	}
	return last.Sub(first)
}

// AggregateOptions controls event-log folding
type AggregateOptions struct {
	// SubjectColumn names the subject column of the produced table (default "subject")
	SubjectColumn string
	// LabelColumn names the condition column of the produced table (default "event")
	LabelColumn string
}

// AggregateEvents folds an event log into a Table so the GUI collaborator's
// output enters the standard annotate/plot pipeline. One row per
// subject x label, with count, rate per minute over the log's span, and
// total logged value as measurements. Rows are ordered by first
// appearance of the subject, then first appearance of the label within
// the subject, keeping downstream orderings deterministic.
func AggregateEvents(log EventLog, opts AggregateOptions) (*Table, error) {
	if len(log.Events) == 0 {
		return nil, fmt.Errorf("%w: event log is empty", core.ErrInsufficientData)
	}
	if opts.SubjectColumn == "" {
		opts.SubjectColumn = "subject"
	}
	if opts.LabelColumn == "" {
		opts.LabelColumn = "event"
	}

	type key struct{ subject, label string }
	type agg struct {
		count int
		total float64
		order int
	}

	aggs := make(map[key]*agg)
	orderedKeys := make([]key, 0)
	for _, e := range log.Events {
		if e.Subject == "" {
			return nil, fmt.Errorf("%w: event at %s has no subject", core.ErrInvalidTable, e.At.Format(time.RFC3339))
		}
		k := key{subject: e.Subject, label: e.Label}
		a, ok := aggs[k]
		if !ok {
			a = &agg{order: len(orderedKeys)}
			aggs[k] = a
			orderedKeys = append(orderedKeys, k)
		}
		a.count++
		a.total += e.Value
	}
	sort.SliceStable(orderedKeys, func(i, j int) bool {
		return aggs[orderedKeys[i]].order < aggs[orderedKeys[j]].order
	})

	minutes := log.Span().Minutes()

	b := NewBuilder().
		AddColumn(opts.SubjectColumn, RoleSubject).
		AddColumn(opts.LabelColumn, RoleCondition).
		AddColumn("count", RoleMeasurement).
		AddColumn("rate_per_min", RoleMeasurement).
		AddColumn("total_value", RoleMeasurement)

	for _, k := range orderedKeys {
		a := aggs[k]
		rate := 0.0
		if minutes > 0 {
			rate = float64(a.count) / minutes
		}
		b.AddRow(k.subject, k.label, float64(a.count), rate, a.total)
	}
	return b.Build()
}
