package ports

import (
	"context"

	"behaviorkit/domain/dataset"
)

// DatasetReader loads a tabular dataset from an external source.
// Implementations own parsing and missing-value handling; the table they
// return is immutable and fully validated.
type DatasetReader interface {
	ReadDataset(ctx context.Context) (*dataset.Table, error)
}

// EventLogReader loads a manual-event log written by the
// experiment-presentation collaborator
type EventLogReader interface {
	ReadEvents(ctx context.Context) (dataset.EventLog, error)
}
