// Package eventlog persists and reads manually logged experiment events
// in a file-backed SQLite database. The schema is a single append-only
// table; timestamps store as RFC 3339 text.
package eventlog

import (
	"context"
	"time"

	"behaviorkit/domain/dataset"
	"behaviorkit/internal/errors"
	"behaviorkit/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	at      TEXT NOT NULL,
	subject TEXT NOT NULL,
	label   TEXT NOT NULL,
	value   REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_events_subject ON events(subject);
`

// Store reads and appends events in a SQLite file. It implements both
// ports.EventLogReader and ports.DatasetReader, the latter by folding
// events into per-subject aggregate measurements.
type Store struct {
	db  *sqlx.DB
	log logger.Logger
}

// Open opens or creates the database at path and ensures the schema
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrapf(err, "open event log %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "initialize event log schema")
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one event
func (s *Store) Append(ctx context.Context, e dataset.Event) error {
	if e.Subject == "" {
		return errors.DataInvalid("event needs a subject")
	}
	if e.Label == "" {
		return errors.DataInvalid("event needs a label")
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (at, subject, label, value) VALUES (?, ?, ?, ?)`,
		at.Format(time.RFC3339Nano), e.Subject, e.Label, e.Value)
	if err != nil {
		return errors.Wrap(err, "append event")
	}
	s.log.Debugw("event appended", "subject", e.Subject, "label", e.Label)
	return nil
}

type eventRow struct {
	At      string  `db:"at"`
	Subject string  `db:"subject"`
	Label   string  `db:"label"`
	Value   float64 `db:"value"`
}

// ReadEvents returns all logged events in timestamp order
func (s *Store) ReadEvents(ctx context.Context) (dataset.EventLog, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows, `SELECT at, subject, label, value FROM events ORDER BY at, id`)
	if err != nil {
		return dataset.EventLog{}, errors.Wrap(err, "read events")
	}

	events := make([]dataset.Event, len(rows))
	for i, r := range rows {
		at, err := time.Parse(time.RFC3339Nano, r.At)
		if err != nil {
			return dataset.EventLog{}, errors.DataInvalid("event row has a malformed timestamp " + r.At)
		}
		events[i] = dataset.Event{At: at, Subject: r.Subject, Label: r.Label, Value: r.Value}
	}
	return dataset.EventLog{Events: events}, nil
}

// ReadDataset folds the event log into an aggregate table, satisfying
// ports.DatasetReader so logged events can feed the annotate and plot
// pipeline directly
func (s *Store) ReadDataset(ctx context.Context) (*dataset.Table, error) {
	log, err := s.ReadEvents(ctx)
	if err != nil {
		return nil, err
	}
	table, err := dataset.AggregateEvents(log, dataset.AggregateOptions{})
	if err != nil {
		return nil, errors.WithCode(errors.CodeDataInvalid, err)
	}
	return table, nil
}
