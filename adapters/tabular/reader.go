// Package tabular loads behavioural datasets from delimited text and
// spreadsheet files. The file extension selects the format: .csv and .tsv
// parse as delimited text, .xlsx through the spreadsheet reader.
package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"behaviorkit/domain/dataset"
	"behaviorkit/internal/errors"
	"behaviorkit/internal/logger"

	"github.com/xuri/excelize/v2"
)

// DefaultMissingMarkers are the cell values read as missing in
// measurement columns
var DefaultMissingMarkers = []string{"", "NA", "NaN", "null"}

// Schema maps file columns onto dataset roles. Column names must match
// the file header exactly.
type Schema struct {
	Subject      string   `yaml:"subject"`
	Conditions   []string `yaml:"conditions"`
	Measurements []string `yaml:"measurements"`
	Time         string   `yaml:"time"`
	// Missing overrides DefaultMissingMarkers when non-nil
	Missing []string `yaml:"missing"`
}

func (s Schema) validate() error {
	if s.Subject == "" {
		return errors.ConfigInvalid("schema needs a subject column")
	}
	if len(s.Measurements) == 0 {
		return errors.ConfigInvalid("schema needs at least one measurement column")
	}
	return nil
}

func (s Schema) missingMarkers() map[string]bool {
	markers := s.Missing
	if markers == nil {
		markers = DefaultMissingMarkers
	}
	set := make(map[string]bool, len(markers))
	for _, m := range markers {
		set[m] = true
	}
	return set
}

// Reader implements ports.DatasetReader over a schema-mapped file
type Reader struct {
	path   string
	schema Schema
	log    logger.Logger
}

// NewReader creates a Reader for the given file path and schema
func NewReader(path string, schema Schema, log logger.Logger) *Reader {
	if log == nil {
		log = logger.Nop()
	}
	return &Reader{path: path, schema: schema, log: log}
}

// ReadDataset parses the file into a validated table. Bad cells fail the
// whole read with a DATA_INVALID error naming the row and column.
func (r *Reader) ReadDataset(ctx context.Context) (*dataset.Table, error) {
	if err := r.schema.validate(); err != nil {
		return nil, err
	}

	var rows [][]string
	var err error
	switch ext := strings.ToLower(filepath.Ext(r.path)); ext {
	case ".csv":
		rows, err = readDelimited(r.path, ',')
	case ".tsv":
		rows, err = readDelimited(r.path, '\t')
	case ".xlsx":
		rows, err = readSpreadsheet(r.path)
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported dataset format %q", ext))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.DataInvalid("dataset file has no data rows")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := r.buildTable(rows[0], rows[1:])
	if err != nil {
		return nil, err
	}
	r.log.Debugw("dataset loaded", "path", r.path, "rows", table.Len(), "columns", len(table.Columns()))
	return table, nil
}

func (r *Reader) buildTable(header []string, records [][]string) (*dataset.Table, error) {
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	type mapped struct {
		name string
		role dataset.Role
		idx  int
	}
	cols := make([]mapped, 0, 2+len(r.schema.Conditions)+len(r.schema.Measurements))
	appendCol := func(name string, role dataset.Role) error {
		idx, ok := colIndex[name]
		if !ok {
			return errors.DataInvalid(fmt.Sprintf("column %q not in file header", name))
		}
		cols = append(cols, mapped{name: name, role: role, idx: idx})
		return nil
	}
	if err := appendCol(r.schema.Subject, dataset.RoleSubject); err != nil {
		return nil, err
	}
	for _, name := range r.schema.Conditions {
		if err := appendCol(name, dataset.RoleCondition); err != nil {
			return nil, err
		}
	}
	if r.schema.Time != "" {
		if err := appendCol(r.schema.Time, dataset.RoleTime); err != nil {
			return nil, err
		}
	}
	for _, name := range r.schema.Measurements {
		if err := appendCol(name, dataset.RoleMeasurement); err != nil {
			return nil, err
		}
	}

	missing := r.schema.missingMarkers()

	b := dataset.NewBuilder()
	for _, col := range cols {
		b.AddColumn(col.name, col.role)
	}
	for rowNum, record := range records {
		cells := make([]any, len(cols))
		for i, col := range cols {
			if col.idx >= len(record) {
				return nil, errors.DataInvalid(fmt.Sprintf("row %d is short, missing column %q", rowNum+2, col.name))
			}
			raw := strings.TrimSpace(record[col.idx])
			switch col.role {
			case dataset.RoleSubject, dataset.RoleCondition:
				cells[i] = raw
			case dataset.RoleMeasurement:
				if missing[raw] {
					cells[i] = math.NaN()
					continue
				}
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, errors.DataInvalid(fmt.Sprintf("row %d column %q: %q is not numeric", rowNum+2, col.name, raw))
				}
				cells[i] = v
			case dataset.RoleTime:
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, errors.DataInvalid(fmt.Sprintf("row %d column %q: %q is not a numeric timepoint", rowNum+2, col.name, raw))
				}
				cells[i] = v
			}
		}
		b.AddRow(cells...)
	}

	table, err := b.Build()
	if err != nil {
		return nil, errors.WithCode(errors.CodeDataInvalid, err)
	}
	return table, nil
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = comma
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.DataInvalid(fmt.Sprintf("parse %s: %v", path, err))
	}
	return rows, nil
}

func readSpreadsheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open spreadsheet %s", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.DataInvalid("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.DataInvalid(fmt.Sprintf("read sheet %q: %v", sheets[0], err))
	}
	return rows, nil
}
