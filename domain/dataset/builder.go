package dataset

import (
	"fmt"
	"math"

	"behaviorkit/domain/core"
)

// Builder accumulates columns and rows and validates them into a Table.
// Cells are passed positionally in column declaration order: string for
// subject/condition columns, float64 (or any integer type) for
// measurement/time columns. math.NaN() marks a missing measurement.
type Builder struct {
	columns []Column
	rows    [][]any
	errs    []error
}

// NewBuilder creates an empty table builder
func NewBuilder() *Builder {
	return &Builder{}
}

// AddColumn declares the next column
func (b *Builder) AddColumn(name string, role Role) *Builder {
	b.columns = append(b.columns, Column{Name: name, Role: role})
	return b
}

// AddRow appends one row of cells, one per declared column
func (b *Builder) AddRow(cells ...any) *Builder {
	row := make([]any, len(cells))
	copy(row, cells)
	b.rows = append(b.rows, row)
	return b
}

// Build validates the accumulated columns and rows and produces an
// immutable Table. It fails on duplicate column names, missing or
// repeated subject columns, ragged rows, and cells of the wrong type
// for their column role.
func (b *Builder) Build() (*Table, error) {
	if len(b.columns) == 0 {
		return nil, fmt.Errorf("%w: no columns declared", core.ErrInvalidTable)
	}

	index := make(map[string]int, len(b.columns))
	subjects := 0
	for i, c := range b.columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", core.ErrInvalidTable, i)
		}
		if _, exists := index[c.Name]; exists {
			return nil, fmt.Errorf("%w: %q", core.ErrDuplicateColumn, c.Name)
		}
		switch c.Role {
		case RoleSubject:
			subjects++
		case RoleCondition, RoleMeasurement, RoleTime:
		default:
			return nil, fmt.Errorf("%w: column %q has unknown role %q", core.ErrInvalidTable, c.Name, c.Role)
		}
		index[c.Name] = i
	}
	if subjects != 1 {
		return nil, fmt.Errorf("%w: need exactly one subject column, have %d", core.ErrInvalidTable, subjects)
	}

	t := &Table{
		columns: append([]Column(nil), b.columns...),
		index:   index,
		labels:  make(map[string][]string),
		values:  make(map[string][]float64),
		rows:    len(b.rows),
	}
	for _, c := range b.columns {
		if c.IsNumeric() {
			t.values[c.Name] = make([]float64, 0, len(b.rows))
		} else {
			t.labels[c.Name] = make([]string, 0, len(b.rows))
		}
	}

	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", core.ErrRaggedRow, rowIdx, len(row), len(b.columns))
		}
		for colIdx, cell := range row {
			c := b.columns[colIdx]
			if c.IsNumeric() {
				v, ok := numericCell(cell)
				if !ok {
					return nil, fmt.Errorf("%w: row %d column %q holds %T", core.ErrNonNumeric, rowIdx, c.Name, cell)
				}
				if c.Role == RoleTime && math.IsNaN(v) {
					return nil, fmt.Errorf("%w: row %d column %q: time cannot be missing", core.ErrInvalidTable, rowIdx, c.Name)
				}
				t.values[c.Name] = append(t.values[c.Name], v)
				continue
			}
			s, ok := cell.(string)
			if !ok {
				return nil, fmt.Errorf("%w: row %d column %q needs a string label, got %T", core.ErrInvalidTable, rowIdx, c.Name, cell)
			}
			if c.Role == RoleSubject && s == "" {
				return nil, fmt.Errorf("%w: row %d has an empty subject ID", core.ErrInvalidTable, rowIdx)
			}
			t.labels[c.Name] = append(t.labels[c.Name], s)
		}
	}

	return t, nil
}

// numericCell coerces the integer types callers naturally pass; anything
// else is rejected rather than silently converted
func numericCell(cell any) (float64, bool) {
	switch v := cell.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
