package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"behaviorkit/domain/core"
)

// Role classifies what a table column holds
type Role string

const (
	RoleSubject     Role = "subject"     // subject identifier (string)
	RoleCondition   Role = "condition"   // categorical condition label (string)
	RoleMeasurement Role = "measurement" // numeric measurement (float64, NaN = missing)
	RoleTime        Role = "time"        // numeric timepoint (float64)
)

// Column describes one table column
type Column struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsNumeric reports whether the column holds float64 cells
func (c Column) IsNumeric() bool {
	return c.Role == RoleMeasurement || c.Role == RoleTime
}

// Table is an ordered, immutable table of experiment observations.
// Label columns (subject, condition) hold strings; numeric columns
// (measurement, time) hold float64 with NaN marking missing values.
// Construct via Builder; after Build the table is read-only.
type Table struct {
	columns []Column
	index   map[string]int
	labels  map[string][]string
	values  map[string][]float64
	rows    int
}

// Len returns the number of rows
func (t *Table) Len() int {
	return t.rows
}

// Columns returns the column descriptors in declaration order
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether a column with the given name exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnRole returns the role of the named column
func (t *Table) ColumnRole(name string) (Role, bool) {
	i, ok := t.index[name]
	if !ok {
		return "", false
	}
	return t.columns[i].Role, true
}

// SubjectColumn returns the name of the subject column
func (t *Table) SubjectColumn() string {
	for _, c := range t.columns {
		if c.Role == RoleSubject {
			return c.Name
		}
	}
	return ""
}

// Subjects returns the subject identifier of every row, in row order
func (t *Table) Subjects() []string {
	return t.copyLabels(t.SubjectColumn())
}

// Labels returns the string cells of a subject or condition column
func (t *Table) Labels(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, core.NewColumnNotFoundError(name)
	}
	if t.columns[i].IsNumeric() {
		return nil, core.NewRoleMismatchError(name, "subject or condition", string(t.columns[i].Role))
	}
	return t.copyLabels(name), nil
}

// Values returns the float64 cells of a measurement or time column
func (t *Table) Values(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, core.NewColumnNotFoundError(name)
	}
	if !t.columns[i].IsNumeric() {
		return nil, core.NewRoleMismatchError(name, "measurement or time", string(t.columns[i].Role))
	}
	out := make([]float64, t.rows)
	copy(out, t.values[name])
	return out, nil
}

// Levels returns the distinct levels of a condition column in first
// appearance order. Every downstream ordering guarantee (pair enumeration,
// result order) derives from this ordering.
func (t *Table) Levels(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, core.NewColumnNotFoundError(name)
	}
	if t.columns[i].Role != RoleCondition {
		return nil, core.NewRoleMismatchError(name, string(RoleCondition), string(t.columns[i].Role))
	}

	seen := make(map[string]bool)
	levels := make([]string, 0)
	for _, label := range t.labels[name] {
		if !seen[label] {
			seen[label] = true
			levels = append(levels, label)
		}
	}
	return levels, nil
}

// GroupValues splits a numeric column by the levels of a condition column.
// Keys are the condition levels; slices preserve row order and retain NaN
// cells so callers decide how to treat missing values.
func (t *Table) GroupValues(valueCol, conditionCol string) (map[string][]float64, error) {
	vals, err := t.Values(valueCol)
	if err != nil {
		return nil, err
	}
	if _, err := t.Levels(conditionCol); err != nil {
		return nil, err
	}

	groups := make(map[string][]float64)
	for row, label := range t.labels[conditionCol] {
		groups[label] = append(groups[label], vals[row])
	}
	return groups, nil
}

// NumericColumns returns the measurement column names in table order
func (t *Table) NumericColumns() []string {
	names := make([]string, 0)
	for _, c := range t.columns {
		if c.Role == RoleMeasurement {
			names = append(names, c.Name)
		}
	}
	return names
}

// ConditionColumns returns the condition column names in table order
func (t *Table) ConditionColumns() []string {
	names := make([]string, 0)
	for _, c := range t.columns {
		if c.Role == RoleCondition {
			names = append(names, c.Name)
		}
	}
	return names
}

// TimeColumn returns the name of the first time column, if any
func (t *Table) TimeColumn() (string, bool) {
	for _, c := range t.columns {
		if c.Role == RoleTime {
			return c.Name, true
		}
	}
	return "", false
}

// Fingerprint computes a deterministic hash of the full table contents
func (t *Table) Fingerprint() core.DatasetFingerprint {
	var b strings.Builder
	for _, c := range t.columns {
		b.WriteString(c.Name)
		b.WriteByte('|')
		b.WriteString(string(c.Role))
		b.WriteByte('\n')
	}
	for row := 0; row < t.rows; row++ {
		for _, c := range t.columns {
			if c.IsNumeric() {
				b.WriteString(strconv.FormatFloat(t.values[c.Name][row], 'g', -1, 64))
			} else {
				b.WriteString(t.labels[c.Name][row])
			}
			b.WriteByte('|')
		}
		b.WriteByte('\n')
	}
	return core.NewDatasetFingerprint([]byte(b.String()))
}

// Select returns a derived table containing only rows whose subject ID
// is in the given set, preserving row order
func (t *Table) Select(subjects ...string) *Table {
	keep := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		keep[s] = true
	}
	subjectCol := t.SubjectColumn()
	rows := make([]int, 0, t.rows)
	for row, s := range t.labels[subjectCol] {
		if keep[s] {
			rows = append(rows, row)
		}
	}
	return t.subset(rows)
}

// SelectTime returns a derived table containing only rows whose time
// column equals the given timepoint
func (t *Table) SelectTime(timeCol string, at float64) (*Table, error) {
	i, ok := t.index[timeCol]
	if !ok {
		return nil, core.NewColumnNotFoundError(timeCol)
	}
	if t.columns[i].Role != RoleTime {
		return nil, core.NewRoleMismatchError(timeCol, string(RoleTime), string(t.columns[i].Role))
	}

	rows := make([]int, 0)
	for row, v := range t.values[timeCol] {
		if v == at {
			rows = append(rows, row)
		}
	}
	return t.subset(rows), nil
}

// Join merges two tables on subject ID, keeping rows for subjects present
// in both. Column names other than the subject column must be disjoint.
// Row order follows the receiver; for each subject the other table's first
// matching row supplies the joined cells.
func (t *Table) Join(other *Table) (*Table, error) {
	if t.SubjectColumn() == "" || other.SubjectColumn() == "" {
		return nil, fmt.Errorf("%w: join requires a subject column on both tables", core.ErrInvalidTable)
	}
	for _, c := range other.columns {
		if c.Role == RoleSubject {
			continue
		}
		if t.HasColumn(c.Name) {
			return nil, fmt.Errorf("%w: %q exists in both tables", core.ErrDuplicateColumn, c.Name)
		}
	}

	otherRows := make(map[string]int, other.rows)
	otherSubject := other.SubjectColumn()
	for row := other.rows - 1; row >= 0; row-- {
		otherRows[other.labels[otherSubject][row]] = row
	}

	b := NewBuilder()
	for _, c := range t.columns {
		b.AddColumn(c.Name, c.Role)
	}
	for _, c := range other.columns {
		if c.Role != RoleSubject {
			b.AddColumn(c.Name, c.Role)
		}
	}

	subjectCol := t.SubjectColumn()
	for row := 0; row < t.rows; row++ {
		subject := t.labels[subjectCol][row]
		otherRow, ok := otherRows[subject]
		if !ok {
			continue
		}
		cells := t.rowCells(row)
		for _, c := range other.columns {
			if c.Role == RoleSubject {
				continue
			}
			if c.IsNumeric() {
				cells = append(cells, other.values[c.Name][otherRow])
			} else {
				cells = append(cells, other.labels[c.Name][otherRow])
			}
		}
		b.AddRow(cells...)
	}
	return b.Build()
}

// NormalizeByMean returns a derived table with each named measurement
// column divided by its own mean (missing cells excluded from the mean,
// preserved as missing in the output)
func (t *Table) NormalizeByMean(cols ...string) (*Table, error) {
	if len(cols) == 0 {
		cols = t.NumericColumns()
	}
	means := make(map[string]float64, len(cols))
	for _, name := range cols {
		vals, err := t.Values(name)
		if err != nil {
			return nil, err
		}
		sum, n := 0.0, 0
		for _, v := range vals {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 || sum == 0 {
			return nil, fmt.Errorf("%w: cannot normalize %q by zero mean", core.ErrInvalidTable, name)
		}
		means[name] = sum / float64(n)
	}

	b := NewBuilder()
	for _, c := range t.columns {
		b.AddColumn(c.Name, c.Role)
	}
	for row := 0; row < t.rows; row++ {
		cells := make([]any, 0, len(t.columns))
		for _, c := range t.columns {
			if !c.IsNumeric() {
				cells = append(cells, t.labels[c.Name][row])
				continue
			}
			v := t.values[c.Name][row]
			if m, ok := means[c.Name]; ok && !math.IsNaN(v) {
				v = v / m
			}
			cells = append(cells, v)
		}
		b.AddRow(cells...)
	}
	return b.Build()
}

func (t *Table) copyLabels(name string) []string {
	out := make([]string, t.rows)
	copy(out, t.labels[name])
	return out
}

func (t *Table) rowCells(row int) []any {
	cells := make([]any, 0, len(t.columns))
	for _, c := range t.columns {
		if c.IsNumeric() {
			cells = append(cells, t.values[c.Name][row])
		} else {
			cells = append(cells, t.labels[c.Name][row])
		}
	}
	return cells
}

// subset builds a derived table from the given row indices
func (t *Table) subset(rows []int) *Table {
	sub := &Table{
		columns: append([]Column(nil), t.columns...),
		index:   make(map[string]int, len(t.columns)),
		labels:  make(map[string][]string),
		values:  make(map[string][]float64),
		rows:    len(rows),
	}
	for i, c := range t.columns {
		sub.index[c.Name] = i
		if c.IsNumeric() {
			col := make([]float64, 0, len(rows))
			for _, row := range rows {
				col = append(col, t.values[c.Name][row])
			}
			sub.values[c.Name] = col
		} else {
			col := make([]string, 0, len(rows))
			for _, row := range rows {
				col = append(col, t.labels[c.Name][row])
			}
			sub.labels[c.Name] = col
		}
	}
	return sub
}
