package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrShape is matched by every error raised when a payload does not have the
// layout a parser expects.
var ErrShape = errors.New("unexpected report shape")

// ShapeError describes a structural mismatch in a parsed payload
type ShapeError struct {
	Format string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrShape, e.Format, e.Detail)
}

// Is makes errors.Is(err, ErrShape) succeed
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

func shapeErrorf(format, msg string, args ...interface{}) error {
	return &ShapeError{Format: format, Detail: fmt.Sprintf(msg, args...)}
}

// RawTable is a parsed but untyped table: a header and string cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of a header or -1
func (t *RawTable) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row i, column j, or an empty string for short rows
func (t *RawTable) Cell(i, j int) string {
	if i < 0 || i >= len(t.Rows) || j < 0 || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// ColumnSpec maps a positional source field to an output column name
type ColumnSpec struct {
	Index int
	Name  string
}

// ColumnLayout is the explicit positional layout of a fixed-width record.
// Width is the exact number of fields each record must carry; Columns lists
// the fields to keep, in output order.
type ColumnLayout struct {
	Width   int
	Columns []ColumnSpec
}

// Names returns the output column names in order
func (l ColumnLayout) Names() []string {
	names := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		names[i] = c.Name
	}
	return names
}

func (l ColumnLayout) validate() error {
	if l.Width <= 0 {
		return fmt.Errorf("layout width must be positive, got %d", l.Width)
	}
	seen := make(map[string]bool, len(l.Columns))
	for _, c := range l.Columns {
		if c.Index < 0 || c.Index >= l.Width {
			return fmt.Errorf("layout column %q index %d outside width %d", c.Name, c.Index, l.Width)
		}
		if seen[c.Name] {
			return fmt.Errorf("layout column %q listed twice", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// project applies the layout to one record after checking its width
func (l ColumnLayout) project(format string, n int, fields []string) ([]string, error) {
	if len(fields) != l.Width {
		return nil, shapeErrorf(format, "record %d has %d fields, want %d", n, len(fields), l.Width)
	}
	out := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		out[i] = fields[c.Index]
	}
	return out, nil
}

// trimRow trims cell whitespace, including the full-width space used by the exchanges
func trimRow(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(strings.ReplaceAll(c, "　", " "))
	}
	return out
}

// isBlank reports whether every cell of a row is empty
func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
