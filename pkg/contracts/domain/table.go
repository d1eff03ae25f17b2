package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout used when a date value is rendered as text.
const DateLayout = "2006-01-02"

// Kind describes the type carried by a table column
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDate
)

// String returns the lowercase kind name
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText lets kinds appear by name in JSON
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column names one table column and the kind of values it holds
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// NullDate is a calendar date that may be missing.
type NullDate struct {
	Time  time.Time
	Valid bool
}

// NewNullDate returns a valid NullDate truncated to the calendar day.
func NewNullDate(t time.Time) NullDate {
	return NullDate{
		Time:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}

// String renders the date as YYYY-MM-DD, or an empty string when missing
func (d NullDate) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// MarshalJSON encodes a missing date as null
func (d NullDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// Value is a single table cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind   Kind
	Text   string
	Number decimal.NullDecimal
	Date   NullDate
}

// StringValue builds a string cell
func StringValue(s string) Value {
	return Value{Kind: KindString, Text: s}
}

// NumberValue builds a valid numeric cell
func NumberValue(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Number: decimal.NullDecimal{Decimal: d, Valid: true}}
}

// MissingNumber builds a numeric cell holding the missing-value marker
func MissingNumber() Value {
	return Value{Kind: KindNumber}
}

// DateValue builds a valid date cell
func DateValue(t time.Time) Value {
	return Value{Kind: KindDate, Date: NewNullDate(t)}
}

// MissingDate builds a date cell holding the missing-value marker
func MissingDate() Value {
	return Value{Kind: KindDate}
}

// IsMissing reports whether a number or date cell holds the missing-value marker.
// String cells are never missing.
func (v Value) IsMissing() bool {
	switch v.Kind {
	case KindNumber:
		return !v.Number.Valid
	case KindDate:
		return !v.Date.Valid
	default:
		return false
	}
}

// String renders the cell as text. Missing values render as an empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if !v.Number.Valid {
			return ""
		}
		return v.Number.Decimal.String()
	case KindDate:
		return v.Date.String()
	default:
		return v.Text
	}
}

// Interface returns the cell as a JSON friendly value
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNumber:
		if !v.Number.Valid {
			return nil
		}
		return json.Number(v.Number.Decimal.String())
	case KindDate:
		if !v.Date.Valid {
			return nil
		}
		return v.Date.String()
	default:
		return v.Text
	}
}

// Row is one table row; values are positional and aligned with Table.Columns
type Row []Value

// Table is an ordered set of typed rows produced by a single report call.
type Table struct {
	Columns []Column
	Rows    []Row
}

// NewTable creates an empty table with the given columns
func NewTable(columns ...Column) *Table {
	return &Table{Columns: columns}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column or -1
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the named cell of row i.
func (t *Table) Get(i int, name string) (Value, bool) {
	idx := t.Index(name)
	if idx < 0 || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return Value{}, false
	}
	return t.Rows[i][idx], true
}

// Append adds a row after checking its width against the columns
func (t *Table) Append(row Row) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Filter returns a new table holding the rows for which keep returns true.
// The result is re-indexed from zero in the original order.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{Columns: t.Columns, Rows: make([]Row, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Records converts the table to one map per row, keyed by column name
func (t *Table) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]interface{}, len(t.Columns))
		for j, c := range t.Columns {
			if j < len(row) {
				rec[c.Name] = row[j].Interface()
			}
		}
		records[i] = rec
	}
	return records
}

// Strings converts every row to its text form, e.g. for CSV export
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		line := make([]string, len(row))
		for j, v := range row {
			line[j] = v.String()
		}
		out[i] = line
	}
	return out
}

// MarshalJSON encodes the table as its columns plus row records
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []Column                 `json:"columns"`
		Rows    []map[string]interface{} `json:"rows"`
	}{
		Columns: t.Columns,
		Rows:    t.Records(),
	})
}
