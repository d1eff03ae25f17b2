package dataprocessing

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"deliverystats/pkg/contracts/domain"
)

// SummaryPattern matches the labels of subtotal and total rows
var SummaryPattern = regexp.MustCompile(`小计|合计|总计`)

var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-01-02 15:04:05",
	"2006/1/2",
}

// separatorReplacer removes thousands separators and padding from numeric text
var separatorReplacer = strings.NewReplacer(",", "", "，", "", " ", "", "\u00a0", "", "\u3000", "")

// Field maps a raw column onto a typed output column
type Field struct {
	Source string // column name in the raw table
	Name   string // output name; Source when empty
	Kind   domain.Kind
	// Optional fields are skipped when the raw table lacks their column
	Optional bool
}

func (f Field) name() string {
	if f.Name == "" {
		return f.Source
	}
	return f.Name
}

// Schema drives Normalize
type Schema struct {
	Fields []Field
	// KeepUnlisted passes raw columns that no field mentions through as
	// string columns, in their raw position.
	KeepUnlisted bool
	// LabelColumn is the output column checked against SummaryPattern.
	LabelColumn string
	// DropTrailing removes this many rows from the end before anything else.
	DropTrailing int
}

type plan struct {
	source int
	column domain.Column
}

// Normalize renames, coerces and filters a raw table. Cells that fail numeric
// or date coercion become missing values; a field whose source column is
// absent is a shape error.
func Normalize(raw *RawTable, schema Schema) (*domain.Table, error) {
	plans, err := buildPlan(raw, schema)
	if err != nil {
		return nil, err
	}

	columns := make([]domain.Column, len(plans))
	label := -1
	for i, p := range plans {
		columns[i] = p.column
		if schema.LabelColumn != "" && p.column.Name == schema.LabelColumn {
			label = i
		}
	}
	if schema.LabelColumn != "" && label < 0 {
		return nil, shapeErrorf("normalize", "label column %q not in output", schema.LabelColumn)
	}

	rows := raw.Rows
	if schema.DropTrailing > 0 {
		if schema.DropTrailing >= len(rows) {
			rows = nil
		} else {
			rows = rows[:len(rows)-schema.DropTrailing]
		}
	}

	table := domain.NewTable(columns...)
	table.Rows = make([]domain.Row, 0, len(rows))
	for _, src := range rows {
		row := make(domain.Row, len(plans))
		for i, p := range plans {
			var cell string
			if p.source < len(src) {
				cell = src[p.source]
			}
			row[i] = coerce(cell, p.column.Kind)
		}
		if label >= 0 && IsSummaryLabel(row[label].Text) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func buildPlan(raw *RawTable, schema Schema) ([]plan, error) {
	bySource := make(map[string]Field, len(schema.Fields))
	present := make([]Field, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		if raw.Index(f.Source) < 0 {
			if f.Optional {
				continue
			}
			return nil, shapeErrorf("normalize", "column %q missing from %v", f.Source, raw.Header)
		}
		bySource[f.Source] = f
		present = append(present, f)
	}

	var plans []plan
	if schema.KeepUnlisted {
		for i, h := range raw.Header {
			if f, ok := bySource[h]; ok {
				plans = append(plans, plan{source: i, column: domain.Column{Name: f.name(), Kind: f.Kind}})
				continue
			}
			if h == "" {
				continue
			}
			plans = append(plans, plan{source: i, column: domain.Column{Name: h, Kind: domain.KindString}})
		}
		return plans, nil
	}

	for _, f := range present {
		plans = append(plans, plan{source: raw.Index(f.Source), column: domain.Column{Name: f.name(), Kind: f.Kind}})
	}
	return plans, nil
}

// IsSummaryLabel reports whether a row label marks a subtotal or total row
func IsSummaryLabel(label string) bool {
	return SummaryPattern.MatchString(label)
}

func coerce(cell string, kind domain.Kind) domain.Value {
	switch kind {
	case domain.KindNumber:
		if d, ok := ParseNumber(cell); ok {
			return domain.NumberValue(d)
		}
		return domain.MissingNumber()
	case domain.KindDate:
		if t, ok := ParseDate(cell); ok {
			return domain.DateValue(t)
		}
		return domain.MissingDate()
	default:
		return domain.StringValue(strings.TrimSpace(cell))
	}
}

// ParseNumber strips thousands separators and parses the rest as a decimal
func ParseNumber(s string) (decimal.Decimal, bool) {
	clean := separatorReplacer.Replace(strings.TrimSpace(s))
	if clean == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseDate parses the date formats the exchanges publish. A numeric date
// rendered as a float ("20231205.0") is cut at the decimal point.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if head, tail, ok := strings.Cut(s, "."); ok && tail != "" && strings.Trim(tail, "0") == "" {
		s = head
	}
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
