package dataprocessing

import (
	"log/slog"
	"strings"
)

const formatBlocks = "spreadsheet-blocks"

// BlockLayout describes a sheet made of stacked record blocks. Each block
// starts with a marker row whose first cell contains MarkerLabel, followed by
// a header row, data rows and a trailing summary row.
type BlockLayout struct {
	MarkerLabel    string
	Columns        []string // output names of the block's own columns
	DateColumn     string
	ContractColumn string
}

func (l BlockLayout) header() []string {
	h := make([]string, 0, len(l.Columns)+2)
	h = append(h, l.Columns...)
	return append(h, l.DateColumn, l.ContractColumn)
}

type block struct {
	marker Marker
	header []string
	rows   [][]string
}

// ParseBlocks splits rows into marker-delimited blocks, tags every data row
// with its block's date and contract, and concatenates the blocks under the
// uniform column names of layout.
func ParseBlocks(rows [][]string, layout BlockLayout) (*RawTable, error) {
	if layout.MarkerLabel == "" || len(layout.Columns) == 0 {
		return nil, shapeErrorf(formatBlocks, "block layout needs a marker label and columns")
	}

	bounds := markerRows(rows, layout.MarkerLabel)
	if len(bounds) == 0 {
		return nil, shapeErrorf(formatBlocks, "no row starts with %q", layout.MarkerLabel)
	}

	blocks := make([]block, 0, len(bounds))
	for i, start := range bounds {
		end := len(rows)
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		b, err := splitBlock(rows, start, end)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	width := len(blocks[0].header)
	if width != len(layout.Columns) {
		return nil, shapeErrorf(formatBlocks, "block header has %d columns, want %d", width, len(layout.Columns))
	}

	table := &RawTable{Header: layout.header()}
	for i, b := range blocks {
		if len(b.header) != width {
			return nil, shapeErrorf(formatBlocks, "block %d (%s %s) has %d columns, first block has %d",
				i, b.marker.DateText, b.marker.Contract, len(b.header), width)
		}
		for _, r := range b.rows {
			if usedWidth(r) > width {
				return nil, shapeErrorf(formatBlocks, "block %d row wider than its header", i)
			}
			row := make([]string, 0, width+2)
			row = append(row, padRow(r, width)[:width]...)
			row = append(row, b.marker.DateText, b.marker.Contract)
			table.Rows = append(table.Rows, row)
		}
	}

	slog.Debug("blocks parsed",
		slog.Int("blocks", len(blocks)),
		slog.Int("rows", len(table.Rows)))
	return table, nil
}

// markerRows returns the indices of rows whose first cell carries label
func markerRows(rows [][]string, label string) []int {
	var idx []int
	for i, row := range rows {
		if len(row) > 0 && strings.Contains(row[0], label) {
			idx = append(idx, i)
		}
	}
	return idx
}

// splitBlock reads the block between marker row start and the next boundary end
func splitBlock(rows [][]string, start, end int) (block, error) {
	marker, err := ParseMarker(rows[start][0])
	if err != nil {
		return block{}, err
	}

	var body [][]string
	for _, r := range rows[start+1 : end] {
		if !isBlank(r) {
			body = append(body, r)
		}
	}
	if len(body) == 0 {
		return block{}, shapeErrorf(formatBlocks, "block %s %s has no header row", marker.DateText, marker.Contract)
	}

	b := block{marker: marker, header: body[0][:usedWidth(body[0])]}
	if len(body) > 2 {
		// the last row is the block summary
		b.rows = body[1 : len(body)-1]
	}
	return b, nil
}
