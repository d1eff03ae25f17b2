package dataprocessing

import (
	"bytes"
	"log/slog"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const formatSheet = "spreadsheet"

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ReadSheetRows returns the cell texts of the first worksheet in body.
// OOXML workbooks are read with excelize and Excel 97-2003 (BIFF) workbooks
// with extrame/xls. Some .xls downloads are really HTML tables; those are
// read as HTML.
func ReadSheetRows(body []byte) ([][]string, error) {
	trimmed := bytes.TrimLeft(body, "\xef\xbb\xbf \t\r\n")
	switch {
	case bytes.HasPrefix(trimmed, zipMagic):
		return readWorkbook(trimmed)
	case bytes.HasPrefix(trimmed, []byte("<")):
		return htmlTableRows(string(trimmed))
	case bytes.HasPrefix(trimmed, oleMagic):
		return readLegacyWorkbook(trimmed)
	default:
		return nil, shapeErrorf(formatSheet, "unrecognised workbook format")
	}
}

func readWorkbook(body []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, shapeErrorf(formatSheet, "open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, shapeErrorf(formatSheet, "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, shapeErrorf(formatSheet, "read sheet %q: %v", sheets[0], err)
	}
	slog.Debug("workbook read",
		slog.String("sheet_name", sheets[0]),
		slog.Int("total_rows", len(rows)))

	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = trimRow(row)
	}
	return out, nil
}

// readLegacyWorkbook reads the first sheet of a BIFF workbook. Rows missing
// from the file come back empty so row positions match the sheet.
func readLegacyWorkbook(body []byte) (rows [][]string, err error) {
	// xls panics on some truncated streams
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, shapeErrorf(formatSheet, "read legacy workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(body), "utf-8")
	if err != nil {
		return nil, shapeErrorf(formatSheet, "open legacy workbook: %v", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, shapeErrorf(formatSheet, "workbook has no sheets")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, shapeErrorf(formatSheet, "workbook has no readable sheet")
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, trimRow(cells))
	}
	slog.Debug("legacy workbook read",
		slog.String("sheet_name", sheet.Name),
		slog.Int("total_rows", len(rows)))
	return rows, nil
}

// ParseSheet reads a flat sheet: skip title rows, then one header row, then
// data rows. Columns are assigned by position from layout; the header row is
// only used to check the sheet width.
func ParseSheet(rows [][]string, skip int, layout ColumnLayout) (*RawTable, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	if skip < 0 || skip >= len(rows) {
		return nil, shapeErrorf(formatSheet, "sheet has %d rows, header expected at row %d", len(rows), skip)
	}

	header := rows[skip]
	if w := usedWidth(header); w != layout.Width {
		return nil, shapeErrorf(formatSheet, "header has %d columns, want %d", w, layout.Width)
	}

	table := &RawTable{Header: layout.Names()}
	for i, row := range rows[skip+1:] {
		if isBlank(row) {
			continue
		}
		if usedWidth(row) > layout.Width {
			return nil, shapeErrorf(formatSheet, "row %d has %d columns, want %d", skip+1+i, usedWidth(row), layout.Width)
		}
		projected, err := layout.project(formatSheet, skip+1+i, padRow(row, layout.Width)[:layout.Width])
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, projected)
	}
	return table, nil
}

// usedWidth is the row length without trailing empty cells
func usedWidth(row []string) int {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return n
}
