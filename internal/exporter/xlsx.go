package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"deliverystats/pkg/contracts/domain"
)

// maxSheetName is the longest sheet name Excel accepts
const maxSheetName = 31

// WriteTableXLSX writes a table as a single-sheet workbook. Numbers are stored
// as numeric cells, dates as YYYY-MM-DD text and missing values as blanks.
func WriteTableXLSX(w io.Writer, table *domain.Table, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if len(table.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cellValue(v domain.Value) interface{} {
	if v.IsMissing() {
		return nil
	}
	if v.Kind == domain.KindNumber {
		return v.Number.Decimal.InexactFloat64()
	}
	return v.String()
}
