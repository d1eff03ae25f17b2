package testutil

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// NewWorkbook builds an in-memory xlsx workbook whose first sheet holds rows
// starting at A1, and returns its bytes. A nil row leaves a blank line.
func NewWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name for row %d: %v", i+1, err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("write row %d: %v", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// DelsettleRows returns the rows of a delivery match workbook with one block
// per marker. Every block carries a header, the given member rows and a
// summary row.
func DelsettleRows(blocks map[string][][]interface{}, order []string) [][]interface{} {
	rows := [][]interface{}{{"郑州商品交易所交割配对表"}}
	for _, marker := range order {
		rows = append(rows, []interface{}{marker})
		rows = append(rows, []interface{}{"卖方会员", "会员简称", "买方会员", "会员简称", "交割量"})
		var total int
		for _, r := range blocks[marker] {
			rows = append(rows, r)
			if n, ok := r[4].(int); ok {
				total += n
			}
		}
		rows = append(rows, []interface{}{"合计", "", "", "", total})
	}
	return rows
}
