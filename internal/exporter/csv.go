package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"deliverystats/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM so Excel detects the Chinese labels
}

// WriteCSV writes headers and records to w
func WriteCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTableCSV writes a table with its column names as the header row.
// Missing numbers and dates are written as empty fields.
func WriteTableCSV(w io.Writer, table *domain.Table, bom bool) error {
	return WriteCSV(w, WriteOptions{
		Headers:   table.ColumnNames(),
		Records:   table.Strings(),
		BOMPrefix: bom,
	})
}
