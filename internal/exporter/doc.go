// Package exporter writes normalized report tables as CSV, xlsx or JSON.
//
// CSV output starts with a UTF-8 BOM so Excel shows the Chinese variety
// names correctly. Workbooks hold one sheet named after the report, with
// numbers stored as numeric cells.
//
// Example usage:
//
//	format, err := exporter.ParseFormat("xlsx")
//	writer := exporter.NewFileWriter("reports", logger)
//	path, err := writer.Save(result, format)
package exporter
