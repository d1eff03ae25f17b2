// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output, and builders for the spreadsheet fixtures the dataprocessing
// and service tests parse:
//
//	logger, logs := testutil.NewTestLogger(t)
//	data := testutil.NewWorkbook(t, testutil.DelsettleRows(blocks, order))
//
// Nothing here is imported by production code.
package shared
