// Package dataprocessing turns exchange report payloads into typed tables.
//
// # Architecture
//
// The package has two stages:
//
// 1. Parsers: read a payload into a RawTable of strings
//   - ParseJSONList: one named list of fixed-width JSON records (SHFE)
//   - ParseHTMLTable: the first table of an HTML page (DCE)
//   - ReadSheetRows + ParseSheet: a flat worksheet (CZCE)
//   - ReadSheetRows + ParseBlocks: a worksheet of stacked, marker-delimited blocks (CZCE)
//
// 2. Normalizer: Normalize renames columns, strips thousands separators,
// coerces numbers and dates and drops subtotal/total rows.
//
// # Usage
//
//	raw, err := dataprocessing.ParseJSONList(body, "ExchangeDelivery", layout)
//	if err != nil {
//	    return nil, err
//	}
//	table, err := dataprocessing.Normalize(raw, schema)
//
// # Data Flow
//
//	payload → parser → RawTable → Normalize → domain.Table
//
// # Error Handling
//
// Structural problems (missing list, wrong record width, missing column,
// malformed block marker) fail the call with a *ShapeError or *MarkerError,
// both matching ErrShape. Cells that cannot be coerced are not errors: they
// become missing values.
package dataprocessing
