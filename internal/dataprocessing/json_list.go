package dataprocessing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const formatJSON = "json-list"

// ParseJSONList extracts the named list of fixed-width records from a JSON
// object and projects it through layout. Records may be JSON arrays or JSON
// objects; object fields are taken in document order.
func ParseJSONList(body []byte, listKey string, layout ColumnLayout) (*RawTable, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	table := &RawTable{Header: layout.Names()}
	found := false
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, shapeErrorf(formatJSON, "read key: %v", err)
		}
		name, _ := key.(string)
		if name != listKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, shapeErrorf(formatJSON, "skip %q: %v", name, err)
			}
			continue
		}

		found = true
		if err := expectDelim(dec, '['); err != nil {
			return nil, err
		}
		for n := 0; dec.More(); n++ {
			fields, err := readRecord(dec)
			if err != nil {
				return nil, shapeErrorf(formatJSON, "record %d: %v", n, err)
			}
			row, err := layout.project(formatJSON, n, fields)
			if err != nil {
				return nil, err
			}
			table.Rows = append(table.Rows, row)
		}
		if _, err := dec.Token(); err != nil {
			return nil, shapeErrorf(formatJSON, "close %q: %v", listKey, err)
		}
	}

	if !found {
		return nil, shapeErrorf(formatJSON, "list %q not present", listKey)
	}
	return table, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return shapeErrorf(formatJSON, "expected %q: %v", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return shapeErrorf(formatJSON, "expected %q, got %v", want, tok)
	}
	return nil
}

// readRecord reads one array or object record as ordered field texts
func readRecord(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	open, ok := tok.(json.Delim)
	if !ok || (open != '[' && open != '{') {
		return nil, fmt.Errorf("record is not an array or object: %v", tok)
	}

	var fields []string
	for dec.More() {
		if open == '{' {
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, scalarText(raw))
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// scalarText renders a JSON value as the text a spreadsheet cell would show
func scalarText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(trimmed)
}
