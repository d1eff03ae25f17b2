package dataprocessing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exchangeDeliveryLayout = ColumnLayout{
	Width: 8,
	Columns: []ColumnSpec{
		{Index: 1, Name: "date"},
		{Index: 5, Name: "contract"},
		{Index: 2, Name: "delivery_volume"},
		{Index: 4, Name: "futures_to_spot_volume"},
	},
}

func TestParseJSONList(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantRows [][]string
	}{
		{
			name: "object records keep key order",
			body: `{"o_total":1,"ExchangeDelivery":[
				{"X":"a","DATE":"2023-12-15","DV":"1,200","Z":"","FTS":30,"INSTR":"cu2312","P":null,"Q":"x"},
				{"X":"b","DATE":"2023-12-18","DV":"600","Z":"","FTS":"","INSTR":"al2312","P":1,"Q":"y"}
			],"report_date":"202312"}`,
			wantRows: [][]string{
				{"2023-12-15", "cu2312", "1,200", "30"},
				{"2023-12-18", "al2312", "600", ""},
			},
		},
		{
			name: "array records",
			body: `{"ExchangeDelivery":[["_","20231215","10","_","5","ru2401","_","_"]]}`,
			wantRows: [][]string{
				{"20231215", "ru2401", "10", "5"},
			},
		},
		{
			name:     "empty list",
			body:     `{"ExchangeDelivery":[]}`,
			wantRows: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseJSONList([]byte(tt.body), "ExchangeDelivery", exchangeDeliveryLayout)
			require.NoError(t, err)

			assert.Equal(t, []string{"date", "contract", "delivery_volume", "futures_to_spot_volume"}, table.Header)
			assert.Equal(t, tt.wantRows, table.Rows)
		})
	}
}

func TestParseJSONList_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "list missing", body: `{"other":[]}`},
		{name: "record too narrow", body: `{"ExchangeDelivery":[["a","b","c"]]}`},
		{name: "record too wide", body: `{"ExchangeDelivery":[[1,2,3,4,5,6,7,8,9]]}`},
		{name: "not an object", body: `[1,2,3]`},
		{name: "scalar record", body: `{"ExchangeDelivery":[42]}`},
		{name: "truncated", body: `{"ExchangeDelivery":[[1,2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSONList([]byte(tt.body), "ExchangeDelivery", exchangeDeliveryLayout)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShape), "want shape error, got %v", err)
		})
	}
}

func TestColumnLayoutValidate(t *testing.T) {
	_, err := ParseJSONList([]byte(`{"L":[]}`), "L", ColumnLayout{Width: 2, Columns: []ColumnSpec{{Index: 2, Name: "x"}}})
	assert.Error(t, err)

	_, err = ParseJSONList([]byte(`{"L":[]}`), "L", ColumnLayout{Width: 2, Columns: []ColumnSpec{{Index: 0, Name: "x"}, {Index: 1, Name: "x"}}})
	assert.Error(t, err)
}
