package dataprocessing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliverystats/pkg/contracts/domain"
)

func deliverySchema() Schema {
	return Schema{
		Fields: []Field{
			{Source: "品种", Name: "variety", Kind: domain.KindString},
			{Source: "合约", Name: "contract", Kind: domain.KindString},
			{Source: "交割日期", Name: "delivery_date", Kind: domain.KindDate},
			{Source: "交割量", Name: "delivery_volume", Kind: domain.KindNumber},
			{Source: "交割金额", Name: "delivery_amount", Kind: domain.KindNumber},
		},
		KeepUnlisted: true,
		LabelColumn:  "variety",
	}
}

func TestNormalize_HTMLDelivery(t *testing.T) {
	raw, err := ParseHTMLTable(deliveryPage)
	require.NoError(t, err)

	table, err := Normalize(raw, deliverySchema())
	require.NoError(t, err)

	assert.Equal(t, []string{"variety", "contract", "delivery_date", "delivery_volume", "delivery_amount"}, table.ColumnNames())
	require.Equal(t, 2, table.Len(), "subtotal and total rows are dropped")

	vol, ok := table.Get(0, "delivery_volume")
	require.True(t, ok)
	assert.True(t, vol.Number.Valid)
	assert.True(t, vol.Number.Decimal.Equal(decimal.NewFromInt(1200)))

	amount, _ := table.Get(0, "delivery_amount")
	assert.Equal(t, "5040000", amount.String())

	date, _ := table.Get(1, "delivery_date")
	assert.Equal(t, "2024-03-20", date.String())
}

func TestNormalize_NoSummaryRowsAndContiguousOrder(t *testing.T) {
	raw := &RawTable{
		Header: []string{"contract", "volume"},
		Rows: [][]string{
			{"SR401", "10"},
			{"SR小计", "10"},
			{"CF401", "1,000"},
			{"合计", "1,010"},
			{"TA401", "bad"},
			{"总计", "1,010"},
		},
	}
	table, err := Normalize(raw, Schema{
		Fields: []Field{
			{Source: "contract", Kind: domain.KindString},
			{Source: "volume", Kind: domain.KindNumber},
		},
		LabelColumn: "contract",
	})
	require.NoError(t, err)

	require.Equal(t, 3, table.Len())
	want := []string{"SR401", "CF401", "TA401"}
	for i, contract := range want {
		v, ok := table.Get(i, "contract")
		require.True(t, ok)
		assert.Equal(t, contract, v.Text)
		assert.False(t, IsSummaryLabel(v.Text))
	}

	for i := 0; i < table.Len(); i++ {
		v, _ := table.Get(i, "volume")
		assert.Equal(t, domain.KindNumber, v.Kind)
		assert.NotContains(t, v.String(), ",")
	}
	bad, _ := table.Get(2, "volume")
	assert.True(t, bad.IsMissing(), "uncoercible cell becomes missing")
}

func TestNormalize_DropTrailing(t *testing.T) {
	raw := &RawTable{
		Header: []string{"配对日期", "配对手数"},
		Rows:   [][]string{{"20240115.0", "5"}, {"20240116", "7"}, {"", "12"}},
	}
	table, err := Normalize(raw, Schema{
		Fields: []Field{
			{Source: "配对日期", Name: "match_date", Kind: domain.KindDate},
			{Source: "配对手数", Name: "matched_lots", Kind: domain.KindNumber},
		},
		DropTrailing: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	d, _ := table.Get(0, "match_date")
	assert.Equal(t, "2024-01-15", d.String())

	empty, err := Normalize(&RawTable{Header: raw.Header, Rows: raw.Rows[:1]}, Schema{
		Fields:       []Field{{Source: "配对日期", Kind: domain.KindDate}},
		DropTrailing: 1,
	})
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestNormalize_ShapeErrors(t *testing.T) {
	raw := &RawTable{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}

	_, err := Normalize(raw, Schema{Fields: []Field{{Source: "missing"}}})
	assert.True(t, errors.Is(err, ErrShape))

	_, err = Normalize(raw, Schema{Fields: []Field{{Source: "a"}}, LabelColumn: "b"})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestNormalize_KeepUnlistedOrder(t *testing.T) {
	raw := &RawTable{
		Header: []string{"品种", "备注", "交割量", ""},
		Rows:   [][]string{{"豆一", "x", "3", "junk"}},
	}
	table, err := Normalize(raw, Schema{
		Fields: []Field{
			{Source: "交割量", Name: "delivery_volume", Kind: domain.KindNumber},
			{Source: "品种", Name: "variety"},
		},
		KeepUnlisted: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"variety", "备注", "delivery_volume"}, table.ColumnNames())
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,234", "1234", true},
		{" 1，234.50 ", "1234.5", true},
		{"-12.5", "-12.5", true},
		{"1 000", "1000", true},
		{"", "", false},
		{"--", "", false},
		{"n/a", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, d.String())
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"20231205", "2023-12-05", true},
		{"20231205.0", "2023-12-05", true},
		{"2023-12-05", "2023-12-05", true},
		{"2023/12/05", "2023-12-05", true},
		{"2023.12.05", "2023-12-05", true},
		{"2023-12-05 00:00:00", "2023-12-05", true},
		{"20231305", "", false},
		{"", "", false},
		{"小计", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Format(domain.DateLayout))
			}
		})
	}
}

func TestNormalize_OptionalField(t *testing.T) {
	raw := &RawTable{
		Header: []string{"配对日期", "配对手数"},
		Rows:   [][]string{{"20240115", "5"}},
	}
	table, err := Normalize(raw, Schema{
		Fields: []Field{
			{Source: "合约号", Name: "contract", Optional: true},
			{Source: "配对日期", Name: "match_date", Kind: domain.KindDate},
			{Source: "配对手数", Name: "matched_lots", Kind: domain.KindNumber},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"match_date", "matched_lots"}, table.ColumnNames())
}
