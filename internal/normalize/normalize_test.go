package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestSize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		ok       bool
	}{
		{name: "plain men's size", raw: "9M", expected: "9", ok: true},
		{name: "half size", raw: "9.5M", expected: "9.5", ok: true},
		{name: "multi gender notation", raw: "M9 / W10", expected: "9", ok: true},
		{name: "multi gender without spaces", raw: "M9/W10.5", expected: "9", ok: true},
		{name: "bare number", raw: "10", expected: "10", ok: true},
		{name: "surrounding whitespace", raw: "  11.5 M ", expected: "11.5", ok: true},
		{name: "one size token rejected", raw: "OS", expected: "", ok: false},
		{name: "letters rejected", raw: "XL", expected: "", ok: false},
		{name: "two decimal points rejected", raw: "9.5.5", expected: "", ok: false},
		{name: "empty input rejected", raw: "", expected: "", ok: false},
		{name: "marker only rejected", raw: "M", expected: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Size(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		wantErr  bool
	}{
		{name: "currency symbol and thousands separator", raw: "$1,299.00", expected: "1299"},
		{name: "plain decimal", raw: "129.99", expected: "129.99"},
		{name: "euro suffix", raw: "89.95 €", expected: "89.95"},
		{name: "whitespace padded", raw: " 200 ", expected: "200"},
		{name: "no digits", raw: "free", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "stray dots", raw: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Money(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPriceFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestMoneyExactness(t *testing.T) {
	got, err := Money("$1,299.00")
	require.NoError(t, err)
	assert.True(t, got.Equal(mustDecimal(t, "1299.00")), "expected exactly 1299.00, got %s", got)
}

func TestSortSizes(t *testing.T) {
	tests := []struct {
		name     string
		in       []string
		expected []string
	}{
		{name: "dedupe and order", in: []string{"10", "9", "9.5", "10", "9"}, expected: []string{"9", "9.5", "10"}},
		{name: "already sorted", in: []string{"7", "8"}, expected: []string{"7", "8"}},
		{name: "empty", in: nil, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SortSizes(tt.in))
		})
	}
}
