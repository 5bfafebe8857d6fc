package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatINR(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "₹0.00"},
		{"999", "₹999.00"},
		{"1000", "₹1,000.00"},
		{"100000", "₹1,00,000.00"},
		{"12345678.9", "₹1,23,45,678.90"},
		{"-2500.456", "-₹2,500.46"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, FormatINR(decimal.RequireFromString(tc.in)), tc.in)
	}
}

func TestFormatIndianNumber(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"5000", "5,000"},
		{"123456.5", "1,23,456.5"},
		{"10.1239", "10.124"},
		{"-75000", "-75,000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, FormatIndianNumber(decimal.RequireFromString(tc.in)), tc.in)
	}
}

func TestParseAmount(t *testing.T) {
	assert.True(t, ParseAmount("1,250.75").Equal(decimal.RequireFromString("1250.75")))
	assert.True(t, ParseAmount(" 42 ").Equal(decimal.NewFromInt(42)))
	assert.True(t, ParseAmount("").IsZero())
	assert.True(t, ParseAmount("n/a").IsZero())
}

func TestPercent(t *testing.T) {
	assert.InDelta(t, 50.0, Percent(decimal.NewFromInt(1), decimal.NewFromInt(2)), 1e-9)
	assert.Zero(t, Percent(decimal.NewFromInt(1), decimal.Zero))
	assert.Zero(t, Percent(decimal.NewFromInt(1), decimal.NewFromInt(-5)))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "16 Oct 2026", FormatDate(fixedNow))
}

func TestUserError(t *testing.T) {
	cause := errors.New("status 500")
	err := NewUserError("Failed to generate AI insights. Please try again.", cause)

	assert.ErrorIs(t, err, cause)
	msg, ok := UserMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "Failed to generate AI insights. Please try again.", msg)

	_, ok = UserMessage(cause)
	assert.False(t, ok)
}

func TestAmountsEncodeAsJSONNumbers(t *testing.T) {
	b, err := json.Marshal(CashFlowPoint{Month: "2026-10", Income: decimal.RequireFromString("1500.50"), Expense: decimal.Zero})
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 1500.5, got["income"])
	assert.Equal(t, float64(0), got["expense"])

	var back CashFlowPoint
	require.NoError(t, json.Unmarshal([]byte(`{"month":"2026-10","income":"1500.50","expense":0}`), &back))
	assert.True(t, back.Income.Equal(decimal.RequireFromString("1500.5")))
}
