package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject_GreedySpan(t *testing.T) {
	text := "Here you go:\n```json\n{\"vendor_name\": \"Acme\", \"amount\": 1180}\n```\nLet me know {if} you need more."

	// The span runs to the last closing brace, so trailing braces break decoding.
	res, err := ExtractObject[InvoiceExtraction](text)
	require.Error(t, err)
	_, ok := res.Structured()
	assert.False(t, ok)
	assert.Equal(t, text, res.RawText())

	res, err = ExtractObject[InvoiceExtraction]("Sure! {\"vendor_name\": \"Acme\", \"amount\": \"₹1,180.00\", \"date\": null}")
	require.NoError(t, err)
	inv, ok := res.Structured()
	require.True(t, ok)
	assert.Equal(t, "Acme", inv.VendorName.String())
	assert.True(t, inv.Amount.Valid)
	assert.Equal(t, "1180", inv.Amount.Amount.String())
	assert.False(t, inv.Date.Valid)
}

func TestExtractObject_NoJSON(t *testing.T) {
	res, err := ExtractObject[Forecast]("I could not produce a forecast.")

	assert.ErrorIs(t, err, ErrNoJSON)
	got := res.Value(ForecastFallback("6months"))
	assert.Equal(t, "6months", got.ForecastPeriod.String())
	assert.Equal(t, "medium", got.ConfidenceLevel.String())
	assert.Equal(t, "I could not produce a forecast.", got.Analysis.String())
}

func TestExtractArray(t *testing.T) {
	res, err := ExtractArray[Anomaly](`Found: [{"type": "duplicate", "severity": "high", "transaction_id": 42}]`)

	require.NoError(t, err)
	anomalies, ok := res.Structured()
	require.True(t, ok)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "duplicate", anomalies[0].Type.String())
	assert.Equal(t, "42", anomalies[0].TransactionID.String())
	assert.False(t, anomalies[0].Suggestion.Valid)
}

func TestResult_Value(t *testing.T) {
	parsed := Parsed([]int{1}, "[1]")
	assert.Equal(t, []int{1}, parsed.Value(func(string) []int { return nil }))

	raw := Raw[[]int]("nothing")
	assert.Equal(t, []int{7}, raw.Value(func(s string) []int {
		assert.Equal(t, "nothing", s)
		return []int{7}
	}))
}

func TestFlexNumber(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		want  string
		text  string
	}{
		{`1500.5`, true, "1500.5", ""},
		{`"₹ 1,00,000"`, true, "100000", ""},
		{`"Rs. 250"`, true, "250", ""},
		{`null`, false, "0", ""},
		{`"Varies"`, false, "0", "Varies"},
		{`{"min": 1}`, false, "0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n FlexNumber
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.valid, n.Valid)
			assert.Equal(t, tt.want, n.Amount.String())
			assert.Equal(t, tt.text, n.Text)
		})
	}
}

func TestFlexNumber_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A FlexNumber `json:"a"`
		B FlexNumber `json:"b"`
		C FlexNumber `json:"c"`
	}{A: FlexNumber{Valid: true}, B: FlexNumber{Text: "Varies"}})

	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 0, "b": "Varies", "c": null}`, string(b))
}

func TestFlexString(t *testing.T) {
	var s []FlexString
	require.NoError(t, json.Unmarshal([]byte(`["a", 1.5, true, null, {"x": 1}]`), &s))

	require.Len(t, s, 5)
	assert.Equal(t, NewFlexString("a"), s[0])
	assert.Equal(t, NewFlexString("1.5"), s[1])
	assert.Equal(t, NewFlexString("true"), s[2])
	assert.False(t, s[3].Valid)
	assert.False(t, s[4].Valid)

	b, err := json.Marshal(s[:4])
	require.NoError(t, err)
	assert.JSONEq(t, `["a", "1.5", "true", null]`, string(b))
}

func TestExtractObject_ScalarWhereListExpected(t *testing.T) {
	reply := `{"predicted_income": 500000, "key_trends": "Revenue rising steadily", "recommendations": null, "risk_factors": ["Late receivables", 3]}`

	res, err := ExtractObject[Forecast](reply)

	require.NoError(t, err)
	f, ok := res.Structured()
	require.True(t, ok)
	assert.Equal(t, "500000", f.PredictedIncome.Amount.String())
	assert.Equal(t, []string{"Revenue rising steadily"}, f.KeyTrends.Strings())
	assert.Nil(t, f.Recommendations)
	assert.Equal(t, []string{"Late receivables", "3"}, f.RiskFactors.Strings())
}

func TestFlexStrings(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`["a", null, "b"]`, []string{"a", "b"}},
		{`"solo"`, []string{"solo"}},
		{`42`, []string{"42"}},
		{`null`, []string{}},
		{`{"x": 1}`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var fs FlexStrings
			require.NoError(t, json.Unmarshal([]byte(tt.in), &fs))
			assert.Equal(t, tt.want, fs.Strings())
		})
	}
}

func TestExtractArray_PlainStringElements(t *testing.T) {
	tips, err := ExtractArray[TaxTip](`["Claim input GST credit", {"category": "80C", "tip": "Invest in ELSS"}]`)
	require.NoError(t, err)
	got, ok := tips.Structured()
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "Claim input GST credit", got[0].Tip.String())
	assert.False(t, got[0].Category.Valid)
	assert.Equal(t, "80C", got[1].Category.String())

	anomalies, err := ExtractArray[Anomaly](`["Duplicate vendor payment"]`)
	require.NoError(t, err)
	found, ok := anomalies.Structured()
	require.True(t, ok)
	require.Len(t, found, 1)
	assert.Equal(t, "Duplicate vendor payment", found[0].Description.String())
}
