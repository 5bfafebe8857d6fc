package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted records the last request and replies with text or err.
type scripted struct {
	text string
	err  error
	last Request
}

func (s *scripted) Generate(_ context.Context, req Request) (string, error) {
	s.last = req
	return s.text, s.err
}

func newTestAdvisor(p Provider) *Advisor {
	return NewAdvisor(p, applog.Discard())
}

func TestAdvisor_GenerateFinancialInsights(t *testing.T) {
	p := &scripted{text: "Cut travel spend."}
	a := newTestAdvisor(p)

	got, err := a.GenerateFinancialInsights(context.Background(), "How do I save?", map[string]int{"income": 1000})

	require.NoError(t, err)
	assert.Equal(t, "Cut travel spend.", got)
	assert.Equal(t, DefaultFastModel, p.last.Model)
	assert.Contains(t, p.last.Prompt, "Query: How do I save?")
	assert.Contains(t, p.last.Prompt, `"income": 1000`)
	assert.Contains(t, p.last.Prompt, "Indian Rupees (₹)")
}

func TestAdvisor_GenerateFinancialInsights_WithoutData(t *testing.T) {
	p := &scripted{text: "ok"}
	a := newTestAdvisor(p)

	_, err := a.GenerateFinancialInsights(context.Background(), "plain question", nil)

	require.NoError(t, err)
	assert.Equal(t, "plain question", p.last.Prompt)
}

func TestAdvisor_GenerateFinancialInsights_Failure(t *testing.T) {
	a := newTestAdvisor(&scripted{err: errors.New("quota exceeded")})

	_, err := a.GenerateFinancialInsights(context.Background(), "q", nil)

	msg, ok := core.UserMessage(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to generate AI insights. Please try again.", msg)
}

func TestAdvisor_AnalyzeInvoiceImage(t *testing.T) {
	p := &scripted{text: `{"vendor_name": "Acme Supplies", "amount": 1180, "gst_amount": "180", "invoice_number": null}`}
	a := NewAdvisor(p, applog.Discard(), WithModels("", "custom-pro"))

	res, err := a.AnalyzeInvoiceImage(context.Background(), InlineData{MimeType: "image/png", Data: []byte{0x89, 0x50}})

	require.NoError(t, err)
	assert.Equal(t, "custom-pro", p.last.Model)
	require.Len(t, p.last.Images, 1)
	assert.Equal(t, "image/png", p.last.Images[0].MimeType)

	inv, ok := res.Structured()
	require.True(t, ok)
	assert.Equal(t, "Acme Supplies", inv.VendorName.String())
	assert.Equal(t, "180", inv.GSTAmount.Amount.String())
	assert.False(t, inv.InvoiceNumber.Valid)
}

func TestAdvisor_AnalyzeInvoiceImage_Fallback(t *testing.T) {
	a := newTestAdvisor(&scripted{text: "The image is too blurry."})

	res, err := a.AnalyzeInvoiceImage(context.Background(), InlineData{MimeType: "image/jpeg"})

	require.NoError(t, err)
	inv := res.Value(InvoiceFallback)
	assert.Equal(t, "Invoice analysis completed", inv.Description.String())
	assert.Equal(t, "The image is too blurry.", inv.ExtractedText.String())
}

func TestAdvisor_AnalyzeInvoiceImage_Failure(t *testing.T) {
	a := newTestAdvisor(&scripted{err: errors.New("503")})

	_, err := a.AnalyzeInvoiceImage(context.Background(), InlineData{})

	msg, ok := core.UserMessage(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to analyze invoice. Please try again.", msg)
}

func TestAdvisor_GenerateFinancialForecast(t *testing.T) {
	p := &scripted{text: `{"forecast_period": "3months", "predicted_income": 50000, "key_trends": ["Diwali peak"], "confidence_level": "high"}`}
	a := newTestAdvisor(p)

	res, err := a.GenerateFinancialForecast(context.Background(), []int{1, 2}, "3months")

	require.NoError(t, err)
	assert.Equal(t, DefaultProModel, p.last.Model)
	assert.Contains(t, p.last.Prompt, "provide a 3months forecast")
	f, ok := res.Structured()
	require.True(t, ok)
	assert.Equal(t, "50000", f.PredictedIncome.Amount.String())
	assert.Equal(t, FlexStrings{NewFlexString("Diwali peak")}, f.KeyTrends)
}

func TestAdvisor_GenerateFinancialForecast_DefaultPeriodFallback(t *testing.T) {
	p := &scripted{text: "Revenue should grow."}
	a := newTestAdvisor(p)

	res, err := a.GenerateFinancialForecast(context.Background(), nil, "")

	require.NoError(t, err)
	assert.Contains(t, p.last.Prompt, `"forecast_period": "6months"`)
	f := res.Value(ForecastFallback(DefaultForecastPeriod))
	assert.Equal(t, "Revenue should grow.", f.Analysis.String())
}

func TestAdvisor_GenerateFinancialForecast_Failure(t *testing.T) {
	a := newTestAdvisor(&scripted{err: errors.New("boom")})

	_, err := a.GenerateFinancialForecast(context.Background(), nil, "")

	msg, _ := core.UserMessage(err)
	assert.Equal(t, "Failed to generate forecast. Please try again.", msg)
}

func TestAdvisor_DetectFinancialAnomalies(t *testing.T) {
	tests := []struct {
		name  string
		reply *scripted
		want  int
	}{
		{"parsed", &scripted{text: `[{"type": "duplicate"}, {"type": "spike"}]`}, 2},
		{"no array", &scripted{text: "Nothing unusual."}, 0},
		{"broken array", &scripted{text: `[{"type": }]`}, 0},
		{"provider error", &scripted{err: errors.New("timeout")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestAdvisor(tt.reply).DetectFinancialAnomalies(context.Background(), []string{"tx"})
			require.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestAdvisor_GetTaxOptimizationTips(t *testing.T) {
	p := &scripted{text: `Tips: [{"category": "gst", "tip": "Claim input tax credit", "potential_savings": 12000}]`}
	tips := newTestAdvisor(p).GetTaxOptimizationTips(context.Background(), map[string]string{"total_gst": "18000"})

	require.Len(t, tips, 1)
	assert.Equal(t, "gst", tips[0].Category.String())
	assert.Equal(t, "12000", tips[0].PotentialSavings.String())
	assert.True(t, strings.Contains(p.last.Prompt, "Indian tax optimization"))
}

func TestAdvisor_GetTaxOptimizationTips_Fallbacks(t *testing.T) {
	tips := newTestAdvisor(&scripted{text: "Consider Section 80C."}).
		GetTaxOptimizationTips(context.Background(), nil)

	require.Len(t, tips, 1)
	assert.Equal(t, "general", tips[0].Category.String())
	assert.Equal(t, "Review your financial data for tax optimization opportunities", tips[0].Tip.String())
	assert.Equal(t, "Varies", tips[0].PotentialSavings.String())
	assert.Equal(t, "Consider Section 80C.", tips[0].Implementation.String())

	empty := newTestAdvisor(&scripted{err: errors.New("down")}).
		GetTaxOptimizationTips(context.Background(), nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
