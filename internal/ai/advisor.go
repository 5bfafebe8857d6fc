package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const DefaultForecastPeriod = "6months"

type (
	InvoiceExtraction struct {
		VendorName    FlexString `json:"vendor_name"`
		Amount        FlexNumber `json:"amount"`
		InvoiceNumber FlexString `json:"invoice_number"`
		Date          FlexString `json:"date"`
		GSTAmount     FlexNumber `json:"gst_amount"`
		Description   FlexString `json:"description"`
		PaymentMode   FlexString `json:"payment_mode"`
		Category      FlexString `json:"category"`
		ExtractedText FlexString `json:"extracted_text"`
	}

	Forecast struct {
		ForecastPeriod    FlexString  `json:"forecast_period"`
		PredictedIncome   FlexNumber  `json:"predicted_income"`
		PredictedExpenses FlexNumber  `json:"predicted_expenses"`
		PredictedCashFlow FlexNumber  `json:"predicted_cash_flow"`
		KeyTrends         FlexStrings `json:"key_trends"`
		Recommendations   FlexStrings `json:"recommendations"`
		RiskFactors       FlexStrings `json:"risk_factors"`
		ConfidenceLevel   FlexString  `json:"confidence_level"`
		Analysis          FlexString  `json:"analysis"`
	}

	Anomaly struct {
		Type          FlexString `json:"type"`
		Severity      FlexString `json:"severity"`
		Description   FlexString `json:"description"`
		TransactionID FlexString `json:"transaction_id"`
		Suggestion    FlexString `json:"suggestion"`
	}

	TaxTip struct {
		Category         FlexString `json:"category"`
		Tip              FlexString `json:"tip"`
		PotentialSavings FlexString `json:"potential_savings"`
		Implementation   FlexString `json:"implementation"`
	}
)

// UnmarshalJSON also accepts a bare string, taken as the description.
func (a *Anomaly) UnmarshalJSON(b []byte) error {
	type plain Anomaly
	if s, ok := bareString(b); ok {
		*a = Anomaly{Description: NewFlexString(s)}
		return nil
	}
	return json.Unmarshal(b, (*plain)(a))
}

// UnmarshalJSON also accepts a bare string, taken as the tip.
func (t *TaxTip) UnmarshalJSON(b []byte) error {
	type plain TaxTip
	if s, ok := bareString(b); ok {
		*t = TaxTip{Tip: NewFlexString(s)}
		return nil
	}
	return json.Unmarshal(b, (*plain)(t))
}

func bareString(b []byte) (string, bool) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false
	}
	return s, true
}

// InvoiceFallback is the extraction reported when the reply held no usable JSON.
func InvoiceFallback(raw string) InvoiceExtraction {
	return InvoiceExtraction{
		Description:   NewFlexString("Invoice analysis completed"),
		ExtractedText: NewFlexString(raw),
	}
}

// ForecastFallback returns the forecast reported for period when the reply
// held no usable JSON.
func ForecastFallback(period string) func(raw string) Forecast {
	return func(raw string) Forecast {
		return Forecast{
			ForecastPeriod:  NewFlexString(period),
			Analysis:        NewFlexString(raw),
			ConfidenceLevel: NewFlexString("medium"),
		}
	}
}

func taxTipFallback(raw string) []TaxTip {
	return []TaxTip{{
		Category:         NewFlexString("general"),
		Tip:              NewFlexString("Review your financial data for tax optimization opportunities"),
		PotentialSavings: NewFlexString("Varies"),
		Implementation:   NewFlexString(raw),
	}}
}

// Advisor runs the financial prompts against a Provider. Simple prompts go to
// the fast model, document and forecasting work to the pro model.
type Advisor struct {
	provider Provider
	fast     string
	pro      string
	logger   *applog.Logger
}

type AdvisorOption func(*Advisor)

func WithModels(fast, pro string) AdvisorOption {
	return func(a *Advisor) {
		if fast != "" {
			a.fast = fast
		}
		if pro != "" {
			a.pro = pro
		}
	}
}

func NewAdvisor(p Provider, logger *applog.Logger, opts ...AdvisorOption) *Advisor {
	a := &Advisor{
		provider: p,
		fast:     DefaultFastModel,
		pro:      DefaultProModel,
		logger:   logger.WithComponent(applog.ComponentAI),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Advisor) generate(ctx context.Context, op string, req Request) (string, error) {
	text, err := a.provider.Generate(ctx, req)
	if err != nil {
		a.logger.ErrorContext(ctx, "AI request failed",
			applog.FieldOperation, op,
			applog.FieldModel, req.Model,
			applog.FieldError, err)
		return "", err
	}
	a.logger.DebugContext(ctx, "AI request completed",
		applog.FieldOperation, op,
		applog.FieldModel, req.Model,
		"response_chars", len(text))
	return text, nil
}

func (a *Advisor) parseFailed(ctx context.Context, op string, err error) {
	a.logger.WarnContext(ctx, "Failed to parse JSON from AI response",
		applog.FieldOperation, op,
		applog.FieldError, err)
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// GenerateFinancialInsights answers query. With non-nil data the query is
// wrapped in a prompt carrying the data and the INR business context.
func (a *Advisor) GenerateFinancialInsights(ctx context.Context, query string, data any) (string, error) {
	prompt := query
	if data != nil {
		prompt = fmt.Sprintf(`
Based on the following financial data: %s

Query: %s

Please provide insights in Indian Rupees (₹) format and consider Indian business context.
Keep the response concise and actionable.
`, indentJSON(data), query)
	}

	text, err := a.generate(ctx, "insights", Request{Model: a.fast, Prompt: prompt})
	if err != nil {
		return "", core.NewUserError("Failed to generate AI insights. Please try again.", err)
	}
	return text, nil
}

const invoicePrompt = `
Analyze this invoice/receipt image and extract the following information in JSON format:
{
  "vendor_name": "string",
  "amount": "number (without currency symbol)",
  "invoice_number": "string",
  "date": "YYYY-MM-DD format",
  "gst_amount": "number (if mentioned)",
  "description": "string (brief description of items/services)",
  "payment_mode": "string (if mentioned)",
  "category": "string (suggested category like office supplies, travel, etc.)"
}

Focus on Indian invoice formats and GST details. If any field is not found, use null.
`

// AnalyzeInvoiceImage extracts invoice fields from an image.
func (a *Advisor) AnalyzeInvoiceImage(ctx context.Context, image InlineData) (Result[InvoiceExtraction], error) {
	text, err := a.generate(ctx, "invoice", Request{Model: a.pro, Prompt: invoicePrompt, Images: []InlineData{image}})
	if err != nil {
		return Result[InvoiceExtraction]{}, core.NewUserError("Failed to analyze invoice. Please try again.", err)
	}
	res, perr := ExtractObject[InvoiceExtraction](text)
	if perr != nil {
		a.parseFailed(ctx, "invoice", perr)
	}
	return res, nil
}

// GenerateFinancialForecast forecasts the next period ("3months", "6months",
// "12months") from historical transactions. An empty period means 6months.
func (a *Advisor) GenerateFinancialForecast(ctx context.Context, history any, period string) (Result[Forecast], error) {
	if period == "" {
		period = DefaultForecastPeriod
	}
	prompt := fmt.Sprintf(`
Analyze the following financial transaction data and provide a %[1]s forecast:
%[2]s

Please provide a forecast in the following JSON format:
{
  "forecast_period": "%[1]s",
  "predicted_income": number,
  "predicted_expenses": number,
  "predicted_cash_flow": number,
  "key_trends": ["trend1", "trend2", "trend3"],
  "recommendations": ["rec1", "rec2", "rec3"],
  "risk_factors": ["risk1", "risk2"],
  "confidence_level": "high/medium/low"
}

Use Indian Rupees context and consider seasonal business patterns in India.
`, period, indentJSON(history))

	text, err := a.generate(ctx, "forecast", Request{Model: a.pro, Prompt: prompt})
	if err != nil {
		return Result[Forecast]{}, core.NewUserError("Failed to generate forecast. Please try again.", err)
	}
	res, perr := ExtractObject[Forecast](text)
	if perr != nil {
		a.parseFailed(ctx, "forecast", perr)
	}
	return res, nil
}

// DetectFinancialAnomalies never fails: provider and parse errors are logged
// and yield an empty list.
func (a *Advisor) DetectFinancialAnomalies(ctx context.Context, transactions any) []Anomaly {
	prompt := fmt.Sprintf(`
Analyze these financial transactions for anomalies or unusual patterns:
%s

Look for:
1. Unusual spending spikes
2. Duplicate transactions
3. Irregular payment patterns
4. Budget threshold breaches
5. Unusual vendor activity

Return results as JSON array:
[
  {
    "type": "anomaly_type",
    "severity": "high/medium/low",
    "description": "description of anomaly",
    "transaction_id": "id if applicable",
    "suggestion": "recommended action"
  }
]
`, indentJSON(transactions))

	text, err := a.generate(ctx, "anomalies", Request{Model: a.fast, Prompt: prompt})
	if err != nil {
		return []Anomaly{}
	}
	res, perr := ExtractArray[Anomaly](text)
	if perr != nil {
		a.parseFailed(ctx, "anomalies", perr)
	}
	anomalies := res.Value(func(string) []Anomaly { return nil })
	if anomalies == nil {
		anomalies = []Anomaly{}
	}
	return anomalies
}

// GetTaxOptimizationTips never fails. A provider error yields an empty list;
// a reply without a JSON array yields one general tip carrying the reply.
func (a *Advisor) GetTaxOptimizationTips(ctx context.Context, summary any) []TaxTip {
	prompt := fmt.Sprintf(`
Based on this financial summary, provide Indian tax optimization suggestions:
%s

Focus on:
1. GST optimization
2. TDS savings
3. Business expense deductions
4. Investment opportunities
5. Compliance improvements

Return as JSON array of actionable tips:
[
  {
    "category": "gst/tds/deductions/investment",
    "tip": "specific actionable advice",
    "potential_savings": "estimated savings amount in INR",
    "implementation": "how to implement this tip"
  }
]

Consider current Indian tax laws and rates.
`, indentJSON(summary))

	text, err := a.generate(ctx, "tax_tips", Request{Model: a.pro, Prompt: prompt})
	if err != nil {
		return []TaxTip{}
	}
	res, perr := ExtractArray[TaxTip](text)
	if perr != nil {
		a.parseFailed(ctx, "tax_tips", perr)
	}
	tips := res.Value(taxTipFallback)
	if tips == nil {
		tips = []TaxTip{}
	}
	return tips
}
