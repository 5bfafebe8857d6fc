package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	BudgetActive BudgetStatus = "active"
	BudgetDraft  BudgetStatus = "draft"
	BudgetClosed BudgetStatus = "closed"
)

const (
	// DefaultAlertThreshold applies when a budget has no positive threshold.
	DefaultAlertThreshold = 80.0

	// UncategorizedName and UncategorizedColor label expenses without a category.
	UncategorizedName  = "Uncategorized"
	UncategorizedColor = "#6B7280"

	// UnassignedDepartment groups budgets without a department.
	UnassignedDepartment = "Unassigned"
)

type (
	TransactionType string
	BudgetStatus    string

	CategoryRef struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		ColorCode       string `json:"color_code,omitempty"`
		IsGSTApplicable bool   `json:"is_gst_applicable"`
	}

	VendorRef struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category,omitempty"`
	}

	ProjectRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID              string          `json:"id"`
		Type            TransactionType `json:"transaction_type"`
		Amount          decimal.Decimal `json:"amount"`
		GSTAmount       decimal.Decimal `json:"gst_amount"`
		TDSAmount       decimal.Decimal `json:"tds_amount"`
		Description     string          `json:"description"`
		ReferenceNumber string          `json:"reference_number,omitempty"`
		TransactionDate Date            `json:"transaction_date"`
		CategoryID      string          `json:"category_id,omitempty"`
		VendorID        string          `json:"vendor_id,omitempty"`
		ProjectID       string          `json:"project_id,omitempty"`
		InvoiceURL      string          `json:"invoice_url,omitempty"`
		CreatedBy       string          `json:"created_by,omitempty"`
		CreatedAt       time.Time       `json:"created_at"`
		UpdatedAt       time.Time       `json:"updated_at"`

		Category *CategoryRef `json:"category,omitempty"`
		Vendor   *VendorRef   `json:"vendor,omitempty"`
		Project  *ProjectRef  `json:"project,omitempty"`
	}

	// TransactionUpdate carries the mutable fields of a transaction; nil means unchanged.
	TransactionUpdate struct {
		Type            *TransactionType `json:"transaction_type,omitempty"`
		Amount          *decimal.Decimal `json:"amount,omitempty"`
		GSTAmount       *decimal.Decimal `json:"gst_amount,omitempty"`
		TDSAmount       *decimal.Decimal `json:"tds_amount,omitempty"`
		Description     *string          `json:"description,omitempty"`
		ReferenceNumber *string          `json:"reference_number,omitempty"`
		TransactionDate *Date            `json:"transaction_date,omitempty"`
		CategoryID      *string          `json:"category_id,omitempty"`
		VendorID        *string          `json:"vendor_id,omitempty"`
		ProjectID       *string          `json:"project_id,omitempty"`
		InvoiceURL      *string          `json:"invoice_url,omitempty"`
	}

	TransactionFilter struct {
		StartDate  *Date
		EndDate    *Date
		Type       TransactionType
		CategoryID string
		VendorID   string
		ProjectID  string
	}

	Budget struct {
		ID              string          `json:"id"`
		Name            string          `json:"name"`
		Department      string          `json:"department,omitempty"`
		CategoryID      string          `json:"category_id,omitempty"`
		AllocatedAmount decimal.Decimal `json:"allocated_amount"`
		SpentAmount     decimal.Decimal `json:"spent_amount"`
		PeriodStart     Date            `json:"period_start"`
		PeriodEnd       Date            `json:"period_end"`
		AlertThreshold  float64         `json:"alert_threshold"`
		Status          BudgetStatus    `json:"status"`
		CreatedBy       string          `json:"created_by,omitempty"`
		CreatedAt       time.Time       `json:"created_at"`

		Category *CategoryRef `json:"category,omitempty"`
	}

	BudgetUpdate struct {
		Name            *string          `json:"name,omitempty"`
		Department      *string          `json:"department,omitempty"`
		CategoryID      *string          `json:"category_id,omitempty"`
		AllocatedAmount *decimal.Decimal `json:"allocated_amount,omitempty"`
		SpentAmount     *decimal.Decimal `json:"spent_amount,omitempty"`
		PeriodStart     *Date            `json:"period_start,omitempty"`
		PeriodEnd       *Date            `json:"period_end,omitempty"`
		AlertThreshold  *float64         `json:"alert_threshold,omitempty"`
		Status          *BudgetStatus    `json:"status,omitempty"`
	}

	BudgetFilter struct {
		Department string
		Status     BudgetStatus
		Period     BudgetPeriod
		// AsOf anchors Period; the zero value means no period filtering.
		AsOf Date
	}

	UserProfile struct {
		ID          string    `json:"id"`
		Email       string    `json:"email"`
		FullName    string    `json:"full_name"`
		Role        string    `json:"role"`
		CompanyName string    `json:"company_name,omitempty"`
		Phone       string    `json:"phone,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}

	InsightKind string

	Insight struct {
		ID        string      `json:"id"`
		UserID    string      `json:"user_id"`
		Kind      InsightKind `json:"type"`
		Query     string      `json:"query"`
		Response  string      `json:"response"`
		CreatedAt time.Time   `json:"timestamp"`
	}
)

const (
	InsightQuery        InsightKind = "query"
	InsightFileAnalysis InsightKind = "file_analysis"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDateRange   = errors.New("period end must not be before period start")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyQuery         = errors.New("empty query")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrInvalidStatus      = errors.New("invalid budget status")
	ErrInvalidThreshold   = errors.New("alert threshold must be between 0 and 100")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s BudgetStatus) Valid() bool {
	switch s {
	case BudgetActive, BudgetDraft, BudgetClosed:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.GSTAmount.IsNegative() || t.TDSAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if t.TransactionDate.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 500 {
		return ErrDescriptionTooLong
	}
	return nil
}

// Apply returns a copy of t with every non-nil field of u applied.
func (u TransactionUpdate) Apply(t Transaction) Transaction {
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.GSTAmount != nil {
		t.GSTAmount = *u.GSTAmount
	}
	if u.TDSAmount != nil {
		t.TDSAmount = *u.TDSAmount
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.ReferenceNumber != nil {
		t.ReferenceNumber = *u.ReferenceNumber
	}
	if u.TransactionDate != nil {
		t.TransactionDate = *u.TransactionDate
	}
	if u.CategoryID != nil {
		t.CategoryID = *u.CategoryID
	}
	if u.VendorID != nil {
		t.VendorID = *u.VendorID
	}
	if u.ProjectID != nil {
		t.ProjectID = *u.ProjectID
	}
	if u.InvoiceURL != nil {
		t.InvoiceURL = *u.InvoiceURL
	}
	return t
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.AllocatedAmount.IsNegative() || b.SpentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if b.PeriodStart.IsZero() || b.PeriodEnd.IsZero() {
		return ErrInvalidDate
	}
	if b.PeriodEnd.Before(b.PeriodStart.Time) {
		return ErrInvalidDateRange
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return ErrInvalidThreshold
	}
	if !b.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (u BudgetUpdate) Apply(b Budget) Budget {
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Department != nil {
		b.Department = *u.Department
	}
	if u.CategoryID != nil {
		b.CategoryID = *u.CategoryID
	}
	if u.AllocatedAmount != nil {
		b.AllocatedAmount = *u.AllocatedAmount
	}
	if u.SpentAmount != nil {
		b.SpentAmount = *u.SpentAmount
	}
	if u.PeriodStart != nil {
		b.PeriodStart = *u.PeriodStart
	}
	if u.PeriodEnd != nil {
		b.PeriodEnd = *u.PeriodEnd
	}
	if u.AlertThreshold != nil {
		b.AlertThreshold = *u.AlertThreshold
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	return b
}

// Threshold returns the alert threshold in percent, substituting the default for unset values.
func (b Budget) Threshold() float64 {
	if b.AlertThreshold <= 0 {
		return DefaultAlertThreshold
	}
	return b.AlertThreshold
}
