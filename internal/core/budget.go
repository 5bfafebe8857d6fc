package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod selects budgets relative to today.
type BudgetPeriod string

const (
	PeriodCurrentBudgets  BudgetPeriod = "current"
	PeriodUpcomingBudgets BudgetPeriod = "upcoming"
	PeriodPastBudgets     BudgetPeriod = "past"
)

func (p BudgetPeriod) Valid() bool {
	switch p {
	case "", PeriodCurrentBudgets, PeriodUpcomingBudgets, PeriodPastBudgets:
		return true
	}
	return false
}

// BudgetHealth classifies a budget by utilisation.
type BudgetHealth string

const (
	HealthOnTrack BudgetHealth = "on_track"
	HealthAtRisk  BudgetHealth = "at_risk"
	HealthOverrun BudgetHealth = "overrun"
)

type (
	// BudgetView is a budget with the figures derived at read time.
	BudgetView struct {
		Budget
		UtilizationPercentage float64         `json:"utilization_percentage"`
		RemainingAmount       decimal.Decimal `json:"remaining_amount"`
		DaysRemaining         int             `json:"days_remaining"`
	}

	BudgetPerformanceSummary struct {
		TotalBudgets       int             `json:"total_budgets"`
		TotalAllocated     decimal.Decimal `json:"total_allocated"`
		TotalSpent         decimal.Decimal `json:"total_spent"`
		TotalRemaining     decimal.Decimal `json:"total_remaining"`
		OverrunCount       int             `json:"overrun_count"`
		OnTrackCount       int             `json:"on_track_count"`
		AtRiskCount        int             `json:"at_risk_count"`
		AverageUtilization float64         `json:"average_utilization"`
	}

	DepartmentBudget struct {
		Department   string          `json:"department"`
		Allocated    decimal.Decimal `json:"allocated"`
		Spent        decimal.Decimal `json:"spent"`
		BudgetsCount int             `json:"budgets_count"`
		Utilization  float64         `json:"utilization"`
		Remaining    decimal.Decimal `json:"remaining"`
	}

	BudgetTrend struct {
		Month          string          `json:"month"`
		TotalAllocated decimal.Decimal `json:"total_allocated"`
		TotalSpent     decimal.Decimal `json:"total_spent"`
		BudgetCount    int             `json:"budget_count"`
		Utilization    float64         `json:"utilization"`
	}
)

// NewBudgetView derives utilisation, remaining amount and days remaining.
func NewBudgetView(b Budget, now time.Time) BudgetView {
	return BudgetView{
		Budget:                b,
		UtilizationPercentage: b.Utilization(),
		RemainingAmount:       b.AllocatedAmount.Sub(b.SpentAmount),
		DaysRemaining:         DaysUntil(b.PeriodEnd, now),
	}
}

// Utilization is spent over allocated in percent, zero when nothing is allocated.
func (b Budget) Utilization() float64 {
	return Percent(b.SpentAmount, b.AllocatedAmount)
}

// Health uses the same inclusive boundaries as the alerting rules.
func (b Budget) Health() BudgetHealth {
	u := b.Utilization()
	switch {
	case u >= 100:
		return HealthOverrun
	case u >= b.Threshold():
		return HealthAtRisk
	default:
		return HealthOnTrack
	}
}

// MatchesPeriod reports whether the budget falls in p relative to today.
func (b Budget) MatchesPeriod(p BudgetPeriod, today Date) bool {
	switch p {
	case PeriodCurrentBudgets:
		return !b.PeriodStart.After(today.Time) && !b.PeriodEnd.Before(today.Time)
	case PeriodUpcomingBudgets:
		return b.PeriodStart.After(today.Time)
	case PeriodPastBudgets:
		return b.PeriodEnd.Before(today.Time)
	default:
		return true
	}
}

// SummarizeBudgets aggregates the performance of the given budgets.
func SummarizeBudgets(budgets []Budget) BudgetPerformanceSummary {
	s := BudgetPerformanceSummary{TotalBudgets: len(budgets)}
	for _, b := range budgets {
		s.TotalAllocated = s.TotalAllocated.Add(b.AllocatedAmount)
		s.TotalSpent = s.TotalSpent.Add(b.SpentAmount)
		switch b.Health() {
		case HealthOverrun:
			s.OverrunCount++
		case HealthAtRisk:
			s.AtRiskCount++
		default:
			s.OnTrackCount++
		}
	}
	s.TotalRemaining = s.TotalAllocated.Sub(s.TotalSpent)
	s.AverageUtilization = Percent(s.TotalSpent, s.TotalAllocated)
	return s
}

// DepartmentBreakdown groups budgets by department in first-seen order.
func DepartmentBreakdown(budgets []Budget) []DepartmentBudget {
	index := make(map[string]int)
	out := []DepartmentBudget{}
	for _, b := range budgets {
		dept := b.Department
		if dept == "" {
			dept = UnassignedDepartment
		}
		i, ok := index[dept]
		if !ok {
			i = len(out)
			index[dept] = i
			out = append(out, DepartmentBudget{Department: dept})
		}
		out[i].Allocated = out[i].Allocated.Add(b.AllocatedAmount)
		out[i].Spent = out[i].Spent.Add(b.SpentAmount)
		out[i].BudgetsCount++
	}
	for i := range out {
		out[i].Utilization = Percent(out[i].Spent, out[i].Allocated)
		out[i].Remaining = out[i].Allocated.Sub(out[i].Spent)
	}
	return out
}

// BudgetTrends groups budgets that started within the last months months and
// have already ended by the month of their period start, ascending.
func BudgetTrends(budgets []Budget, months int, now time.Time) []BudgetTrend {
	today := DateOf(now)
	from := Date{today.AddDate(0, -months, 0)}
	index := make(map[string]int)
	out := []BudgetTrend{}
	for _, b := range budgets {
		if b.PeriodStart.Before(from.Time) || b.PeriodEnd.After(today.Time) {
			continue
		}
		key := b.PeriodStart.MonthKey()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, BudgetTrend{Month: key})
		}
		out[i].TotalAllocated = out[i].TotalAllocated.Add(b.AllocatedAmount)
		out[i].TotalSpent = out[i].TotalSpent.Add(b.SpentAmount)
		out[i].BudgetCount++
	}
	for i := range out {
		out[i].Utilization = Percent(out[i].TotalSpent, out[i].TotalAllocated)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// AlertType and AlertPriority describe a budget alert.
type (
	AlertType     string
	AlertPriority string
)

const (
	AlertOverrun   AlertType = "overrun"
	AlertThreshold AlertType = "threshold"
	AlertExpiring  AlertType = "expiring"

	PriorityCritical AlertPriority = "critical"
	PriorityHigh     AlertPriority = "high"
	PriorityMedium   AlertPriority = "medium"
	PriorityLow      AlertPriority = "low"
)

// ExpiryWarningDays is how close to its end a budget starts raising expiring alerts.
const ExpiryWarningDays = 7

// Rank orders priorities from most to least urgent.
func (p AlertPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

type BudgetAlert struct {
	Type          AlertType     `json:"type"`
	Priority      AlertPriority `json:"priority"`
	BudgetID      string        `json:"budget_id"`
	BudgetName    string        `json:"budget_name"`
	Message       string        `json:"message"`
	Utilization   float64       `json:"utilization,omitempty"`
	DaysRemaining int           `json:"days_remaining,omitempty"`
}

// AlertsFor evaluates a single budget. A budget yields at most one spend alert
// (overrun or threshold) and, independently, an expiring alert.
func AlertsFor(b Budget, now time.Time) []BudgetAlert {
	var alerts []BudgetAlert
	u := b.Utilization()
	switch {
	case u >= 100:
		over := b.SpentAmount.Sub(b.AllocatedAmount)
		alerts = append(alerts, BudgetAlert{
			Type:        AlertOverrun,
			Priority:    PriorityCritical,
			BudgetID:    b.ID,
			BudgetName:  b.Name,
			Message:     "Budget exceeded by ₹" + FormatIndianNumber(over),
			Utilization: u,
		})
	case u >= b.Threshold():
		priority := PriorityMedium
		if u >= 90 {
			priority = PriorityHigh
		}
		alerts = append(alerts, BudgetAlert{
			Type:        AlertThreshold,
			Priority:    priority,
			BudgetID:    b.ID,
			BudgetName:  b.Name,
			Message:     fmt.Sprintf("Budget utilization at %.1f%%", u),
			Utilization: u,
		})
	}

	if days := DaysUntil(b.PeriodEnd, now); days > 0 && days <= ExpiryWarningDays {
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		alerts = append(alerts, BudgetAlert{
			Type:          AlertExpiring,
			Priority:      PriorityMedium,
			BudgetID:      b.ID,
			BudgetName:    b.Name,
			Message:       fmt.Sprintf("Budget expires in %d %s", days, unit),
			DaysRemaining: days,
		})
	}
	return alerts
}

// BudgetAlerts evaluates every budget and orders the alerts by priority rank.
// Alerts of equal rank keep the order in which their budgets were given.
func BudgetAlerts(budgets []Budget, now time.Time) []BudgetAlert {
	alerts := []BudgetAlert{}
	for _, b := range budgets {
		alerts = append(alerts, AlertsFor(b, now)...)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority.Rank() < alerts[j].Priority.Rank()
	})
	return alerts
}
