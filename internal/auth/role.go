// Package auth bridges identity-provider sessions to database sessions and
// decides what each role may see and do.
package auth

import "strings"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleViewer     Role = "viewer"
)

// ParseRole maps a stored role name to a Role. Unknown and empty names are viewers.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleAccountant:
		return RoleAccountant
	default:
		return RoleViewer
	}
}

type Capability string

const (
	CapViewDashboards     Capability = "view_dashboards"
	CapViewTaxAnalytics   Capability = "view_tax_analytics"
	CapManageTransactions Capability = "manage_transactions"
	CapManageBudgets      Capability = "manage_budgets"
	CapManageUsers        Capability = "manage_users"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapViewDashboards, CapViewTaxAnalytics, CapManageTransactions, CapManageBudgets, CapManageUsers,
	},
	RoleAccountant: {
		CapViewDashboards, CapViewTaxAnalytics, CapManageTransactions, CapManageBudgets,
	},
	RoleViewer: {
		CapViewDashboards,
	},
}

// Capabilities lists what r may do.
func (r Role) Capabilities() []Capability {
	caps := roleCapabilities[ParseRole(string(r))]
	return append([]Capability(nil), caps...)
}

func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[ParseRole(string(r))] {
		if have == c {
			return true
		}
	}
	return false
}

// NavItem is one entry of the dashboard menu.
type NavItem struct {
	Name string `json:"name"`
	Href string `json:"href"`
	Icon string `json:"icon"`

	requires Capability
}

var navigation = []NavItem{
	{Name: "Executive Overview", Href: "/dashboard", Icon: "LayoutDashboard", requires: CapViewDashboards},
	{Name: "Budget Analytics", Href: "/dashboard/budget-analytics", Icon: "TrendingUp", requires: CapViewDashboards},
	{Name: "Cash Flow Monitor", Href: "/dashboard/cash-flow", Icon: "CreditCard", requires: CapViewDashboards},
	{Name: "AI Insights", Href: "/dashboard/ai-insights", Icon: "Brain", requires: CapViewDashboards},
	{Name: "GST & Tax Analytics", Href: "/dashboard/tax-analytics", Icon: "FileText", requires: CapViewTaxAnalytics},
}

// Navigation returns the menu entries r may open, in menu order.
func Navigation(r Role) []NavItem {
	items := make([]NavItem, 0, len(navigation))
	for _, item := range navigation {
		if r.Can(item.requires) {
			items = append(items, item)
		}
	}
	return items
}
