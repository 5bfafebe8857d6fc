package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleAccountant, ParseRole(" Accountant "))
	assert.Equal(t, RoleViewer, ParseRole("viewer"))
	assert.Equal(t, RoleViewer, ParseRole(""))
	assert.Equal(t, RoleViewer, ParseRole("superuser"))
}

func TestRole_Can(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapManageUsers, true},
		{RoleAdmin, CapViewTaxAnalytics, true},
		{RoleAccountant, CapManageTransactions, true},
		{RoleAccountant, CapManageBudgets, true},
		{RoleAccountant, CapManageUsers, false},
		{RoleViewer, CapViewDashboards, true},
		{RoleViewer, CapViewTaxAnalytics, false},
		{RoleViewer, CapManageTransactions, false},
		{Role("intern"), CapViewDashboards, true},
		{Role("intern"), CapManageBudgets, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Can(tt.cap))
		})
	}
}

func TestNavigation(t *testing.T) {
	names := func(items []NavItem) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Name
		}
		return out
	}

	assert.Equal(t, []string{
		"Executive Overview", "Budget Analytics", "Cash Flow Monitor", "AI Insights", "GST & Tax Analytics",
	}, names(Navigation(RoleAccountant)))
	assert.Len(t, Navigation(RoleAdmin), 5)

	viewer := Navigation(RoleViewer)
	assert.Equal(t, []string{"Executive Overview", "Budget Analytics", "Cash Flow Monitor", "AI Insights"}, names(viewer))
	assert.Equal(t, "/dashboard/ai-insights", viewer[3].Href)
}

func TestSession_RoleComesFromProfile(t *testing.T) {
	var nilSession *Session
	assert.Equal(t, RoleViewer, nilSession.Role())
	assert.Equal(t, RoleViewer, (&Session{}).Role())

	s := &Session{Profile: profileWithRole("accountant")}
	assert.Equal(t, RoleAccountant, s.Role())
	assert.True(t, s.Can(CapViewTaxAnalytics))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "cookie-token", TokenFromRequest(r))
}
