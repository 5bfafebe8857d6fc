package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	clock := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func seedReferences(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.CreateCategory(ctx, core.CategoryRef{ID: "cat-travel", Name: "Travel", ColorCode: "#3B82F6", IsGSTApplicable: true}))
	require.NoError(t, repo.CreateVendor(ctx, core.VendorRef{ID: "ven-air", Name: "Air India", Category: "airline"}))
	require.NoError(t, repo.CreateProject(ctx, core.ProjectRef{ID: "prj-1", Name: "Expansion"}))
}

func newTx(id string, typ core.TransactionType, amount string, day core.Date) core.Transaction {
	return core.Transaction{
		ID:              id,
		Type:            typ,
		Amount:          decimal.RequireFromString(amount),
		Description:     "tx " + id,
		TransactionDate: day,
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestTransactions_CRUD(t *testing.T) {
	repo := newTestRepo(t)
	seedReferences(t, repo)
	ctx := context.Background()

	in := newTx("t1", core.Expense, "1180.50", core.NewDate(2026, 10, 3))
	in.GSTAmount = decimal.RequireFromString("180.50")
	in.CategoryID = "cat-travel"
	in.VendorID = "ven-air"
	in.ProjectID = "prj-1"

	created, err := repo.CreateTransaction(ctx, in)
	require.NoError(t, err)
	assert.True(t, created.Amount.Equal(in.Amount))
	assert.True(t, created.GSTAmount.Equal(in.GSTAmount))
	assert.Equal(t, core.NewDate(2026, 10, 3), created.TransactionDate)
	require.NotNil(t, created.Category)
	assert.Equal(t, "Travel", created.Category.Name)
	assert.True(t, created.Category.IsGSTApplicable)
	require.NotNil(t, created.Vendor)
	assert.Equal(t, "Air India", created.Vendor.Name)
	require.NotNil(t, created.Project)
	assert.Equal(t, "Expansion", created.Project.Name)
	assert.False(t, created.CreatedAt.IsZero())

	created.Description = "Flight to Pune"
	created.CategoryID = ""
	updated, err := repo.UpdateTransaction(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Flight to Pune", updated.Description)
	assert.Nil(t, updated.Category)

	require.NoError(t, repo.DeleteTransaction(ctx, "t1"))
	_, err = repo.GetTransaction(ctx, "t1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, "t1"), core.ErrNotFound)
}

func TestUpdateTransaction_Missing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.UpdateTransaction(context.Background(), newTx("nope", core.Income, "1", core.NewDate(2026, 1, 1)))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListTransactions_Filters(t *testing.T) {
	repo := newTestRepo(t)
	seedReferences(t, repo)
	ctx := context.Background()

	fixtures := []core.Transaction{
		newTx("sep", core.Income, "100", core.NewDate(2026, 9, 30)),
		newTx("oct1", core.Expense, "40", core.NewDate(2026, 10, 1)),
		newTx("oct2", core.Income, "60", core.NewDate(2026, 10, 15)),
		newTx("nov", core.Expense, "10", core.NewDate(2026, 11, 1)),
	}
	fixtures[1].CategoryID = "cat-travel"
	for _, f := range fixtures {
		_, err := repo.CreateTransaction(ctx, f)
		require.NoError(t, err)
	}

	start, end := core.NewDate(2026, 10, 1), core.NewDate(2026, 10, 31)
	got, err := repo.ListTransactions(ctx, core.TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "oct2", got[0].ID)
	assert.Equal(t, "oct1", got[1].ID)

	got, err = repo.ListTransactions(ctx, core.TransactionFilter{Type: core.Expense})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.ListTransactions(ctx, core.TransactionFilter{CategoryID: "cat-travel"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "oct1", got[0].ID)

	recent, err := repo.RecentTransactions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "nov", recent[0].ID)
}

func TestBudgets_FiltersAndSpent(t *testing.T) {
	repo := newTestRepo(t)
	seedReferences(t, repo)
	ctx := context.Background()

	mk := func(id, dept string, start, end core.Date, status core.BudgetStatus) core.Budget {
		return core.Budget{
			ID:              id,
			Name:            "Budget " + id,
			Department:      dept,
			AllocatedAmount: decimal.NewFromInt(1000),
			PeriodStart:     start,
			PeriodEnd:       end,
			AlertThreshold:  75,
			Status:          status,
		}
	}
	current := mk("current", "Sales", core.NewDate(2026, 10, 1), core.NewDate(2026, 10, 31), core.BudgetActive)
	current.CategoryID = "cat-travel"
	fixtures := []core.Budget{
		current,
		mk("upcoming", "Sales", core.NewDate(2026, 11, 1), core.NewDate(2026, 11, 30), core.BudgetDraft),
		mk("past", "Ops", core.NewDate(2026, 9, 1), core.NewDate(2026, 9, 30), core.BudgetClosed),
	}
	for _, b := range fixtures {
		_, err := repo.CreateBudget(ctx, b)
		require.NoError(t, err)
	}

	today := core.NewDate(2026, 10, 16)
	for period, want := range map[core.BudgetPeriod]string{
		core.PeriodCurrentBudgets:  "current",
		core.PeriodUpcomingBudgets: "upcoming",
		core.PeriodPastBudgets:     "past",
	} {
		got, err := repo.ListBudgets(ctx, core.BudgetFilter{Period: period, AsOf: today})
		require.NoError(t, err)
		require.Len(t, got, 1, period)
		assert.Equal(t, want, got[0].ID)
	}

	sales, err := repo.ListBudgets(ctx, core.BudgetFilter{Department: "Sales"})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "upcoming", sales[0].ID, "newest first")

	active, err := repo.ListBudgets(ctx, core.BudgetFilter{Status: core.BudgetActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].Category)
	assert.Equal(t, "#3B82F6", active[0].Category.ColorCode)
	assert.Equal(t, 75.0, active[0].AlertThreshold)

	require.NoError(t, repo.SetBudgetSpent(ctx, "current", decimal.RequireFromString("812.25")))
	b, err := repo.GetBudget(ctx, "current")
	require.NoError(t, err)
	assert.True(t, b.SpentAmount.Equal(decimal.RequireFromString("812.25")))

	assert.ErrorIs(t, repo.SetBudgetSpent(ctx, "missing", decimal.Zero), core.ErrNotFound)
	require.NoError(t, repo.DeleteBudget(ctx, "past"))
	_, err = repo.GetBudget(ctx, "past")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestProfiles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetProfile(ctx, "user_1")
	require.ErrorIs(t, err, core.ErrNotFound)

	p, err := repo.CreateProfile(ctx, core.UserProfile{ID: "user_1", Email: "a@example.com", FullName: "User", Role: "viewer"})
	require.NoError(t, err)
	assert.Equal(t, "viewer", p.Role)

	_, err = repo.CreateProfile(ctx, core.UserProfile{ID: "user_2", Email: "b@example.com", FullName: "B", Role: "owner"})
	assert.Error(t, err, "role check constraint")
}

func TestInsights_NewestFirstWithLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		require.NoError(t, repo.SaveInsight(ctx, core.Insight{
			ID:        "in-" + string(rune('a'+i)),
			UserID:    "user_1",
			Kind:      core.InsightQuery,
			Query:     "q",
			Response:  "r",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.SaveInsight(ctx, core.Insight{ID: "other", UserID: "user_2", Kind: core.InsightFileAnalysis, CreatedAt: base}))

	got, err := repo.ListInsights(ctx, "user_1", 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "in-l", got[0].ID)
	assert.Equal(t, core.InsightQuery, got[0].Kind)
}

func TestListCategories(t *testing.T) {
	repo := newTestRepo(t)
	seedReferences(t, repo)

	cats, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Travel", cats[0].Name)
}
