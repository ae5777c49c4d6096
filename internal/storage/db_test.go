package storage

import (
	"testing"
	"time"

	"finbot/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testUser int64 = 42

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db *DB
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func strp(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (suite *DBTestSuite) expense(category, amount string) *models.ExpenseRecord {
	return &models.ExpenseRecord{
		UserID:   testUser,
		Category: category,
		Amount:   dec(amount),
	}
}

func (suite *DBTestSuite) TestInsertExpense() {
	rec := suite.expense("🍔 Food", "12.50")
	rec.Subcategory = strp("Lunch")
	rec.Description = "Thali"
	rec.Date = time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)

	id, err := suite.db.InsertExpense(rec)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, rec.ID)
	assert.Greater(suite.T(), id, int64(0))
}

func (suite *DBTestSuite) TestInsertExpenseDefaults() {
	rec := suite.expense("🍔 Food", "5")
	_, err := suite.db.InsertExpense(rec)
	require.NoError(suite.T(), err)

	// Empty description and zero date are filled in on insert.
	assert.Equal(suite.T(), models.NoDescription, rec.Description)
	assert.False(suite.T(), rec.Date.IsZero())
}

func (suite *DBTestSuite) TestInsertExpenseValidation() {
	rec := suite.expense("🍔 Food", "0")
	_, err := suite.db.InsertExpense(rec)
	assert.ErrorIs(suite.T(), err, ErrNonPositiveAmount)

	rec = suite.expense("🍔 Food", "-3.20")
	_, err = suite.db.InsertExpense(rec)
	assert.ErrorIs(suite.T(), err, ErrNonPositiveAmount)

	rec = suite.expense("   ", "10")
	_, err = suite.db.InsertExpense(rec)
	assert.ErrorIs(suite.T(), err, ErrEmptyCategory)
}

func (suite *DBTestSuite) TestCommitExpenseAdjustsTrackedBalance() {
	_, err := suite.db.AdjustBalance(testUser, "Cash", dec("500"), models.AdjustSet)
	require.NoError(suite.T(), err)

	rec := suite.expense("🍔 Food", "50")
	rec.Account = strp("Cash")
	bal, err := suite.db.CommitExpense(rec)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), bal)
	assert.True(suite.T(), bal.Current.Equal(dec("450")), "got %s", bal.Current)

	stored, err := suite.db.GetBalance(testUser, "Cash")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), stored.Current.Equal(dec("450")))
}

func (suite *DBTestSuite) TestCommitExpenseUnknownAccount() {
	rec := suite.expense("🚗 Transport", "120")
	rec.Account = strp("Taxi Wallet")
	bal, err := suite.db.CommitExpense(rec)
	require.NoError(suite.T(), err)

	// No tracked balance for the account: the record is saved but the
	// ledger is untouched and no balance springs into existence.
	assert.Nil(suite.T(), bal)
	_, err = suite.db.GetBalance(testUser, "Taxi Wallet")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	expenses, err := suite.db.ListExpenses(testUser, models.ExpenseFilter{})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), expenses, 1)
}

func (suite *DBTestSuite) TestCommitExpenseNoAccount() {
	rec := suite.expense("🍔 Food", "30")
	bal, err := suite.db.CommitExpense(rec)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), bal)
}

func (suite *DBTestSuite) TestDeleteMostRecentExpense() {
	first := suite.expense("🍔 Food", "10")
	first.Description = "Breakfast"
	_, err := suite.db.InsertExpense(first)
	require.NoError(suite.T(), err)

	second := suite.expense("🚗 Transport", "25")
	second.Description = "Metro"
	_, err = suite.db.InsertExpense(second)
	require.NoError(suite.T(), err)

	deleted, err := suite.db.DeleteMostRecentExpense(testUser)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Metro", deleted.Description)
	assert.True(suite.T(), deleted.Amount.Equal(dec("25")))

	remaining, err := suite.db.ListExpenses(testUser, models.ExpenseFilter{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), remaining, 1)
	assert.Equal(suite.T(), "Breakfast", remaining[0].Description)
}

func (suite *DBTestSuite) TestDeleteMostRecentExpenseEmpty() {
	_, err := suite.db.DeleteMostRecentExpense(testUser)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestDeleteMostRecentExpenseOtherUser() {
	rec := suite.expense("🍔 Food", "10")
	_, err := suite.db.InsertExpense(rec)
	require.NoError(suite.T(), err)

	_, err = suite.db.DeleteMostRecentExpense(testUser + 1)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestListExpensesFilters() {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []struct {
		category string
		account  *string
		amount   string
		offset   time.Duration
	}{
		{"🍔 Food", strp("Cash"), "10", 0},
		{"🍔 Food", strp("UPI"), "20", time.Hour},
		{"🚗 Transport", strp("Cash"), "30", 2 * time.Hour},
	}
	for _, r := range records {
		rec := suite.expense(r.category, r.amount)
		rec.Account = r.account
		rec.Date = base.Add(r.offset)
		_, err := suite.db.InsertExpense(rec)
		require.NoError(suite.T(), err)
	}

	all, err := suite.db.ListExpenses(testUser, models.ExpenseFilter{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), all, 3)
	// Ordered by date descending.
	assert.True(suite.T(), all[0].Amount.Equal(dec("30")))
	assert.True(suite.T(), all[2].Amount.Equal(dec("10")))

	food, err := suite.db.ListExpenses(testUser, models.ExpenseFilter{Category: "🍔 Food"})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), food, 2)

	cash, err := suite.db.ListExpenses(testUser, models.ExpenseFilter{Account: "Cash"})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), cash, 2)

	windowed, err := suite.db.ListExpenses(testUser, models.ExpenseFilter{
		From: base.Add(30 * time.Minute),
		To:   base.Add(90 * time.Minute),
	})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), windowed, 1)
	assert.True(suite.T(), windowed[0].Amount.Equal(dec("20")))

	limited, err := suite.db.ListExpenses(testUser, models.ExpenseFilter{Limit: 2})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), limited, 2)
}

func (suite *DBTestSuite) TestListExpensesIsolatedPerUser() {
	rec := suite.expense("🍔 Food", "10")
	_, err := suite.db.InsertExpense(rec)
	require.NoError(suite.T(), err)

	other, err := suite.db.ListExpenses(testUser+1, models.ExpenseFilter{})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), other)
}

func (suite *DBTestSuite) TestAdjustBalanceSet() {
	bal, err := suite.db.AdjustBalance(testUser, "Cash", dec("1000.25"), models.AdjustSet)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), bal.Initial.Equal(dec("1000.25")))
	assert.True(suite.T(), bal.Current.Equal(dec("1000.25")))

	// Set on an existing account overwrites current but keeps initial.
	bal, err = suite.db.AdjustBalance(testUser, "Cash", dec("800"), models.AdjustSet)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), bal.Initial.Equal(dec("1000.25")))
	assert.True(suite.T(), bal.Current.Equal(dec("800")))
	assert.True(suite.T(), bal.Spent().Equal(dec("200.25")))
}

func (suite *DBTestSuite) TestAdjustBalanceRoundTrip() {
	_, err := suite.db.AdjustBalance(testUser, "UPI", dec("300"), models.AdjustSet)
	require.NoError(suite.T(), err)

	_, err = suite.db.AdjustBalance(testUser, "UPI", dec("0.1"), models.AdjustAdd)
	require.NoError(suite.T(), err)
	bal, err := suite.db.AdjustBalance(testUser, "UPI", dec("0.1"), models.AdjustSubtract)
	require.NoError(suite.T(), err)

	// Exact decimal arithmetic: add then subtract restores the balance.
	assert.True(suite.T(), bal.Current.Equal(dec("300")), "got %s", bal.Current)
}

func (suite *DBTestSuite) TestAdjustBalanceCreatesMissingAccount() {
	bal, err := suite.db.AdjustBalance(testUser, "Mobile Wallet", dec("75"), models.AdjustAdd)
	require.NoError(suite.T(), err)

	// Adjusting an untracked account seeds it at the amount.
	assert.True(suite.T(), bal.Initial.Equal(dec("75")))
	assert.True(suite.T(), bal.Current.Equal(dec("75")))
}

func (suite *DBTestSuite) TestAdjustBalanceNegativeAllowed() {
	_, err := suite.db.AdjustBalance(testUser, "Credit Card", dec("100"), models.AdjustSet)
	require.NoError(suite.T(), err)

	bal, err := suite.db.AdjustBalance(testUser, "Credit Card", dec("250"), models.AdjustSubtract)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), bal.Current.Equal(dec("-150")))
}

func (suite *DBTestSuite) TestGetBalanceNotFound() {
	_, err := suite.db.GetBalance(testUser, "Nonexistent")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestListBalances() {
	_, err := suite.db.AdjustBalance(testUser, "UPI", dec("200"), models.AdjustSet)
	require.NoError(suite.T(), err)
	_, err = suite.db.AdjustBalance(testUser, "Cash", dec("100"), models.AdjustSet)
	require.NoError(suite.T(), err)
	_, err = suite.db.AdjustBalance(testUser+1, "Cash", dec("999"), models.AdjustSet)
	require.NoError(suite.T(), err)

	balances, err := suite.db.ListBalances(testUser)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), balances, 2)
	// Ordered by account name.
	assert.Equal(suite.T(), "Cash", balances[0].Account)
	assert.Equal(suite.T(), "UPI", balances[1].Account)
}

func (suite *DBTestSuite) TestEnsureDefaultCategoriesIdempotent() {
	require.NoError(suite.T(), suite.db.EnsureDefaultCategories(testUser))
	require.NoError(suite.T(), suite.db.EnsureDefaultCategories(testUser))

	categories, err := suite.db.Categories(testUser)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), DefaultCategories, categories)
}

func (suite *DBTestSuite) TestAddCategoryPreservesOrder() {
	require.NoError(suite.T(), suite.db.EnsureDefaultCategories(testUser))
	require.NoError(suite.T(), suite.db.AddCategory(testUser, "🎁 Gifts"))
	require.NoError(suite.T(), suite.db.AddCategory(testUser, "🎁 Gifts"))

	categories, err := suite.db.Categories(testUser)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), categories, len(DefaultCategories)+1)
	assert.Equal(suite.T(), "🎁 Gifts", categories[len(categories)-1])
}

func (suite *DBTestSuite) TestCategoriesFallbackToDefaults() {
	categories, err := suite.db.Categories(testUser)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), DefaultCategories, categories)
}

func (suite *DBTestSuite) TestDistinctSubcategories() {
	for _, sub := range []string{"Lunch", "Dinner", "Lunch"} {
		rec := suite.expense("🍔 Food", "10")
		rec.Subcategory = strp(sub)
		_, err := suite.db.InsertExpense(rec)
		require.NoError(suite.T(), err)
	}
	noSub := suite.expense("🍔 Food", "5")
	_, err := suite.db.InsertExpense(noSub)
	require.NoError(suite.T(), err)

	subs, err := suite.db.DistinctSubcategories(testUser, "🍔 Food")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Dinner", "Lunch"}, subs)
}

func (suite *DBTestSuite) TestDistinctAccounts() {
	for _, acct := range []string{"Cash", "UPI", "Cash"} {
		rec := suite.expense("🍔 Food", "10")
		rec.Account = strp(acct)
		_, err := suite.db.InsertExpense(rec)
		require.NoError(suite.T(), err)
	}

	accounts, err := suite.db.DistinctAccounts(testUser)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Cash", "UPI"}, accounts)
}

func (suite *DBTestSuite) TestTopDescriptionsRanking() {
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	inserts := []struct {
		description string
		offset      time.Duration
	}{
		{"Coffee", 0},
		{"Coffee", time.Hour},
		{"Coffee", 2 * time.Hour},
		{"Sandwich", 3 * time.Hour},
		{"Sandwich", 4 * time.Hour},
		{"Juice", 5 * time.Hour},
		{models.NoDescription, 6 * time.Hour},
		{models.ImportedDescription, 7 * time.Hour},
	}
	for _, in := range inserts {
		rec := suite.expense("🍔 Food", "10")
		rec.Description = in.description
		rec.Date = base.Add(in.offset)
		_, err := suite.db.InsertExpense(rec)
		require.NoError(suite.T(), err)
	}

	// Frequency descending, sentinels excluded.
	descs, err := suite.db.TopDescriptions(testUser, "🍔 Food", nil, 6)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Coffee", "Sandwich", "Juice"}, descs)
}

func (suite *DBTestSuite) TestTopDescriptionsRecencyTiebreak() {
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, desc := range []string{"Older", "Newer"} {
		rec := suite.expense("🍔 Food", "10")
		rec.Description = desc
		rec.Date = base.Add(time.Duration(i) * time.Hour)
		_, err := suite.db.InsertExpense(rec)
		require.NoError(suite.T(), err)
	}

	descs, err := suite.db.TopDescriptions(testUser, "🍔 Food", nil, 6)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Newer", "Older"}, descs)
}

func (suite *DBTestSuite) TestTopDescriptionsBySubcategory() {
	lunch := suite.expense("🍔 Food", "10")
	lunch.Subcategory = strp("Lunch")
	lunch.Description = "Thali"
	_, err := suite.db.InsertExpense(lunch)
	require.NoError(suite.T(), err)

	dinner := suite.expense("🍔 Food", "15")
	dinner.Subcategory = strp("Dinner")
	dinner.Description = "Pizza"
	_, err = suite.db.InsertExpense(dinner)
	require.NoError(suite.T(), err)

	descs, err := suite.db.TopDescriptions(testUser, "🍔 Food", strp("Lunch"), 6)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Thali"}, descs)
}

func (suite *DBTestSuite) TestTopDescriptionsLimit() {
	for i := 0; i < 10; i++ {
		rec := suite.expense("🍔 Food", "10")
		rec.Description = string(rune('A' + i))
		_, err := suite.db.InsertExpense(rec)
		require.NoError(suite.T(), err)
	}

	descs, err := suite.db.TopDescriptions(testUser, "🍔 Food", nil, 6)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), descs, 6)
}

func TestDBTestSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}
