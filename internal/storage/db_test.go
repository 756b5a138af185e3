package storage

import (
	"testing"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations.
type DBTestSuite struct {
	suite.Suite
	db   *DB
	user *models.User
}

// SetupTest runs before each test.
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	hash, err := auth.HashPassword("testpass")
	require.NoError(suite.T(), err)
	user, err := db.CreateUser("testuser", hash)
	require.NoError(suite.T(), err)
	suite.user = user
}

// TearDownTest runs after each test.
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestGetUserByID() {
	user, err := suite.db.GetUserByID(suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", user.Username)

	_, err = suite.db.GetUserByID(9999)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestGetUserByUsername() {
	user, err := suite.db.GetUserByUsername("testuser")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, user.ID)

	_, err = suite.db.GetUserByUsername("nobody")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestUserCount() {
	count, err := suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *DBTestSuite) TestCategoryLifecycle() {
	created, err := suite.db.CreateCategory("Groceries", suite.user.ID)
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), created.ID)
	assert.False(suite.T(), created.CreatedAt.IsZero(), "creation timestamp must be set")

	// Renaming moves UpdatedAt strictly past CreatedAt.
	time.Sleep(10 * time.Millisecond)
	updated, err := suite.db.UpdateCategoryName(created, "Food")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Food", updated.Name)

	fetched, err := suite.db.GetCategory(created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Food", fetched.Name)
	assert.True(suite.T(), fetched.UpdatedAt.After(fetched.CreatedAt),
		"UpdatedAt must be strictly later than CreatedAt after a rename")

	require.NoError(suite.T(), suite.db.DeleteCategory(created.ID))

	_, err = suite.db.GetCategory(created.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestSyncAndDelete() {
	category, err := suite.db.CreateCategory("Travel", suite.user.ID)
	require.NoError(suite.T(), err)

	category.Name = "Trips"
	require.NoError(suite.T(), suite.db.Sync(category))

	fetched, err := suite.db.GetCategory(category.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Trips", fetched.Name)

	require.NoError(suite.T(), suite.db.Delete(category))
	_, err = suite.db.GetCategory(category.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestListCategories() {
	names := []string{"Groceries", "Transport", "Entertainment", "Utilities", "Gifts"}
	for _, name := range names {
		_, err := suite.db.CreateCategory(name, suite.user.ID)
		require.NoError(suite.T(), err)
	}

	// Another user's categories never leak into the listing.
	other, err := suite.db.CreateUser("other", "hash")
	require.NoError(suite.T(), err)
	_, err = suite.db.CreateCategory("Hidden", other.ID)
	require.NoError(suite.T(), err)

	items, total, filtered, err := suite.db.ListCategories(CategoryListParams{
		UserID: suite.user.ID,
		Limit:  10,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5), total)
	assert.Equal(suite.T(), int64(5), filtered)
	require.Len(suite.T(), items, 5)
	assert.Equal(suite.T(), "Groceries", items[0].Name, "default order is insertion order")

	// Pagination.
	items, total, _, err = suite.db.ListCategories(CategoryListParams{
		UserID: suite.user.ID,
		Offset: 2,
		Limit:  2,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5), total)
	require.Len(suite.T(), items, 2)
	assert.Equal(suite.T(), "Entertainment", items[0].Name)

	// Single name filter.
	items, total, filtered, err = suite.db.ListCategories(CategoryListParams{
		UserID: suite.user.ID,
		Limit:  10,
		Search: "port",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5), total)
	assert.Equal(suite.T(), int64(1), filtered)
	require.Len(suite.T(), items, 1)
	assert.Equal(suite.T(), "Transport", items[0].Name)

	// Single sort dimension.
	items, _, _, err = suite.db.ListCategories(CategoryListParams{
		UserID:   suite.user.ID,
		Limit:    10,
		OrderBy:  "name",
		OrderDir: "desc",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Utilities", items[0].Name)

	// An unknown sort column falls back to insertion order.
	items, _, _, err = suite.db.ListCategories(CategoryListParams{
		UserID:  suite.user.ID,
		Limit:   10,
		OrderBy: "password_hash",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Groceries", items[0].Name)
}

func (suite *DBTestSuite) createTransaction(description string) *models.Transaction {
	suite.T().Helper()
	transaction := &models.Transaction{
		Description: description,
		Amount:      25.00,
		UserID:      suite.user.ID,
	}
	require.NoError(suite.T(), suite.db.CreateTransaction(transaction))
	return transaction
}

func (suite *DBTestSuite) TestTransactionCreateAndGet() {
	created := suite.createTransaction("Weekly shop")
	assert.False(suite.T(), created.Date.IsZero(), "date defaults to now")

	fetched, err := suite.db.GetTransaction(created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Weekly shop", fetched.Description)
	assert.Empty(suite.T(), fetched.Receipts)

	_, err = suite.db.GetTransaction(9999)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCreateReceipt() {
	transaction := suite.createTransaction("Weekly shop")

	receipt, err := suite.db.CreateReceipt(transaction, "invoice.pdf", "aabbcc", "application/pdf")
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), receipt.ID)
	assert.Equal(suite.T(), transaction.ID, receipt.TransactionID)
	require.Len(suite.T(), transaction.Receipts, 1, "receipt must be registered on the transaction")
	assert.Same(suite.T(), receipt, transaction.Receipts[0])

	fetched, err := suite.db.GetTransaction(transaction.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), fetched.Receipts, 1)
	assert.Equal(suite.T(), "invoice.pdf", fetched.Receipts[0].Filename)
}

func (suite *DBTestSuite) TestGetReceiptForDownload() {
	owner := suite.createTransaction("Weekly shop")
	stranger := suite.createTransaction("Lunch")

	receipt, err := suite.db.CreateReceipt(owner, "invoice.pdf", "aabbcc", "application/pdf")
	require.NoError(suite.T(), err)

	fetched, err := suite.db.GetReceiptForDownload(owner.ID, receipt.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), receipt.ID, fetched.ID)

	// Claiming the wrong transaction is an authorization failure, distinct
	// from not-found.
	_, err = suite.db.GetReceiptForDownload(stranger.ID, receipt.ID)
	assert.ErrorIs(suite.T(), err, ErrReceiptMismatch)
	assert.NotErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.GetReceiptForDownload(owner.ID, 9999)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

// SessionTestSuite provides a test suite for session persistence.
type SessionTestSuite struct {
	suite.Suite
	db   *DB
	user *models.User
}

func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	user, err := db.CreateUser("testuser", "hash")
	require.NoError(suite.T(), err)
	suite.user = user
}

func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) TestCreateAndGetSession() {
	expiresAt := time.Now().Add(time.Hour)
	require.NoError(suite.T(), suite.db.CreateSession("tok", suite.user.ID, expiresAt))

	session, err := suite.db.GetSession("tok")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, session.UserID)

	_, err = suite.db.GetSession("missing")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SessionTestSuite) TestExpiredSessionDoesNotResolve() {
	require.NoError(suite.T(), suite.db.CreateSession("tok", suite.user.ID, time.Now().Add(-time.Minute)))

	_, err := suite.db.GetSession("tok")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SessionTestSuite) TestDeleteSession() {
	require.NoError(suite.T(), suite.db.CreateSession("tok", suite.user.ID, time.Now().Add(time.Hour)))
	require.NoError(suite.T(), suite.db.DeleteSession("tok"))

	_, err := suite.db.GetSession("tok")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	// Deleting an absent token is not an error.
	assert.NoError(suite.T(), suite.db.DeleteSession("tok"))
}

func (suite *SessionTestSuite) TestCleanExpiredSessions() {
	require.NoError(suite.T(), suite.db.CreateSession("live", suite.user.ID, time.Now().Add(time.Hour)))
	require.NoError(suite.T(), suite.db.CreateSession("dead", suite.user.ID, time.Now().Add(-time.Hour)))

	require.NoError(suite.T(), suite.db.CleanExpiredSessions())

	_, err := suite.db.GetSession("live")
	assert.NoError(suite.T(), err)
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
