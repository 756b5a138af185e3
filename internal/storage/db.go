package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"spendtrack/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when an identifier resolves to no record.
var ErrNotFound = errors.New("record not found")

// ErrReceiptMismatch is returned when a receipt exists but belongs to a
// different transaction than the caller claimed. It is deliberately
// distinct from ErrNotFound: callers must be able to tell an authorization
// failure from an absent resource.
var ErrReceiptMismatch = errors.New("receipt does not belong to transaction")

// DB wraps a GORM connection.
type DB struct {
	conn *gorm.DB
}

// NewDB opens the database and migrates the schema.
func NewDB(path string) (*DB, error) {
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// An in-memory sqlite database exists per connection; keep the pool at
	// one so every query sees the same schema.
	if path == ":memory:" {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Transaction{},
		&models.Receipt{},
		&models.Session{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Sync inserts or updates the entity.
func (db *DB) Sync(entity any) error {
	if err := db.conn.Save(entity).Error; err != nil {
		return fmt.Errorf("failed to sync entity: %w", err)
	}
	return nil
}

// Delete removes the entity.
func (db *DB) Delete(entity any) error {
	if err := db.conn.Delete(entity).Error; err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	return nil
}

func mapNotFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CreateUser creates a new user with the given username and password hash.
func (db *DB) CreateUser(username, passwordHash string) (*models.User, error) {
	user := &models.User{Username: username, PasswordHash: passwordHash}
	if err := db.conn.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	if err := db.conn.First(&user, id).Error; err != nil {
		return nil, mapNotFound(err, "failed to get user")
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := db.conn.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, mapNotFound(err, "failed to get user")
	}
	return &user, nil
}

// UserCount returns the number of users.
func (db *DB) UserCount() (int64, error) {
	var count int64
	if err := db.conn.Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CreateCategory creates a category for the user. The name must already
// have passed validation.
func (db *DB) CreateCategory(name string, userID int64) (*models.Category, error) {
	category := &models.Category{Name: name, UserID: userID}
	if err := db.conn.Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// GetCategory retrieves a category by ID.
func (db *DB) GetCategory(id int64) (*models.Category, error) {
	var category models.Category
	if err := db.conn.First(&category, id).Error; err != nil {
		return nil, mapNotFound(err, "failed to get category")
	}
	return &category, nil
}

// UpdateCategoryName renames the category in place and syncs it. UpdatedAt
// moves forward; CreatedAt is untouched.
func (db *DB) UpdateCategoryName(category *models.Category, name string) (*models.Category, error) {
	category.Name = name
	if err := db.Sync(category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category by ID.
func (db *DB) DeleteCategory(id int64) error {
	if err := db.conn.Delete(&models.Category{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// CategoryListParams selects one page of a user's categories. Search is a
// single name-substring filter and OrderBy a single sort column; the query
// layer supports exactly one of each, nothing richer.
type CategoryListParams struct {
	UserID   int64
	Offset   int
	Limit    int
	Search   string
	OrderBy  string
	OrderDir string
}

// categoryColumns whitelists sortable columns.
var categoryColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ListCategories returns one page of categories plus the user's total and
// filtered counts. Default ordering is insertion order.
func (db *DB) ListCategories(p CategoryListParams) (items []models.Category, total, filtered int64, err error) {
	base := db.conn.Model(&models.Category{}).Where("user_id = ?", p.UserID)
	if err = base.Count(&total).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	query := db.conn.Model(&models.Category{}).Where("user_id = ?", p.UserID)
	if p.Search != "" {
		query = query.Where("name LIKE ?", "%"+p.Search+"%")
	}
	if err = query.Count(&filtered).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count filtered categories: %w", err)
	}

	order := "id"
	if col, ok := categoryColumns[p.OrderBy]; ok {
		order = col
	}
	if strings.EqualFold(p.OrderDir, "desc") {
		order += " DESC"
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	if err = query.Order(order).Offset(p.Offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list categories: %w", err)
	}
	return items, total, filtered, nil
}

// CreateTransaction creates a transaction.
func (db *DB) CreateTransaction(t *models.Transaction) error {
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	if err := db.conn.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction with its receipts.
func (db *DB) GetTransaction(id int64) (*models.Transaction, error) {
	var t models.Transaction
	if err := db.conn.Preload("Receipts").First(&t, id).Error; err != nil {
		return nil, mapNotFound(err, "failed to get transaction")
	}
	return &t, nil
}

// CreateReceipt attaches a new receipt to the transaction and persists it.
// Both sides of the association are wired before the row is written.
func (db *DB) CreateReceipt(t *models.Transaction, originalFilename, storageFilename, mediaType string) (*models.Receipt, error) {
	receipt := &models.Receipt{
		Filename:        originalFilename,
		StorageFilename: storageFilename,
		MediaType:       mediaType,
	}
	receipt.SetTransaction(t)

	if err := db.conn.Omit(clause.Associations).Create(receipt).Error; err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}
	return receipt, nil
}

// GetReceipt retrieves a receipt by ID.
func (db *DB) GetReceipt(id int64) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := db.conn.First(&receipt, id).Error; err != nil {
		return nil, mapNotFound(err, "failed to get receipt")
	}
	return &receipt, nil
}

// GetReceiptForDownload retrieves a receipt after verifying it belongs to
// the claimed transaction. An existing receipt owned by a different
// transaction yields ErrReceiptMismatch, never the entity.
func (db *DB) GetReceiptForDownload(transactionID, receiptID int64) (*models.Receipt, error) {
	receipt, err := db.GetReceipt(receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.TransactionID != transactionID {
		return nil, ErrReceiptMismatch
	}
	return receipt, nil
}

// CreateSession creates a session row mapping the token to the user.
func (db *DB) CreateSession(token string, userID int64, expiresAt time.Time) error {
	s := &models.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}
	if err := db.conn.Create(s).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a live (unexpired) session by token.
func (db *DB) GetSession(token string) (*models.Session, error) {
	var s models.Session
	err := db.conn.Where("token = ? AND expires_at > ?", token, time.Now()).First(&s).Error
	if err != nil {
		return nil, mapNotFound(err, "failed to get session")
	}
	return &s, nil
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	if err := db.conn.Delete(&models.Session{}, "token = ?", token).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	if err := db.conn.Delete(&models.Session{}, "expires_at <= ?", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to clean sessions: %w", err)
	}
	return nil
}
