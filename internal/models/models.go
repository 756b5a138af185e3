package models

import "time"

// User represents a user account.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Category labels transactions. It belongs to the user who created it and
// carries a name of at most 50 characters.
type Category struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is a single financial record. It owns its receipts: deleting
// a transaction cascades to them.
type Transaction struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	Description string     `gorm:"not null" json:"description"`
	Amount      float64    `gorm:"not null" json:"amount"`
	Date        time.Time  `json:"date"`
	CategoryID  *int64     `gorm:"index" json:"category_id,omitempty"`
	UserID      int64      `gorm:"index;not null" json:"user_id"`
	Receipts    []*Receipt `gorm:"constraint:OnDelete:CASCADE" json:"receipts,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Receipt is an uploaded file attached to exactly one transaction.
// Filename is the client-supplied name, kept for display and download
// headers only; StorageFilename is the generated name the file is stored
// under and is never derived from client input.
type Receipt struct {
	ID              int64        `gorm:"primaryKey" json:"id"`
	Filename        string       `gorm:"not null" json:"filename"`
	StorageFilename string       `gorm:"uniqueIndex;not null" json:"-"`
	MediaType       string       `json:"media_type"`
	TransactionID   int64        `gorm:"index;not null" json:"transaction_id"`
	Transaction     *Transaction `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
}

// SetTransaction assigns the owning transaction and registers the receipt
// in that transaction's collection in the same call, so neither side of the
// association can be observed out of step. Assigning the same receipt again
// does not duplicate it in the collection.
func (r *Receipt) SetTransaction(t *Transaction) {
	r.Transaction = t
	r.TransactionID = t.ID
	for _, existing := range t.Receipts {
		if existing == r {
			return
		}
	}
	t.Receipts = append(t.Receipts, r)
}

// Session maps an opaque client token to the authenticated user (the
// session principal). Rows past ExpiresAt never resolve a principal.
type Session struct {
	Token     string    `gorm:"primaryKey;size:64" json:"token"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
