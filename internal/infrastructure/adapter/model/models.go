package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerTransaction is the database row behind one ledger transaction
type LedgerTransaction struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	TransactionID string          `gorm:"uniqueIndex;size:64;not null"`
	OrderID       string          `gorm:"index;size:64"`
	ProcessedOn   time.Time       `gorm:"index;not null"`
	Requestor     string          `gorm:"size:128"`
	Approver      string          `gorm:"size:128"`
	Organization  string          `gorm:"size:64"`
	FormType      string          `gorm:"size:32"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2)"`
	Description   string          `gorm:"size:512"`
	FiscalQuarter string          `gorm:"size:8"`

	InvoiceGenerated string `gorm:"size:32"`
	InvoiceID        string `gorm:"index;size:32"`
	InvoiceURL       string `gorm:"size:512"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (LedgerTransaction) TableName() string {
	return "ledger_transactions"
}

// FormQueueEntry links a ledger transaction to its form response
type FormQueueEntry struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	TransactionID string    `gorm:"uniqueIndex;size:64;not null"`
	ResponseRef   string    `gorm:"index;size:64;not null"`
	Requestor     string    `gorm:"index;size:128"`
	SubmittedAt   time.Time `gorm:"index"`
	CreatedAt     time.Time
}

// TableName overrides the default table name
func (FormQueueEntry) TableName() string {
	return "form_queue_entries"
}

// FormResponseRow is one raw form submission. Values holds the positional
// field list JSON-encoded; the database does not know the per-form layout.
type FormResponseRow struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	ResponseRef string    `gorm:"uniqueIndex;size:64;not null"`
	Submitter   string    `gorm:"index;size:128"`
	SubmittedAt time.Time `gorm:"index"`
	Values      string    `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName overrides the default table name
func (FormResponseRow) TableName() string {
	return "form_response_rows"
}

// DirectoryUser is one staff directory entry
type DirectoryUser struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Identity  string `gorm:"uniqueIndex;size:128;not null"`
	FirstName string `gorm:"size:64"`
	LastName  string `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (DirectoryUser) TableName() string {
	return "directory_users"
}
