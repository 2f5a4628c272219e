package expenses

import (
	"time"
)

// Type classifies how an expense is settled. Reimbursable expenses are paid
// back to the submitter's bank account, payable expenses are settled directly
// with the merchant, and non-reimbursable expenses are recorded for the books
// only.
type Type string

const (
	TypeReimbursable    Type = "reimbursable"
	TypePayable         Type = "payable"
	TypeNonReimbursable Type = "non_reimbursable"
)

func IsAllowedType(value string) bool {
	switch Type(value) {
	case TypeReimbursable, TypePayable, TypeNonReimbursable:
		return true
	default:
		return false
	}
}

// Status is the review lifecycle state of an expense.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusReadyToPay Status = "ready_to_pay"
	StatusValidated  Status = "validated"
	StatusDeclined   Status = "declined"
	StatusFlagged    Status = "flagged"
	StatusPaid       Status = "paid"
)

func IsAllowedStatus(value string) bool {
	switch Status(value) {
	case StatusSubmitted, StatusReadyToPay, StatusValidated, StatusDeclined, StatusFlagged, StatusPaid:
		return true
	default:
		return false
	}
}

// LineItem is one row of an invoice. Amounts are integer cents; VATRateBps
// is the VAT rate in basis points (810 = 8.10%).
type LineItem struct {
	ID          string
	Description string
	Quantity    int64
	UnitCents   int64
	VATRateBps  int64
	GrossCents  int64
}

// Expense is a submitted expense with its invoice metadata and tax breakdown.
// ID is the internal UUID; ULID is the public identifier used in API paths.
type Expense struct {
	ID            string
	ULID          string
	ProfileID     string
	EventID       *int64
	CategoryID    *int64
	Type          Type
	Merchant      string
	InvoiceNumber string
	InvoiceDate   *time.Time
	Currency      string
	GrossCents    int64
	NetCents      int64
	VATCents      int64
	Note          string
	PayoutIBAN    string
	Status        Status
	ReviewedBy    *string
	ReviewedAt    *time.Time
	DecisionNote  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LineItems     []LineItem
}

// Filters narrow an expense listing. An empty ProfileID means all owners
// (admin listing).
type Filters struct {
	ProfileID  string
	Status     Status
	Type       Type
	EventID    *int64
	CategoryID *int64
	StartDate  *time.Time
	EndDate    *time.Time
	Query      string
}

type Pagination struct {
	Limit int
	After string
}

type ListResult struct {
	Expenses   []Expense
	NextCursor string
}

// Decision captures an admin review outcome applied to an expense.
type Decision struct {
	ReviewerID string
	NewStatus  Status
	// FromStatus is the status the reviewer saw when deciding. The update
	// only applies while the row still carries it, so concurrent decisions
	// cannot overwrite each other.
	FromStatus Status
	Note       string
}
