package handlers

import (
	"time"

	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/domain/profiles"
)

// expensePayload is the wire shape of an expense. Field names mirror the
// snake_case input payload so clients read back what they submitted.
type expensePayload struct {
	ID            string            `json:"id"`
	ProfileID     string            `json:"profile_id,omitempty"`
	EventID       *int64            `json:"event_id,omitempty"`
	CategoryID    *int64            `json:"category_id,omitempty"`
	Type          string            `json:"type"`
	Merchant      string            `json:"merchant"`
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	InvoiceDate   string            `json:"invoice_date,omitempty"`
	Currency      string            `json:"currency"`
	GrossCents    int64             `json:"gross_cents"`
	NetCents      int64             `json:"net_cents"`
	VATCents      int64             `json:"vat_cents"`
	Note          string            `json:"note,omitempty"`
	IBAN          string            `json:"iban,omitempty"`
	Status        string            `json:"status"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
	DecisionNote  string            `json:"decision_note,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	LineItems     []lineItemPayload `json:"line_items,omitempty"`
}

type lineItemPayload struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitCents   int64  `json:"unit_cents"`
	VATRateBps  int64  `json:"vat_rate_bps"`
	GrossCents  int64  `json:"gross_cents"`
}

func renderExpense(expense *expenses.Expense, includeOwner bool) expensePayload {
	payload := expensePayload{
		ID:            expense.ULID,
		Type:          string(expense.Type),
		Merchant:      expense.Merchant,
		InvoiceNumber: expense.InvoiceNumber,
		Currency:      expense.Currency,
		GrossCents:    expense.GrossCents,
		NetCents:      expense.NetCents,
		VATCents:      expense.VATCents,
		Note:          expense.Note,
		IBAN:          expense.PayoutIBAN,
		Status:        string(expense.Status),
		EventID:       expense.EventID,
		CategoryID:    expense.CategoryID,
		ReviewedAt:    expense.ReviewedAt,
		DecisionNote:  expense.DecisionNote,
		CreatedAt:     expense.CreatedAt,
		UpdatedAt:     expense.UpdatedAt,
	}
	if includeOwner {
		payload.ProfileID = expense.ProfileID
	}
	if expense.InvoiceDate != nil {
		payload.InvoiceDate = expense.InvoiceDate.Format("2006-01-02")
	}
	for _, item := range expense.LineItems {
		payload.LineItems = append(payload.LineItems, lineItemPayload{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitCents:   item.UnitCents,
			VATRateBps:  item.VATRateBps,
			GrossCents:  item.GrossCents,
		})
	}
	return payload
}

type expenseListPayload struct {
	Items      []expensePayload `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func renderExpenseList(result expenses.ListResult, includeOwner bool) expenseListPayload {
	items := make([]expensePayload, 0, len(result.Expenses))
	for i := range result.Expenses {
		items = append(items, renderExpense(&result.Expenses[i], includeOwner))
	}
	return expenseListPayload{Items: items, NextCursor: result.NextCursor}
}

type profilePayload struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Street     string    `json:"street,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	City       string    `json:"city,omitempty"`
	IBAN       string    `json:"iban,omitempty"`
	BankName   string    `json:"bank_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type profileListPayload struct {
	Items []profilePayload `json:"items"`
}

func renderProfiles(list []profiles.Profile) profileListPayload {
	items := make([]profilePayload, 0, len(list))
	for i := range list {
		items = append(items, renderProfile(&list[i]))
	}
	return profileListPayload{Items: items}
}

func renderProfile(profile *profiles.Profile) profilePayload {
	return profilePayload{
		ID:         profile.ID,
		Email:      profile.Email,
		Role:       string(profile.Role),
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		Street:     profile.Street,
		PostalCode: profile.PostalCode,
		City:       profile.City,
		IBAN:       profile.IBAN,
		BankName:   profile.BankName,
		CreatedAt:  profile.CreatedAt,
	}
}
