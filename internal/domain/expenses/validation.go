package expenses

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Input is the request payload for creating or replacing an expense.
// Amounts are integer cents to keep the gross = net + VAT invariant exact.
type Input struct {
	EventID       *int64          `json:"event_id" validate:"omitempty,gt=0"`
	CategoryID    *int64          `json:"category_id" validate:"omitempty,gt=0"`
	Type          string          `json:"type" validate:"required,oneof=reimbursable payable non_reimbursable"`
	Merchant      string          `json:"merchant" validate:"required,max=200"`
	InvoiceNumber string          `json:"invoice_number" validate:"max=100"`
	InvoiceDate   string          `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	Currency      string          `json:"currency" validate:"required,iso4217"`
	GrossCents    int64           `json:"gross_cents" validate:"gt=0"`
	NetCents      int64           `json:"net_cents" validate:"gte=0"`
	VATCents      int64           `json:"vat_cents" validate:"gte=0"`
	Note          string          `json:"note" validate:"max=2000"`
	IBAN          string          `json:"iban" validate:"omitempty,iban"`
	LineItems     []LineItemInput `json:"line_items" validate:"omitempty,max=100,dive"`
}

type LineItemInput struct {
	Description string `json:"description" validate:"required,max=500"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	UnitCents   int64  `json:"unit_cents" validate:"gte=0"`
	VATRateBps  int64  `json:"vat_rate_bps" validate:"gte=0,lte=10000"`
	GrossCents  int64  `json:"gross_cents" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation followed by the business rules the
// tags cannot express. Returns a FieldError describing the first failure.
func (in Input) Validate(now time.Time) error {
	if err := validate.Struct(in); err != nil {
		return firstFieldError(err)
	}

	if in.GrossCents != in.NetCents+in.VATCents {
		return FieldError{Field: "gross_cents", Message: "must equal net_cents + vat_cents"}
	}

	if in.InvoiceDate != "" {
		parsed, err := time.Parse("2006-01-02", in.InvoiceDate)
		if err != nil {
			return FieldError{Field: "invoice_date", Message: "must be an ISO8601 date"}
		}
		if parsed.After(now) {
			return FieldError{Field: "invoice_date", Message: "cannot be in the future"}
		}
	}

	if len(in.LineItems) > 0 {
		var sum int64
		for _, item := range in.LineItems {
			sum += item.GrossCents
		}
		if sum != in.GrossCents {
			return FieldError{Field: "line_items", Message: "gross amounts must sum to gross_cents"}
		}
	}

	return nil
}

// ParsedInvoiceDate returns the invoice date as a time pointer, or nil when
// absent. Validate must have succeeded first.
func (in Input) ParsedInvoiceDate() *time.Time {
	if in.InvoiceDate == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", in.InvoiceDate)
	if err != nil {
		return nil
	}
	return &parsed
}

func firstFieldError(err error) error {
	var invalid *validator.InvalidValidationError
	if ok := isInvalidValidation(err, &invalid); ok {
		return FieldError{Message: "invalid request"}
	}
	if fieldsErrs, ok := err.(validator.ValidationErrors); ok && len(fieldsErrs) > 0 {
		first := fieldsErrs[0]
		return FieldError{
			Field:   jsonFieldName(first.Namespace()),
			Message: "failed " + first.Tag() + " validation",
		}
	}
	return FieldError{Message: err.Error()}
}

func isInvalidValidation(err error, target **validator.InvalidValidationError) bool {
	invalid, ok := err.(*validator.InvalidValidationError)
	if ok {
		*target = invalid
	}
	return ok
}

// jsonFieldName maps a validator namespace like "Input.GrossCents" or
// "Input.LineItems[0].Quantity" to the snake_case JSON field path.
func jsonFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = toSnake(part)
	}
	return strings.Join(parts, ".")
}

func toSnake(name string) string {
	var out strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && name[i-1] >= 'a' && name[i-1] <= 'z' {
				out.WriteByte('_')
			}
			out.WriteRune(r - 'A' + 'a')
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
