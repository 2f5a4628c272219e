package expenses

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var fieldErr FieldError
	require.ErrorAs(t, err, &fieldErr)
	return fieldErr.Field
}

func TestValidateAcceptsMinimalInput(t *testing.T) {
	assert.NoError(t, validInput().Validate(time.Now()))
}

func TestValidateRequiredFields(t *testing.T) {
	now := time.Now()

	input := validInput()
	input.Merchant = ""
	assert.Equal(t, "merchant", fieldOf(t, input.Validate(now)))

	input = validInput()
	input.Type = ""
	assert.Equal(t, "type", fieldOf(t, input.Validate(now)))

	input = validInput()
	input.Currency = ""
	assert.Equal(t, "currency", fieldOf(t, input.Validate(now)))
}

func TestValidateRejectsUnknownType(t *testing.T) {
	input := validInput()
	input.Type = "refundable"
	assert.Equal(t, "type", fieldOf(t, input.Validate(time.Now())))
}

func TestValidateCurrencyMustBeISO4217(t *testing.T) {
	input := validInput()
	input.Currency = "XXX1"
	assert.Equal(t, "currency", fieldOf(t, input.Validate(time.Now())))

	for _, code := range []string{"CHF", "EUR", "USD"} {
		input := validInput()
		input.Currency = code
		assert.NoError(t, input.Validate(time.Now()), code)
	}
}

func TestValidateAmountInvariant(t *testing.T) {
	input := validInput()
	input.VATCents = 811
	assert.Equal(t, "gross_cents", fieldOf(t, input.Validate(time.Now())))
}

func TestValidateGrossMustBePositive(t *testing.T) {
	input := validInput()
	input.GrossCents = 0
	input.NetCents = 0
	input.VATCents = 0
	assert.Equal(t, "gross_cents", fieldOf(t, input.Validate(time.Now())))
}

func TestValidateInvoiceDate(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	input := validInput()
	input.InvoiceDate = "30.08.2026"
	assert.Equal(t, "invoice_date", fieldOf(t, input.Validate(now)))

	input = validInput()
	input.InvoiceDate = "2026-09-15"
	assert.Equal(t, "invoice_date", fieldOf(t, input.Validate(now)))

	input = validInput()
	input.InvoiceDate = "2026-08-29"
	assert.NoError(t, input.Validate(now))
}

func TestValidateIBANFormat(t *testing.T) {
	input := validInput()
	input.IBAN = "CH93 not an iban"
	assert.Equal(t, "iban", fieldOf(t, input.Validate(time.Now())))

	input = validInput()
	input.IBAN = "CH9300762011623852957"
	assert.NoError(t, input.Validate(time.Now()))
}

func TestValidateLineItemsMustSumToGross(t *testing.T) {
	input := validInput()
	input.LineItems = []LineItemInput{
		{Description: "Zimmer", Quantity: 1, UnitCents: 9000, VATRateBps: 810, GrossCents: 9000},
		{Description: "Frühstück", Quantity: 1, UnitCents: 1000, VATRateBps: 810, GrossCents: 1000},
	}
	assert.Equal(t, "line_items", fieldOf(t, input.Validate(time.Now())))

	input.LineItems[1].GrossCents = 1810
	assert.NoError(t, input.Validate(time.Now()))
}

func TestValidateNestedLineItemFieldPath(t *testing.T) {
	input := validInput()
	input.LineItems = []LineItemInput{
		{Description: "", Quantity: 1, UnitCents: 10810, GrossCents: 10810},
	}
	assert.Equal(t, "line_items[0].description", fieldOf(t, input.Validate(time.Now())))
}

func TestParsedInvoiceDate(t *testing.T) {
	input := validInput()
	assert.Nil(t, input.ParsedInvoiceDate())

	input.InvoiceDate = "2026-08-01"
	parsed := input.ParsedInvoiceDate()
	require.NotNil(t, parsed)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *parsed)
}
