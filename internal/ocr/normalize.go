package ocr

import (
	"strings"

	"github.com/markusmobius/go-dateparser"

	"github.com/seremi5/expense-server/internal/sanitize"
)

// dateConfig biases parsing toward European receipts: 10.07.2026 is the
// 10th of July, not October 7th.
var dateConfig = &dateparser.Configuration{
	DateOrder: dateparser.DMY,
}

// normalize converts the model's raw extraction into form-ready values.
// Fields that fail to parse are dropped rather than guessed.
func normalize(raw extraction) *Result {
	result := &Result{
		Merchant:      sanitize.Text(raw.Merchant),
		InvoiceNumber: sanitize.Text(raw.InvoiceNumber),
		Currency:      normalizeCurrency(raw.Currency),
		InvoiceDate:   normalizeDate(raw.InvoiceDate),
	}

	if cents, ok := parseAmountCents(raw.GrossAmount); ok {
		result.GrossCents = cents
	}
	if cents, ok := parseAmountCents(raw.NetAmount); ok {
		result.NetCents = cents
	}
	if cents, ok := parseAmountCents(raw.VATAmount); ok {
		result.VATCents = cents
	}

	// A receipt that only prints the total still satisfies the
	// gross = net + VAT invariant with a zero VAT.
	if result.GrossCents > 0 && result.NetCents == 0 && result.VATCents == 0 {
		result.NetCents = result.GrossCents
	}

	for _, item := range raw.LineItems {
		description := sanitize.Text(item.Description)
		cents, ok := parseAmountCents(item.Amount)
		if description == "" || !ok {
			continue
		}
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		result.LineItems = append(result.LineItems, ResultLineItem{
			Description: description,
			Quantity:    quantity,
			GrossCents:  cents,
		})
	}

	return result
}

// normalizeDate turns whatever date format the receipt printed into
// ISO8601, or "" when unparseable.
func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parsed, err := dateparser.Parse(dateConfig, value)
	if err != nil {
		return ""
	}
	return parsed.Time.Format("2006-01-02")
}

func normalizeCurrency(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "FR.", "SFR", "FRANKEN":
		return "CHF"
	case "€", "EURO":
		return "EUR"
	case "$":
		return "USD"
	}
	if len(value) != 3 {
		return ""
	}
	for _, r := range value {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return value
}

// parseAmountCents parses a printed money amount into integer cents.
// Handles Swiss apostrophe grouping (1'234.50), German comma decimals
// (1.234,50) and plain forms (1234.50, 1234).
func parseAmountCents(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	// Strip currency markers and spaces, keep digits and separators.
	var cleaned strings.Builder
	negative := false
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			cleaned.WriteRune(r)
		case r == '.' || r == ',':
			cleaned.WriteRune(r)
		case r == '-':
			negative = true
		case r == '\'' || r == '’' || r == ' ' || r == ' ':
			// grouping, drop
		}
	}
	s := cleaned.String()
	if s == "" {
		return 0, false
	}

	// The last separator with 1-2 trailing digits is the decimal point;
	// every other separator is grouping.
	lastDot := strings.LastIndexAny(s, ".,")
	intPart := s
	fracPart := ""
	if lastDot >= 0 {
		tail := s[lastDot+1:]
		if len(tail) >= 1 && len(tail) <= 2 {
			intPart = s[:lastDot]
			fracPart = tail
		}
	}
	intPart = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, intPart)
	if intPart == "" && fracPart == "" {
		return 0, false
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) == 1 {
		fracPart += "0"
	}
	if fracPart == "" {
		fracPart = "00"
	}

	var cents int64
	for _, r := range intPart + fracPart {
		cents = cents*10 + int64(r-'0')
	}
	if negative {
		cents = -cents
	}
	return cents, true
}
