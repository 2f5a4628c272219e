package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes all HTML tags and attributes. Expense free-text
// fields (merchant, notes, decision notes, line item descriptions) are
// plain text only; anything markup-shaped a receipt OCR or a user pastes
// in gets stripped before persistence.
var strictPolicy = bluemonday.StrictPolicy()

// Text strips all HTML and trims surrounding whitespace.
func Text(input string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(input))
}
