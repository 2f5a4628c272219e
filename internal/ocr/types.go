package ocr

import "errors"

var (
	// ErrNotConfigured is returned when no OCR endpoint is set.
	ErrNotConfigured = errors.New("ocr is not configured")
	// ErrUnreadable is returned when the model could not extract any
	// fields from the image.
	ErrUnreadable = errors.New("receipt could not be read")
)

// Result carries the invoice fields extracted from a receipt image,
// normalized to the shapes the expense form uses: integer cents and
// ISO8601 dates. Zero values mean the model did not find the field.
type Result struct {
	Merchant      string           `json:"merchant,omitempty"`
	InvoiceNumber string           `json:"invoiceNumber,omitempty"`
	InvoiceDate   string           `json:"invoiceDate,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	GrossCents    int64            `json:"grossCents,omitempty"`
	NetCents      int64            `json:"netCents,omitempty"`
	VATCents      int64            `json:"vatCents,omitempty"`
	LineItems     []ResultLineItem `json:"lineItems,omitempty"`
}

type ResultLineItem struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	GrossCents  int64  `json:"grossCents"`
}

// extraction is the raw JSON shape the vision model is instructed to emit.
// Amounts stay strings here because receipts print them in locale formats
// ("1'234.50", "1.234,50") that normalization turns into cents.
type extraction struct {
	Merchant      string           `json:"merchant"`
	InvoiceNumber string           `json:"invoice_number"`
	InvoiceDate   string           `json:"invoice_date"`
	Currency      string           `json:"currency"`
	GrossAmount   string           `json:"gross_amount"`
	NetAmount     string           `json:"net_amount"`
	VATAmount     string           `json:"vat_amount"`
	LineItems     []extractionItem `json:"line_items"`
}

type extractionItem struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Amount      string `json:"amount"`
}

// chat completions request/response, the subset this client touches.

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}
