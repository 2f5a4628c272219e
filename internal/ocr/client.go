// Package ocr extracts invoice fields from receipt images through a hosted
// vision model. The client speaks the chat-completions wire format, asks
// for a fixed JSON object and normalizes the answer into form-ready values.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout for a single extraction request. Vision models are
	// slow; receipts with many line items can take tens of seconds.
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit caps outbound calls to the hosted model.
	DefaultRateLimit = rate.Limit(2.0)
	// MaxRetries for transient upstream errors.
	MaxRetries = 2
	// RetryBaseDelay is the initial backoff delay.
	RetryBaseDelay = 1 * time.Second
	// MaxImageBytes bounds the upload we forward to the model.
	MaxImageBytes = 10 << 20
)

const extractionPrompt = `Extract the invoice fields from this receipt image.
Respond with a single JSON object and nothing else:
{"merchant": "", "invoice_number": "", "invoice_date": "", "currency": "",
 "gross_amount": "", "net_amount": "", "vat_amount": "",
 "line_items": [{"description": "", "quantity": 1, "amount": ""}]}
Copy amounts and dates exactly as printed. Use "" for fields that are not
on the receipt. currency is the ISO 4217 code if printed or inferable.`

// Client calls the hosted vision model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	limiter    *rate.Limiter
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetryDelay sets the initial backoff delay.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// NewClient creates a vision OCR client. baseURL is the API root of the
// hosted model (the client appends /v1/chat/completions).
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		limiter:    rate.NewLimiter(DefaultRateLimit, 1),
		retryDelay: RetryBaseDelay,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Configured reports whether the client has an endpoint to call.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Extract sends a receipt image to the model and returns the normalized
// invoice fields.
func (c *Client) Extract(ctx context.Context, image []byte, contentType string) (*Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if len(image) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))
	return c.extract(ctx, dataURI)
}

// ExtractURL points the model at a receipt hosted elsewhere. The image is
// never fetched by this server; the model pulls it from the given URL.
func (c *Client) ExtractURL(ctx context.Context, imageURL string) (*Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid image url")
	}
	return c.extract(ctx, imageURL)
}

func (c *Client) extract(ctx context.Context, imageRef string) (*Result, error) {
	payload := chatRequest{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   2048,
		ResponseFormat: &formatSpec{
			Type: "json_object",
		},
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: extractionPrompt},
					{Type: "image_url", ImageURL: &imageURL{URL: imageRef}},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var response chatResponse
	if err := c.doWithRetry(ctx, body, &response); err != nil {
		return nil, fmt.Errorf("vision extraction: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("vision extraction: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return nil, ErrUnreadable
	}

	var raw extraction
	content := stripJSONFences(response.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	result := normalize(raw)
	if result.Merchant == "" && result.GrossCents == 0 && result.InvoiceDate == "" {
		return nil, ErrUnreadable
	}
	return result, nil
}

// doWithRetry posts the payload with exponential backoff on transient
// failures: network errors, 429 and 5xx.
func (c *Client) doWithRetry(ctx context.Context, body []byte, result any) error {
	requestURL := c.baseURL + "/v1/chat/completions"
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (%d)", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// stripJSONFences removes markdown code fences some models wrap around
// JSON answers despite the response_format hint.
func stripJSONFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
