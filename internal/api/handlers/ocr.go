package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seremi5/expense-server/internal/api/problem"
	"github.com/seremi5/expense-server/internal/metrics"
	"github.com/seremi5/expense-server/internal/ocr"
)

type OCRHandler struct {
	Client *ocr.Client
	Env    string
}

func NewOCRHandler(client *ocr.Client, env string) *OCRHandler {
	return &OCRHandler{Client: client, Env: env}
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// extractRequest is the JSON form of a scan request. Exactly one of the
// image sources must be set.
type extractRequest struct {
	ImageBase64 string `json:"image_base64"`
	ContentType string `json:"content_type"`
	ImageURL    string `json:"image_url"`
}

// Extract accepts a receipt image either as multipart form data (field
// "receipt") or as a JSON body carrying base64 bytes or an image URL, and
// returns the invoice fields the vision model read from it. The response
// is a draft for the submit form, never a stored expense.
func (h *OCRHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if h.Client == nil || !h.Client.Configured() {
		problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeUpstream, "Receipt scanning not configured", ocr.ErrNotConfigured, h.Env)
		return
	}

	image, contentType, imageLink, err := readReceipt(r)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	start := time.Now()
	var result *ocr.Result
	if imageLink != "" {
		result, err = h.Client.ExtractURL(r.Context(), imageLink)
	} else {
		result, err = h.Client.Extract(r.Context(), image, contentType)
	}
	metrics.OCRLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ocr.ErrUnreadable) {
			metrics.OCRRequestsTotal.WithLabelValues("unreadable").Inc()
			problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeValidation, "Receipt could not be read", err, h.Env)
			return
		}
		metrics.OCRRequestsTotal.WithLabelValues("error").Inc()
		problem.Write(w, r, http.StatusBadGateway, problem.TypeUpstream, "Receipt scanning failed", err, h.Env)
		return
	}

	metrics.OCRRequestsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, result)
}

// readReceipt dispatches on the request content type and returns either
// raw image bytes with their media type, or an image URL for the model to
// fetch itself.
func readReceipt(r *http.Request) ([]byte, string, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return readReceiptJSON(r)
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		return nil, "", "", errors.New("multipart field 'receipt' is required")
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return nil, "", "", errors.New("receipt must be a JPEG, PNG or WebP image")
	}

	image, err := io.ReadAll(io.LimitReader(file, ocr.MaxImageBytes+1))
	if err != nil {
		return nil, "", "", err
	}
	if err := checkImageSize(image); err != nil {
		return nil, "", "", err
	}
	return image, contentType, "", nil
}

func readReceiptJSON(r *http.Request) ([]byte, string, string, error) {
	var req extractRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, ocr.MaxImageBytes*2)).Decode(&req); err != nil {
		return nil, "", "", errors.New("request body is not valid JSON")
	}

	switch {
	case req.ImageBase64 != "" && req.ImageURL != "":
		return nil, "", "", errors.New("provide either image_base64 or image_url, not both")
	case req.ImageURL != "":
		parsed, err := url.Parse(req.ImageURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, "", "", errors.New("image_url must be an absolute http(s) URL")
		}
		return nil, "", req.ImageURL, nil
	case req.ImageBase64 != "":
		if !allowedImageTypes[req.ContentType] {
			return nil, "", "", errors.New("content_type must be image/jpeg, image/png or image/webp")
		}
		image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return nil, "", "", errors.New("image_base64 is not valid base64")
		}
		if err := checkImageSize(image); err != nil {
			return nil, "", "", err
		}
		return image, req.ContentType, "", nil
	default:
		return nil, "", "", errors.New("image_base64 or image_url is required")
	}
}

func checkImageSize(image []byte) error {
	if len(image) == 0 {
		return errors.New("receipt image is empty")
	}
	if int64(len(image)) > ocr.MaxImageBytes {
		return errors.New("receipt image exceeds the 10MB limit")
	}
	return nil
}
