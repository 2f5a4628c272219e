package expenses

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seremi5/expense-server/internal/api/pagination"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ParseFilters reads listing filters and pagination from query parameters.
// Supported: status, type, eventId, categoryId, startDate, endDate, q,
// limit, cursor.
func ParseFilters(values url.Values) (Filters, Pagination, error) {
	filters := Filters{}
	page := Pagination{Limit: defaultListLimit}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		raw = strings.ToLower(raw)
		if !IsAllowedStatus(raw) {
			return filters, page, FieldError{Field: "status", Message: "unsupported status"}
		}
		filters.Status = Status(raw)
	}

	if raw := strings.TrimSpace(values.Get("type")); raw != "" {
		raw = strings.ToLower(raw)
		if !IsAllowedType(raw) {
			return filters, page, FieldError{Field: "type", Message: "unsupported expense type"}
		}
		filters.Type = Type(raw)
	}

	eventID, err := parseOptionalID("eventId", values.Get("eventId"))
	if err != nil {
		return filters, page, err
	}
	filters.EventID = eventID

	categoryID, err := parseOptionalID("categoryId", values.Get("categoryId"))
	if err != nil {
		return filters, page, err
	}
	filters.CategoryID = categoryID

	startDate, err := parseDate("startDate", values.Get("startDate"))
	if err != nil {
		return filters, page, err
	}
	endDate, err := parseDate("endDate", values.Get("endDate"))
	if err != nil {
		return filters, page, err
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return filters, page, FieldError{Field: "endDate", Message: "must be on or after startDate"}
	}
	filters.StartDate = startDate
	filters.EndDate = endDate

	filters.Query = strings.TrimSpace(values.Get("q"))

	limit, err := parseLimit(values.Get("limit"))
	if err != nil {
		return filters, page, err
	}
	page.Limit = limit

	after := strings.TrimSpace(values.Get("cursor"))
	if after != "" {
		if _, err := pagination.DecodeExpenseCursor(after); err != nil {
			return filters, page, FieldError{Field: "cursor", Message: "invalid cursor"}
		}
	}
	page.After = after

	return filters, page, nil
}

func parseOptionalID(field, value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed < 1 {
		return nil, FieldError{Field: field, Message: "must be a positive integer"}
	}
	return &parsed, nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, FieldError{Field: field, Message: "must be ISO8601 date"}
	}
	return &parsed, nil
}

func parseLimit(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultListLimit, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, FieldError{Field: "limit", Message: "must be a number"}
	}
	if parsed < 1 || parsed > maxListLimit {
		return 0, FieldError{Field: "limit", Message: "must be between 1 and 200"}
	}
	return parsed, nil
}
