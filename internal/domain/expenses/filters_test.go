package expenses

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seremi5/expense-server/internal/api/pagination"
)

func TestParseFiltersDefaults(t *testing.T) {
	filters, page, err := ParseFilters(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, Filters{}, filters)
	assert.Equal(t, defaultListLimit, page.Limit)
	assert.Empty(t, page.After)
}

func TestParseFiltersAll(t *testing.T) {
	cursor := pagination.EncodeExpenseCursor(time.Now(), "01HZXF8A2B3C4D5E6F7G8H9J0K")

	values := url.Values{
		"status":     {"Flagged"},
		"type":       {"reimbursable"},
		"eventId":    {"7"},
		"categoryId": {"3"},
		"startDate":  {"2026-01-01"},
		"endDate":    {"2026-06-30"},
		"q":          {"  coop "},
		"limit":      {"25"},
		"cursor":     {cursor},
	}

	filters, page, err := ParseFilters(values)
	require.NoError(t, err)
	assert.Equal(t, StatusFlagged, filters.Status)
	assert.Equal(t, TypeReimbursable, filters.Type)
	require.NotNil(t, filters.EventID)
	assert.Equal(t, int64(7), *filters.EventID)
	require.NotNil(t, filters.CategoryID)
	assert.Equal(t, int64(3), *filters.CategoryID)
	assert.Equal(t, "coop", filters.Query)
	assert.Equal(t, 25, page.Limit)
	assert.Equal(t, cursor, page.After)
}

func TestParseFiltersRejectsUnknownStatus(t *testing.T) {
	_, _, err := ParseFilters(url.Values{"status": {"archived"}})
	var fieldErr FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "status", fieldErr.Field)
}

func TestParseFiltersRejectsUnknownType(t *testing.T) {
	_, _, err := ParseFilters(url.Values{"type": {"refund"}})
	var fieldErr FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "type", fieldErr.Field)
}

func TestParseFiltersIDValidation(t *testing.T) {
	for _, bad := range []string{"0", "-1", "abc"} {
		_, _, err := ParseFilters(url.Values{"eventId": {bad}})
		assert.Error(t, err, bad)
	}
}

func TestParseFiltersDateRange(t *testing.T) {
	_, _, err := ParseFilters(url.Values{"startDate": {"01.02.2026"}})
	var fieldErr FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "startDate", fieldErr.Field)

	_, _, err = ParseFilters(url.Values{
		"startDate": {"2026-06-30"},
		"endDate":   {"2026-01-01"},
	})
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "endDate", fieldErr.Field)
}

func TestParseFiltersLimitBounds(t *testing.T) {
	for _, bad := range []string{"0", "201", "-5", "ten"} {
		_, _, err := ParseFilters(url.Values{"limit": {bad}})
		assert.Error(t, err, bad)
	}

	_, page, err := ParseFilters(url.Values{"limit": {"200"}})
	require.NoError(t, err)
	assert.Equal(t, 200, page.Limit)
}

func TestParseFiltersRejectsMalformedCursor(t *testing.T) {
	_, _, err := ParseFilters(url.Values{"cursor": {"not-a-cursor"}})
	var fieldErr FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "cursor", fieldErr.Field)
}
