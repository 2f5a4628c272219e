package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seremi5/expense-server/internal/audit"
)

func newAuditHandlerWithEntries(t *testing.T, count int) *AuditHandler {
	t.Helper()
	repo := newStubAuditRepo()
	trail := audit.NewRecorder(repo)
	for i := 1; i <= count; i++ {
		trail.Record(context.Background(), audit.Entry{
			Actor:        "admin-1",
			Action:       "expense.decision",
			ResourceType: "expense",
			ResourceID:   "expense-" + strconv.Itoa(i),
			Status:       "success",
		})
	}
	return NewAuditHandler(trail, "test")
}

func TestAuditList(t *testing.T) {
	handler := newAuditHandlerWithEntries(t, 3)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs", nil), newTestUserID(), "admin")
	res := httptest.NewRecorder()
	handler.List(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var payload auditListPayload
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Len(t, payload.Items, 3)
	require.Empty(t, payload.NextCursor)
}

func TestAuditListCursorPagination(t *testing.T) {
	handler := newAuditHandlerWithEntries(t, 5)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?limit=2", nil), newTestUserID(), "admin")
	res := httptest.NewRecorder()
	handler.List(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var first auditListPayload
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &first))
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	req = authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?limit=2&cursor="+first.NextCursor, nil), newTestUserID(), "admin")
	res = httptest.NewRecorder()
	handler.List(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var second auditListPayload
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &second))
	require.Len(t, second.Items, 2)
	require.Greater(t, second.Items[0].Seq, first.Items[1].Seq)
}

func TestAuditListLimitValidation(t *testing.T) {
	handler := newAuditHandlerWithEntries(t, 1)

	for _, limit := range []string{"0", "201", "abc"} {
		req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?limit="+limit, nil), newTestUserID(), "admin")
		res := httptest.NewRecorder()
		handler.List(res, req)
		require.Equal(t, http.StatusBadRequest, res.Code, "limit=%s", limit)
	}
}

func TestAuditListBadCursor(t *testing.T) {
	handler := newAuditHandlerWithEntries(t, 1)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?cursor=not-a-cursor", nil), newTestUserID(), "admin")
	res := httptest.NewRecorder()
	handler.List(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestAuditListBadTimeFilter(t *testing.T) {
	handler := newAuditHandlerWithEntries(t, 1)

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?start=yesterday", nil), newTestUserID(), "admin")
	res := httptest.NewRecorder()
	handler.List(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestAuditListActionFilter(t *testing.T) {
	repo := newStubAuditRepo()
	trail := audit.NewRecorder(repo)
	trail.Record(context.Background(), audit.Entry{Actor: "admin-1", Action: "expense.decision", ResourceType: "expense", ResourceID: "a", Status: "success"})
	trail.Record(context.Background(), audit.Entry{Actor: "system", Action: "expense.flag_stale", ResourceType: "expense", ResourceID: "b", Status: "success"})
	handler := NewAuditHandler(trail, "test")

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?action=expense.flag_stale", nil), newTestUserID(), "admin")
	res := httptest.NewRecorder()
	handler.List(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var payload auditListPayload
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Len(t, payload.Items, 1)
	require.Equal(t, "system", payload.Items[0].Actor)
}
