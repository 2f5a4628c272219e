package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/seremi5/expense-server/internal/api/pagination"
	"github.com/seremi5/expense-server/internal/api/problem"
	"github.com/seremi5/expense-server/internal/audit"
)

type AuditHandler struct {
	Trail *audit.Recorder
	Env   string
}

func NewAuditHandler(trail *audit.Recorder, env string) *AuditHandler {
	return &AuditHandler{Trail: trail, Env: env}
}

type auditListPayload struct {
	Items      []audit.Entry `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// List returns a filtered page of the audit trail in ascending sequence
// order, oldest entry first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := audit.Filters{
		Actor:        strings.TrimSpace(query.Get("actor")),
		Action:       strings.TrimSpace(query.Get("action")),
		ResourceType: strings.TrimSpace(query.Get("resourceType")),
		ResourceID:   strings.TrimSpace(query.Get("resourceId")),
	}

	var err error
	if filters.Start, err = parseAuditTime(query.Get("start")); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if filters.End, err = parseAuditTime(query.Get("end")); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	page := audit.Page{Limit: 50}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 200 {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", audit.FilterError{Field: "limit", Message: "must be between 1 and 200"}, h.Env)
			return
		}
		page.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("cursor")); raw != "" {
		seq, err := pagination.DecodeSeqCursor(raw)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", audit.FilterError{Field: "cursor", Message: "invalid cursor"}, h.Env)
			return
		}
		page.AfterSeq = seq
	}

	result, err := h.Trail.List(r.Context(), filters, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	payload := auditListPayload{Items: result.Entries}
	if result.HasMore {
		payload.NextCursor = pagination.EncodeSeqCursor(result.LastSeq)
	}
	writeJSON(w, http.StatusOK, payload)
}

func parseAuditTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, audit.FilterError{Field: "start", Message: "must be RFC3339 or ISO8601 date"}
	}
	return parsed, nil
}
