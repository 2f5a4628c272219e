package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/seremi5/expense-server/internal/api/middleware"
	"github.com/seremi5/expense-server/internal/api/problem"
	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/metrics"
)

type AdminExpensesHandler struct {
	Admin *expenses.AdminService
	Env   string
}

func NewAdminExpensesHandler(admin *expenses.AdminService, env string) *AdminExpensesHandler {
	return &AdminExpensesHandler{Admin: admin, Env: env}
}

// List returns expenses across all submitters for the review queue.
func (h *AdminExpensesHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, page, err := expenses.ParseFilters(r.URL.Query())
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	result, err := h.Admin.List(r.Context(), filters, page)
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, renderExpenseList(result, true))
}

func (h *AdminExpensesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ulid, ok := expenseID(w, r, h.Env)
	if !ok {
		return
	}

	expense, err := h.Admin.Get(r.Context(), ulid)
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, renderExpense(expense, true))
}

type decisionRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// Decide applies a review decision to an expense.
func (h *AdminExpensesHandler) Decide(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := h.reviewer(w, r)
	if !ok {
		return
	}
	ulid, ok := expenseID(w, r, h.Env)
	if !ok {
		return
	}

	var input decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	status := expenses.Status(strings.ToLower(strings.TrimSpace(input.Status)))
	expense, err := h.Admin.Decide(r.Context(), reviewerID, ulid, status, input.Note)
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	metrics.ExpenseDecisionsTotal.WithLabelValues(string(expense.Status)).Inc()
	writeJSON(w, http.StatusOK, renderExpense(expense, true))
}

// MarkPaid closes a ready_to_pay expense once the transfer went out.
func (h *AdminExpensesHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := h.reviewer(w, r)
	if !ok {
		return
	}
	ulid, ok := expenseID(w, r, h.Env)
	if !ok {
		return
	}

	expense, err := h.Admin.MarkPaid(r.Context(), reviewerID, ulid)
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	metrics.ExpenseDecisionsTotal.WithLabelValues(string(expense.Status)).Inc()
	writeJSON(w, http.StatusOK, renderExpense(expense, true))
}

func (h *AdminExpensesHandler) reviewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.Env)
		return "", false
	}
	return claims.Subject, true
}
