package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/seremi5/expense-server/internal/api/middleware"
	"github.com/seremi5/expense-server/internal/api/problem"
	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/domain/ids"
	"github.com/seremi5/expense-server/internal/metrics"
)

type ExpensesHandler struct {
	Service *expenses.Service
	Env     string
}

func NewExpensesHandler(service *expenses.Service, env string) *ExpensesHandler {
	return &ExpensesHandler{Service: service, Env: env}
}

func (h *ExpensesHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.owner(w, r)
	if !ok {
		return
	}

	filters, page, err := expenses.ParseFilters(r.URL.Query())
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	result, err := h.Service.List(r.Context(), profileID, filters, page)
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, renderExpenseList(result, false))
}

func (h *ExpensesHandler) Create(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var input expenses.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	expense, err := h.Service.Submit(r.Context(), profileID, input)
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	metrics.ExpensesSubmittedTotal.WithLabelValues(string(expense.Type)).Inc()
	writeJSON(w, http.StatusCreated, renderExpense(expense, false))
}

func (h *ExpensesHandler) Get(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ulid, ok := expenseID(w, r, h.Env)
	if !ok {
		return
	}

	expense, err := h.Service.Get(r.Context(), profileID, ulid)
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, renderExpense(expense, false))
}

func (h *ExpensesHandler) Update(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ulid, ok := expenseID(w, r, h.Env)
	if !ok {
		return
	}

	var input expenses.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	expense, err := h.Service.Update(r.Context(), profileID, ulid, input)
	if err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, renderExpense(expense, false))
}

func (h *ExpensesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ulid, ok := expenseID(w, r, h.Env)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), profileID, ulid); err != nil {
		writeExpenseError(w, r, err, h.Env)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpensesHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.Env)
		return "", false
	}
	return claims.Subject, true
}

func expenseID(w http.ResponseWriter, r *http.Request, env string) (string, bool) {
	value := strings.TrimSpace(pathParam(r, "id"))
	if err := ids.ValidateULID(value); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", expenses.FieldError{Field: "id", Message: "invalid expense id"}, env)
		return "", false
	}
	return value, true
}

// writeExpenseError maps expense domain errors to problem responses.
func writeExpenseError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var fieldErr expenses.FieldError
	switch {
	case errors.As(err, &fieldErr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithErrors(map[string]interface{}{fieldErr.Field: fieldErr.Message}))
	case errors.Is(err, expenses.ErrBankDetailsRequired):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Bank details required", err, env,
			problem.WithErrors(map[string]interface{}{"iban": "required for reimbursable expenses"}))
	case errors.Is(err, expenses.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env)
	case errors.Is(err, expenses.ErrNotEditable):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Expense is no longer editable", err, env)
	case errors.Is(err, expenses.ErrInvalidTransition):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Invalid status transition", err, env)
	case errors.Is(err, expenses.ErrConflict):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
	}
}
