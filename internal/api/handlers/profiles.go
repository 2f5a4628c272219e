package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seremi5/expense-server/internal/api/middleware"
	"github.com/seremi5/expense-server/internal/api/problem"
	"github.com/seremi5/expense-server/internal/domain/profiles"
)

type ProfilesHandler struct {
	Service *profiles.Service
	Env     string
}

func NewProfilesHandler(service *profiles.Service, env string) *ProfilesHandler {
	return &ProfilesHandler{Service: service, Env: env}
}

func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.subject(w, r)
	if !ok {
		return
	}

	profile, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, renderProfile(profile))
}

func (h *ProfilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.subject(w, r)
	if !ok {
		return
	}

	var input profiles.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	profile, err := h.Service.UpdateProfile(r.Context(), id, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, renderProfile(profile))
}

// UpdateBankDetails stores the payout account used for reimbursable expenses.
func (h *ProfilesHandler) UpdateBankDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := h.subject(w, r)
	if !ok {
		return
	}

	var input profiles.BankDetailsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	profile, err := h.Service.UpdateBankDetails(r.Context(), id, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, renderProfile(profile))
}

// AdminList returns every registered profile, including bank details,
// for the reviewer payout screen.
func (h *ProfilesHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, renderProfiles(list))
}

func (h *ProfilesHandler) subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.Env)
		return "", false
	}
	return claims.Subject, true
}

func (h *ProfilesHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr profiles.FieldError
	switch {
	case errors.As(err, &fieldErr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(map[string]interface{}{fieldErr.Field: fieldErr.Message}))
	case errors.Is(err, profiles.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
	}
}
