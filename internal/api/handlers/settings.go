package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/seremi5/expense-server/internal/api/problem"
	"github.com/seremi5/expense-server/internal/domain/settings"
)

type SettingsHandler struct {
	Service *settings.Service
	Env     string
}

func NewSettingsHandler(service *settings.Service, env string) *SettingsHandler {
	return &SettingsHandler{Service: service, Env: env}
}

// Events lists events for the submit form. Admin callers can pass
// includeInactive=true to see deactivated entries.
func (h *SettingsHandler) Events(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	items, err := h.Service.Events(r.Context(), includeInactive)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *SettingsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	items, err := h.Service.Categories(r.Context(), includeInactive)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *SettingsHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var input settings.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.CreateEvent(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *SettingsHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := settingID(w, r, h.Env)
	if !ok {
		return
	}

	var input settings.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.UpdateEvent(r.Context(), id, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type activeRequest struct {
	Active bool `json:"active"`
}

// SetEventActive toggles whether an event shows up in the submit form.
// Events are never deleted so existing expenses keep their references.
func (h *SettingsHandler) SetEventActive(w http.ResponseWriter, r *http.Request) {
	id, ok := settingID(w, r, h.Env)
	if !ok {
		return
	}

	var input activeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.SetEventActive(r.Context(), id, input.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *SettingsHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input settings.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	category, err := h.Service.CreateCategory(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *SettingsHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := settingID(w, r, h.Env)
	if !ok {
		return
	}

	var input settings.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	category, err := h.Service.UpdateCategory(r.Context(), id, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *SettingsHandler) SetCategoryActive(w http.ResponseWriter, r *http.Request) {
	id, ok := settingID(w, r, h.Env)
	if !ok {
		return
	}

	var input activeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	category, err := h.Service.SetCategoryActive(r.Context(), id, input.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func settingID(w http.ResponseWriter, r *http.Request, env string) (int64, bool) {
	raw := strings.TrimSpace(pathParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", settings.FieldError{Field: "id", Message: "must be a positive integer"}, env)
		return 0, false
	}
	return id, true
}

func (h *SettingsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr settings.FieldError
	switch {
	case errors.As(err, &fieldErr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(map[string]interface{}{fieldErr.Field: fieldErr.Message}))
	case errors.Is(err, settings.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
	}
}
