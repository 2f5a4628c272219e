package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seremi5/expense-server/internal/api/middleware"
	"github.com/seremi5/expense-server/internal/api/problem"
	"github.com/seremi5/expense-server/internal/auth"
	"github.com/seremi5/expense-server/internal/domain/profiles"
)

type AuthHandler struct {
	Profiles *profiles.Service
	JWT      *auth.JWTManager
	Env      string
}

func NewAuthHandler(service *profiles.Service, jwt *auth.JWTManager, env string) *AuthHandler {
	return &AuthHandler{Profiles: service, JWT: jwt, Env: env}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string         `json:"token"`
	ExpiresIn int64          `json:"expires_in"`
	Profile   profilePayload `json:"profile"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input profiles.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	profile, err := h.Profiles.Register(r.Context(), input)
	if err != nil {
		if errors.Is(err, profiles.ErrEmailTaken) {
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Email already registered", err, h.Env)
			return
		}
		var fieldErr profiles.FieldError
		if errors.As(err, &fieldErr) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithErrors(map[string]interface{}{fieldErr.Field: fieldErr.Message}))
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	h.writeToken(w, r, profile, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	profile, err := h.Profiles.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		// Wrong password and unknown email read the same.
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, h.Env)
		return
	}

	h.writeToken(w, r, profile, http.StatusOK)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", auth.ErrMissingToken, h.Env)
		return
	}

	profile, err := h.Profiles.Get(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, renderProfile(profile))
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, profile *profiles.Profile, status int) {
	token, err := h.JWT.Generate(profile.ID, string(profile.Role), profile.Email)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, status, tokenResponse{
		Token:     token,
		ExpiresIn: int64(h.JWT.Expiry().Seconds()),
		Profile:   renderProfile(profile),
	})
}
