package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

// Authenticator is the service surface the handler needs.
type Authenticator interface {
	Register(ctx context.Context, email, password, clinicCode string) (*Account, error)
	Login(ctx context.Context, email, password string) (string, *Account, error)
}

// Handler serves doctor registration and login.
type Handler struct {
	service Authenticator
	logger  *logging.Logger
}

// NewHandler builds the auth handler.
func NewHandler(service Authenticator, logger *logging.Logger) *Handler {
	if service == nil {
		panic("auth: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, ErrClinicCodeTaken):
		return http.StatusConflict, "clinic_code_taken"
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword), errors.Is(err, ErrEmptyClinicCode):
		return http.StatusBadRequest, "validation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("auth request failed", "kind", kind, "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleRegister creates a doctor account.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		ClinicCode string `json:"clinicCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, ErrInvalidEmail)
		return
	}

	account, err := h.service.Register(r.Context(), req.Email, req.Password, req.ClinicCode)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"doctor": account})
}

// HandleLogin verifies credentials and returns a bearer token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, ErrInvalidCredentials)
		return
	}

	token, account, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":  token,
		"doctor": account,
	})
}
