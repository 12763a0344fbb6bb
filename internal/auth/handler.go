package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

const maxCredentialsBytes = 4 << 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	result, err := h.service.Register(r.Context(), c)
	if err != nil {
		handleServiceError(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	result, err := h.service.Login(r.Context(), c)
	if err != nil {
		handleServiceError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Me returns the caller's profile, including how many maps they own.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (Credentials, bool) {
	var c Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialsBytes)).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return c, false
	}
	return c, true
}

func handleServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrEmailTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
	case errors.Is(err, ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	default:
		slog.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
