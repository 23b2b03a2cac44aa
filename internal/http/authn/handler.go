package authn

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bmoreira/tesouraria/internal/auth"
	"github.com/bmoreira/tesouraria/internal/validate"
)

type Handler struct {
	users  []auth.User
	secret []byte
	ttl    time.Duration
}

func NewHandler(users []auth.User, secret []byte, ttl time.Duration) *Handler {
	return &Handler{users: users, secret: secret, ttl: ttl}
}

func (h *Handler) Routes() func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/login", h.login)
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Role      auth.Role `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.Authenticate(h.users, req.Email, req.Password)
	if err != nil {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.Mint(h.secret, user.Email, user.Email, user.Role, h.ttl)
	if err != nil {
		slog.Error("failed to mint token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(h.ttl),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
