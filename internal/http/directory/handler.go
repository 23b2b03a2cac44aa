package directory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/directory"
	"github.com/bmoreira/tesouraria/internal/validate"
)

type Handler struct {
	svc *directory.Service
}

func NewHandler(svc *directory.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(admin func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/entities", h.listEntities)
		r.Get("/accounts", h.listAccounts)
		r.Get("/accounts/{id}", h.getAccount)
		r.Get("/merchants", h.listMerchants)
		r.Get("/merchants/{id}", h.getMerchant)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/entities", h.createEntity)
			r.Post("/accounts", h.createAccount)
			r.Delete("/accounts/{id}", h.deactivateAccount)
			r.Post("/merchants", h.createMerchant)
			r.Delete("/merchants/{id}", h.deactivateMerchant)
		})
	}
}

type entityResponse struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Type      directory.EntityType `json:"type"`
	CreatedAt time.Time            `json:"created_at"`
}

type accountResponse struct {
	ID        uuid.UUID             `json:"id"`
	EntityID  uuid.UUID             `json:"entity_id"`
	Name      string                `json:"name"`
	Kind      directory.AccountKind `json:"kind"`
	Number    string                `json:"account_number,omitempty"`
	Balance   int64                 `json:"balance"`
	Active    bool                  `json:"active"`
	CreatedAt time.Time             `json:"created_at"`
}

type merchantResponse struct {
	ID        uuid.UUID `json:"id"`
	EntityID  uuid.UUID `json:"entity_id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type createEntityRequest struct {
	Name string               `json:"name" validate:"required"`
	Type directory.EntityType `json:"type" validate:"required"`
}

func (h *Handler) createEntity(w http.ResponseWriter, r *http.Request) {
	var req createEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e, err := h.svc.CreateEntity(r.Context(), directory.CreateEntityParams{
		Name: req.Name,
		Type: req.Type,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, toEntityResponse(e))
}

func (h *Handler) listEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.svc.ListEntities(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]entityResponse, len(entities))
	for i, e := range entities {
		resp[i] = toEntityResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}

type createAccountRequest struct {
	EntityID uuid.UUID             `json:"entity_id" validate:"required"`
	Name     string                `json:"name" validate:"required"`
	Kind     directory.AccountKind `json:"kind" validate:"required"`
	Number   string                `json:"account_number"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a, err := h.svc.CreateAccount(r.Context(), directory.CreateAccountParams{
		EntityID: req.EntityID,
		Name:     req.Name,
		Kind:     req.Kind,
		Number:   req.Number,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	a, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	var entityID *uuid.UUID

	if s := r.URL.Query().Get("entity_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid entity_id", http.StatusBadRequest)
			return
		}

		entityID = &id
	}

	accounts, err := h.svc.ListAccounts(r.Context(), entityID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = toAccountResponse(a)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeactivateAccount(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createMerchantRequest struct {
	EntityID uuid.UUID `json:"entity_id" validate:"required"`
	Name     string    `json:"name" validate:"required"`
}

func (h *Handler) createMerchant(w http.ResponseWriter, r *http.Request) {
	var req createMerchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.svc.CreateMerchant(r.Context(), directory.CreateMerchantParams{
		EntityID: req.EntityID,
		Name:     req.Name,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, toMerchantResponse(m))
}

func (h *Handler) getMerchant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	m, err := h.svc.GetMerchant(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			http.Error(w, "merchant not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toMerchantResponse(m))
}

func (h *Handler) listMerchants(w http.ResponseWriter, r *http.Request) {
	var entityID *uuid.UUID

	if s := r.URL.Query().Get("entity_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid entity_id", http.StatusBadRequest)
			return
		}

		entityID = &id
	}

	merchants, err := h.svc.ListMerchants(r.Context(), entityID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]merchantResponse, len(merchants))
	for i, m := range merchants {
		resp[i] = toMerchantResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deactivateMerchant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeactivateMerchant(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			http.Error(w, "merchant not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toEntityResponse(e *directory.Entity) entityResponse {
	return entityResponse{ID: e.ID, Name: e.Name, Type: e.Type, CreatedAt: e.CreatedAt}
}

func toAccountResponse(a *directory.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		EntityID:  a.EntityID,
		Name:      a.Name,
		Kind:      a.Kind,
		Number:    a.Number,
		Balance:   a.Balance,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

func toMerchantResponse(m *directory.Merchant) merchantResponse {
	return merchantResponse{
		ID:        m.ID,
		EntityID:  m.EntityID,
		Name:      m.Name,
		Balance:   m.Balance,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
