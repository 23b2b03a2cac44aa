package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/auth"
	"github.com/bmoreira/tesouraria/internal/directory"
	"github.com/bmoreira/tesouraria/internal/ledger"
	"github.com/bmoreira/tesouraria/internal/report"
	"github.com/bmoreira/tesouraria/internal/validate"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the ledger endpoints. admin gates the operations reserved to
// administrators: voiding and approving.
func (h *Handler) Routes(admin func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/{id}/void", h.void)
			r.Post("/{id}/approve", h.approve)
		})
	}
}

type createTransactionRequest struct {
	Date                 time.Time     `json:"date" validate:"required"`
	Amount               int64         `json:"amount" validate:"required,gt=0"`
	Type                 ledger.Type   `json:"type"`
	Module               ledger.Module `json:"module" validate:"required"`
	AccountID            *uuid.UUID    `json:"account_id,omitempty"`
	SourceAccountID      *uuid.UUID    `json:"source_account_id,omitempty"`
	DestinationAccountID *uuid.UUID    `json:"destination_account_id,omitempty"`
	MerchantID           *uuid.UUID    `json:"merchant_id,omitempty"`
	Description          string        `json:"description" validate:"required"`
	Notes                string        `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claims := auth.FromContext(r.Context())

	// Secretary entries land as pending until an admin confirms them.
	review := ledger.ReviewValidated
	if claims.Role == auth.RoleSecretary {
		review = ledger.ReviewPending
	}

	tx, err := h.svc.Create(r.Context(), ledger.CreateParams{
		Date:                 req.Date,
		Amount:               req.Amount,
		Type:                 req.Type,
		Module:               req.Module,
		AccountID:            req.AccountID,
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		MerchantID:           req.MerchantID,
		Description:          req.Description,
		Notes:                req.Notes,
		Review:               review,
		CreatedBy:            claims.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidTransaction):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, directory.ErrInactive):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, directory.ErrNotFound):
			http.Error(w, "account or merchant not found", http.StatusBadRequest)
		default:
			slog.Error("failed to create transaction", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	writeJSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ledger.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(ledger.Status(s))
	}

	if s := r.URL.Query().Get("review"); s != "" {
		filter.Review = new(ledger.Review(s))
	}

	if s := r.URL.Query().Get("module"); s != "" {
		filter.Module = new(ledger.Module(s))
	}

	if s := r.URL.Query().Get("account_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			filter.AccountID = new(id)
		}
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = new(t)
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = new(report.EndOfDay(t))
		}
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

type updateTransactionRequest struct {
	Description *string `json:"description,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claims := auth.FromContext(r.Context())

	tx, err := h.svc.Update(r.Context(), id, ledger.UpdateParams{
		Description: req.Description,
		Notes:       req.Notes,
		UpdatedBy:   claims.Email,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req voidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claims := auth.FromContext(r.Context())

	err = h.svc.Void(r.Context(), id, req.Reason, claims.Email)

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrAlreadyVoided):
		http.Error(w, "transaction already voided", http.StatusConflict)
	case errors.Is(err, ledger.ErrReasonTooShort):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Approve(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
