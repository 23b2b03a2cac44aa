package auditlog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/audit"
)

type Handler struct {
	svc *audit.Service
}

func NewHandler(svc *audit.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.list)
	}
}

type entryResponse struct {
	ID            uuid.UUID       `json:"id"`
	Action        audit.Action    `json:"action"`
	Reason        string          `json:"reason,omitempty"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	Before        json.RawMessage `json:"before,omitempty"`
	After         json.RawMessage `json:"after,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.ListFilter{}

	if s := q.Get("action"); s != "" {
		filter.Action = new(audit.Action(s))
	}

	if s := q.Get("transaction_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid transaction id", http.StatusBadRequest)
			return
		}

		filter.TransactionID = &id
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		filter.Limit = n
	}

	entries, err := h.svc.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list audit entries", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:            e.ID,
			Action:        e.Action,
			Reason:        e.Reason,
			TransactionID: e.TransactionID,
			Before:        e.Before,
			After:         e.After,
			CreatedBy:     e.CreatedBy,
			CreatedAt:     e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
