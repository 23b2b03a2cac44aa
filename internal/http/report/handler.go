package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/report"
)

type Handler struct {
	svc *report.Service
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/export", h.export)
	}
}

func parseWindow(r *http.Request) (start, end time.Time, entityID *uuid.UUID, err error) {
	q := r.URL.Query()

	start, err = time.Parse("2006-01-02", q.Get("start"))
	if err != nil {
		return start, end, nil, fmt.Errorf("invalid start date: %w", err)
	}

	end, err = time.Parse("2006-01-02", q.Get("end"))
	if err != nil {
		return start, end, nil, fmt.Errorf("invalid end date: %w", err)
	}

	if s := q.Get("entity_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return start, end, nil, fmt.Errorf("invalid entity id: %w", err)
		}

		entityID = &id
	}

	return start, end, entityID, nil
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	start, end, entityID, err := parseWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.svc.Build(r.Context(), start, end, entityID)
	if err != nil {
		slog.Error("failed to build summary", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	start, end, entityID, err := parseWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filename := fmt.Sprintf("movimentacoes_%s_%s.xlsx",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.svc.WriteExcel(r.Context(), w, start, end, entityID); err != nil {
		// Headers are already out; all we can do is log.
		slog.Error("failed to write excel export", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
