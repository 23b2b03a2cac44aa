package rosterimport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/graduation"
	"github.com/bmoreira/tesouraria/internal/roster"
)

// 10 MiB is plenty for a class roster spreadsheet.
const maxUploadSize = 10 << 20

type Handler struct {
	svc *graduation.Service
}

func NewHandler(svc *graduation.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/classes/{classID}/roster", h.upload)
	}
}

type uploadResponse struct {
	Created int                      `json:"created"`
	Errors  []graduation.EnrollError `json:"errors,omitempty"`
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	classID, err := uuid.Parse(chi.URLParam(r, "classID"))
	if err != nil {
		http.Error(w, "invalid class id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, err := roster.Parse(file, header.Filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.EnrollStudents(r.Context(), classID, rows)
	if err != nil {
		slog.Error("failed to enroll students", "class_id", classID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	status := http.StatusCreated
	if len(result.Errors) > 0 {
		// Partial success still lands the good rows.
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, uploadResponse{
		Created: result.Created,
		Errors:  result.Errors,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
