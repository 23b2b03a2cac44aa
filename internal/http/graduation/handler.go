package graduation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/auth"
	"github.com/bmoreira/tesouraria/internal/graduation"
	"github.com/bmoreira/tesouraria/internal/validate"
)

type Handler struct {
	svc *graduation.Service
}

func NewHandler(svc *graduation.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(admin func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}/classes", h.listClasses)
		r.Get("/{id}/config", h.currentConfig)
		r.Get("/{id}/classes/{classID}/students", h.listStudents)
		r.Get("/{id}/obligations", h.listObligations)
		r.Get("/{id}/summary", h.summary)

		r.Post("/{id}/entries", h.addEntry)
		r.Post("/{id}/expenses", h.addExpense)
		r.Post("/{id}/transfers", h.addTransfer)
		r.Post("/{id}/students/{studentID}/installments", h.generate)
		r.Post("/{id}/classes/{classID}/payments", h.markPaid)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", h.create)
			r.Post("/{id}/classes", h.createClass)
			r.Put("/{id}/config", h.saveConfig)
			r.Post("/{id}/regenerate", h.regenerate)
			r.Post("/{id}/charges", h.globalCharge)
			r.Post("/{id}/adjustments", h.addAdjustment)
		})
	}
}

func graduationID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

type createGraduationRequest struct {
	Name string `json:"name" validate:"required"`
	Year int    `json:"year" validate:"required,gte=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createGraduationRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	g, err := h.svc.CreateGraduation(r.Context(), req.Name, req.Year)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	graduations, err := h.svc.ListGraduations(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, graduations)
}

type createClassRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) createClass(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req createClassRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	c, err := h.svc.CreateClass(r.Context(), id, req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	classes, err := h.svc.ListClasses(r.Context(), id)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, classes)
}

type saveConfigRequest struct {
	InstallmentValue  int64 `json:"installment_value" validate:"required,gt=0"`
	InstallmentsCount int   `json:"installments_count" validate:"required,gte=1"`
	DueDay            int   `json:"due_day" validate:"required,gte=1,lte=31"`
	StartMonth        int   `json:"start_month" validate:"required,gte=1,lte=12"`
}

func (h *Handler) saveConfig(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req saveConfigRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	cfg, err := h.svc.SaveConfig(r.Context(), graduation.CarnetConfig{
		GraduationID:      id,
		InstallmentValue:  req.InstallmentValue,
		InstallmentsCount: req.InstallmentsCount,
		DueDay:            req.DueDay,
		StartMonth:        req.StartMonth,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, cfg)
}

func (h *Handler) currentConfig(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	cfg, err := h.svc.CurrentConfig(r.Context(), id)
	if err != nil {
		if errors.Is(err, graduation.ErrNoConfig) {
			http.Error(w, "no current config", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	studentID, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		http.Error(w, "invalid student id", http.StatusBadRequest)
		return
	}

	created, err := h.svc.GenerateInstallments(r.Context(), id, studentID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, graduation.ErrNotFound) || errors.Is(err, graduation.ErrNoConfig) {
			status = http.StatusNotFound
		}

		http.Error(w, err.Error(), status)

		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"created": created})
}

func (h *Handler) regenerate(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	created, err := h.svc.RegenerateAll(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, graduation.ErrNotFound) || errors.Is(err, graduation.ErrNoConfig) {
			status = http.StatusNotFound
		}

		http.Error(w, err.Error(), status)

		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	classID, err := uuid.Parse(chi.URLParam(r, "classID"))
	if err != nil {
		http.Error(w, "invalid class id", http.StatusBadRequest)
		return
	}

	students, err := h.svc.ListStudents(r.Context(), classID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) listObligations(w http.ResponseWriter, r *http.Request) {
	filter := graduation.ObligationFilter{}

	if s := r.URL.Query().Get("class_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			filter.ClassID = new(id)
		}
	}

	if s := r.URL.Query().Get("student_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			filter.StudentID = new(id)
		}
	}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(graduation.ObligationStatus(s))
	}

	if s := r.URL.Query().Get("label"); s != "" {
		filter.ReferenceLabel = new(s)
	}

	obligations, err := h.svc.ListObligations(r.Context(), filter)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, obligations)
}

type markPaidRequest struct {
	ReferenceLabel string      `json:"reference_label" validate:"required"`
	StudentIDs     []uuid.UUID `json:"student_ids" validate:"required,min=1"`
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	classID, err := uuid.Parse(chi.URLParam(r, "classID"))
	if err != nil {
		http.Error(w, "invalid class id", http.StatusBadRequest)
		return
	}

	var req markPaidRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	claims := auth.FromContext(r.Context())

	flipped, err := h.svc.MarkPaidBatch(r.Context(), classID, req.ReferenceLabel, req.StudentIDs, claims.Email)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"paid": flipped})
}

type globalChargeRequest struct {
	Kind    graduation.ObligationKind `json:"kind" validate:"required"`
	Label   string                    `json:"label" validate:"required"`
	Amount  int64                     `json:"amount" validate:"required,gt=0"`
	DueDate time.Time                 `json:"due_date" validate:"required"`
}

func (h *Handler) globalCharge(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req globalChargeRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	created, err := h.svc.GlobalCharge(r.Context(), id, req.Kind, req.Label, req.Amount, req.DueDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"created": created})
}

type addEntryRequest struct {
	ClassID     *uuid.UUID           `json:"class_id,omitempty"`
	Type        graduation.EntryType `json:"type" validate:"required"`
	Rail        graduation.Rail      `json:"rail" validate:"required,oneof=pix cash"`
	Amount      int64                `json:"amount" validate:"required,gt=0"`
	Date        time.Time            `json:"date" validate:"required"`
	Description string               `json:"description"`
}

func (h *Handler) addEntry(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req addEntryRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	e := &graduation.Entry{
		GraduationID: id,
		ClassID:      req.ClassID,
		Type:         req.Type,
		Rail:         req.Rail,
		Amount:       req.Amount,
		Date:         req.Date,
		Description:  req.Description,
	}
	if err := h.svc.AddEntry(r.Context(), e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

type addExpenseRequest struct {
	Rail        graduation.Rail `json:"rail" validate:"required,oneof=pix cash"`
	Amount      int64           `json:"amount" validate:"required,gt=0"`
	Date        time.Time       `json:"date" validate:"required"`
	Description string          `json:"description"`
}

func (h *Handler) addExpense(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req addExpenseRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	e := &graduation.Expense{
		GraduationID: id,
		Rail:         req.Rail,
		Amount:       req.Amount,
		Date:         req.Date,
		Description:  req.Description,
	}
	if err := h.svc.AddExpense(r.Context(), e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

type addTransferRequest struct {
	FromRail    graduation.Rail `json:"from_rail" validate:"required,oneof=pix cash"`
	ToRail      graduation.Rail `json:"to_rail" validate:"required,oneof=pix cash"`
	Amount      int64           `json:"amount" validate:"required,gt=0"`
	Date        time.Time       `json:"date" validate:"required"`
	Description string          `json:"description"`
}

func (h *Handler) addTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req addTransferRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	t := &graduation.Transfer{
		GraduationID: id,
		FromRail:     req.FromRail,
		ToRail:       req.ToRail,
		Amount:       req.Amount,
		Date:         req.Date,
		Description:  req.Description,
	}
	if err := h.svc.AddTransfer(r.Context(), t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

type addAdjustmentRequest struct {
	Rail        graduation.Rail `json:"rail" validate:"required,oneof=pix cash"`
	Amount      int64           `json:"amount" validate:"required"`
	Date        time.Time       `json:"date" validate:"required"`
	Description string          `json:"description" validate:"required"`
}

func (h *Handler) addAdjustment(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req addAdjustmentRequest
	if err := decodeValid(w, r, &req); err != nil {
		return
	}

	a := &graduation.Adjustment{
		GraduationID: id,
		Rail:         req.Rail,
		Amount:       req.Amount,
		Date:         req.Date,
		Description:  req.Description,
	}
	if err := h.svc.AddAdjustment(r.Context(), a); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, err := graduationID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	summary, err := h.svc.Summary(r.Context(), id)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// decodeValid decodes and validates the body, writing the error response
// itself; a non-nil return means the handler should stop.
func decodeValid(w http.ResponseWriter, r *http.Request, dto any) error {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}

	if err := validate.Struct(dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
