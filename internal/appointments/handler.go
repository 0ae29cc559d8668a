package appointments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/httpx"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/middleware"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/transport"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	query := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	availability, err := h.service.GetAvailability(ctx, query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		if writeKnownError(w, err) {
			log.Warn("availability: invalid query", slog.String("error", err.Error()))
			return
		}
		log.Error("availability: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, availability)
}

// Create handles the public booking form and records a PENDING request.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "booking create", h.service.CreateAppointment)
}

// BookDirect lets an admin create an appointment that is already BOOKED.
func (h *Handler) BookDirect(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "admin appointments create", h.service.BookDirect)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, area string, op func(context.Context, BookingRequest) (Appointment, error)) {
	log := h.logWithRequest(r)

	var req BookingRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn(area + ": invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.val.Struct(req); err != nil {
		log.Warn(area + ": validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, err := op(ctx, req)
	if err != nil {
		if writeKnownError(w, err) {
			log.Warn(area+": rejected",
				slog.String("date", req.Date),
				slog.String("time", req.Time),
				slog.String("error", err.Error()),
			)
			return
		}
		log.Error(area+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info(area+": ok",
		slog.String("appointment_id", appt.ID),
		slog.String("date", appt.Date),
		slog.String("time", appt.StartTime),
		slog.String("status", string(appt.Status)),
	)
	transport.WriteJSON(w, http.StatusCreated, appt)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	appt, err := h.service.GetAppointment(ctx, id)
	if err != nil {
		if writeKnownError(w, err) {
			log.Warn("appointments get: not found", slog.String("appointment_id", id))
			return
		}
		log.Error("appointments get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "appointments book", "appointment booked", h.service.BookAppointment)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "appointments cancel", "appointment cancelled", h.service.CancelAppointment)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, area, message string, op func(context.Context, string) (Appointment, error)) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, err := op(ctx, id)
	if err != nil {
		if writeKnownError(w, err) {
			log.Warn(area+": rejected", slog.String("appointment_id", id), slog.String("error", err.Error()))
			return
		}
		log.Error(area+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info(area+": ok", slog.String("appointment_id", appt.ID), slog.String("status", string(appt.Status)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"data":    appt,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin appointments update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin appointments update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, err := h.service.UpdateAppointment(ctx, id, req)
	if err != nil {
		if writeKnownError(w, err) {
			log.Warn("admin appointments update: rejected", slog.String("appointment_id", id), slog.String("error", err.Error()))
			return
		}
		log.Error("admin appointments update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin appointments update: ok", slog.String("appointment_id", appt.ID), slog.String("status", string(appt.Status)))
	transport.WriteJSON(w, http.StatusOK, appt)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	query := r.URL.Query()

	page, err := httpx.ParsePage(query, 20, 100)
	if err != nil {
		log.Warn("admin appointments list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := ListFilter{
		Status:        Status(strings.ToUpper(strings.TrimSpace(query.Get("status")))),
		StartDate:     strings.TrimSpace(query.Get("startDate")),
		EndDate:       strings.TrimSpace(query.Get("endDate")),
		AppointmentID: query.Get("appointmentId"),
		Email:         query.Get("email"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.GetAllAppointments(ctx, filter, page)
	if err != nil {
		if writeKnownError(w, err) {
			log.Warn("admin appointments list: invalid query", slog.String("error", err.Error()))
			return
		}
		log.Error("admin appointments list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin appointments list: ok", slog.Int("count", len(items)), slog.Int64("total", total))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": items,
		"total":        total,
		"page":         page.Page,
		"pageSize":     page.PageSize,
	})
}

func writeKnownError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, ErrNotFound):
		transport.WriteCodedError(w, http.StatusNotFound, transport.CodeNotFound, "appointment not found", nil)
	case errors.Is(err, ErrSlotFull):
		transport.WriteCodedError(w, http.StatusConflict, transport.CodeSlotFull, "slot is fully booked", nil)
	case errors.Is(err, ErrInvalidTransition):
		transport.WriteCodedError(w, http.StatusConflict, transport.CodeInvalidTransition, "invalid status transition", nil)
	case errors.Is(err, ErrSlotInPast):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"time": "future"})
	case errors.Is(err, ErrInvalidStatus):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"status": "appointmentstatus"})
	default:
		return slots.WriteKnownError(w, err)
	}
	return true
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
