package slots

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/httpx"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/middleware"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/schedule"
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

func (h *Handler) ListRange(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	query := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.GetAllSlotsForDateRange(ctx, query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		if WriteKnownError(w, err) {
			log.Warn("slots list: invalid query", slog.String("error", err.Error()))
			return
		}
		log.Error("slots list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("slots list: ok", slog.Int("count", total))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slots": items,
		"total": total,
	})
}

func (h *Handler) ListForDate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	date := strings.TrimSpace(chi.URLParam(r, "date"))

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.service.GetAllSlotsForDate(ctx, date)
	if err != nil {
		if WriteKnownError(w, err) {
			log.Warn("slots date: invalid date", slog.String("date", date))
			return
		}
		log.Error("slots date: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("slots date: ok", slog.String("date", date), slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slots": items,
		"total": len(items),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	date := strings.TrimSpace(chi.URLParam(r, "date"))
	clock := strings.TrimSpace(chi.URLParam(r, "time"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	slot, err := h.service.GetSlot(ctx, date, clock)
	if err != nil {
		if WriteKnownError(w, err) {
			log.Warn("slots get: rejected", slog.String("date", date), slog.String("time", clock), slog.String("error", err.Error()))
			return
		}
		log.Error("slots get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slot": slot,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	date := strings.TrimSpace(chi.URLParam(r, "date"))

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("slots create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("slots create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	slot, err := h.service.CreateSlot(ctx, date, req.Spec())
	if err != nil {
		if WriteKnownError(w, err) {
			log.Warn("slots create: rejected", slog.String("date", date), slog.String("error", err.Error()))
			return
		}
		log.Error("slots create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("slots create: ok", slog.String("slot_id", slot.ID), slog.String("date", date), slog.String("start", slot.StartTime))
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"slot":    slot,
	})
}

func (h *Handler) EmptyDate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	date := strings.TrimSpace(chi.URLParam(r, "date"))

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	deleted, err := h.service.EmptySlotsForDate(ctx, date)
	if err != nil {
		if WriteKnownError(w, err) {
			log.Warn("slots empty: invalid date", slog.String("date", date))
			return
		}
		log.Error("slots empty: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("slots empty: ok", slog.String("date", date), slog.Int64("deleted", deleted))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": deleted,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.DeleteSlot(ctx, id); err != nil {
		if WriteKnownError(w, err) {
			log.Warn("slots delete: not found", slog.String("slot_id", id))
			return
		}
		log.Error("slots delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("slots delete: ok", slog.String("slot_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// WriteKnownError maps slot and schedule errors to responses and reports whether it wrote one.
func WriteKnownError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, ErrOverlap):
		transport.WriteCodedError(w, http.StatusBadRequest, transport.CodeOverlappingSlot, "overlapping slot exists", nil)
	case errors.Is(err, ErrNotFound):
		transport.WriteCodedError(w, http.StatusNotFound, transport.CodeNotFound, "slot not found", nil)
	case errors.Is(err, schedule.ErrInvalidDate):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"date": "date"})
	case errors.Is(err, schedule.ErrInvalidTime):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"time": "clock"})
	case errors.Is(err, schedule.ErrInvalidRange):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"endTime": "gtfield"})
	case errors.Is(err, ErrInvalidCapacity):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"capacity": "min"})
	case errors.Is(err, ErrInvalidRange):
		transport.WriteError(w, http.StatusBadRequest, "invalid query", map[string]string{"endDate": "gtefield"})
	default:
		return false
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
