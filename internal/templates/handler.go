package templates

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.GetAllSlotTemplates(ctx)
	if err != nil {
		log.Error("templates list: cache error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cache error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slotTemplates": items,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tpl, err := h.service.GetSlotTemplate(ctx, day)
	if err != nil {
		log.Error("templates get: cache error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cache error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, tpl)
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("templates upsert: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("templates upsert: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}
	if req.Day != "" {
		if bodyDay, err := ParseDay(req.Day); err != nil || bodyDay != day {
			log.Warn("templates upsert: day mismatch", slog.String("day", string(day)), slog.String("body_day", req.Day))
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"day": "eqfield"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tpl, err := h.service.CreateOrUpdateSlotTemplate(ctx, day, FromRequest(req.Slots))
	if err != nil {
		if writeKnownError(w, err) {
			log.Warn("templates upsert: rejected", slog.String("day", string(day)), slog.String("error", err.Error()))
			return
		}
		log.Error("templates upsert: cache error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cache error", nil)
		return
	}

	log.Info("templates upsert: ok", slog.String("day", string(day)), slog.Int("slots", len(tpl.Slots)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slotsTemplate": tpl,
	})
}

func (h *Handler) Empty(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tpl, err := h.service.EmptySlotTemplate(ctx, day)
	if err != nil {
		log.Error("templates empty: cache error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cache error", nil)
		return
	}

	log.Info("templates empty: ok", slog.String("day", string(day)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slotsTemplate": tpl,
	})
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	day, ok := h.dayParam(w, r)
	if !ok {
		return
	}

	var req ApplyRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("templates apply: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	req.FormattedDate = strings.TrimSpace(req.FormattedDate)
	if err := h.val.Struct(req); err != nil {
		log.Warn("templates apply: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	created, err := h.service.ApplySlotTemplate(ctx, day, req.FormattedDate)
	if err != nil {
		if writeKnownError(w, err) {
			log.Warn("templates apply: rejected",
				slog.String("day", string(day)),
				slog.String("date", req.FormattedDate),
				slog.String("error", err.Error()),
			)
			return
		}
		log.Error("templates apply: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("templates apply: ok",
		slog.String("day", string(day)),
		slog.String("date", req.FormattedDate),
		slog.Int("slots", len(created)),
	)
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"slots":   created,
	})
}

func (h *Handler) dayParam(w http.ResponseWriter, r *http.Request) (Day, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "day"))
	day, err := ParseDay(raw)
	if err != nil {
		h.logWithRequest(r).Warn("templates: invalid day", slog.String("day", raw))
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"day": "weekday"})
		return "", false
	}
	return day, true
}

func writeKnownError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, ErrNoTemplate):
		transport.WriteCodedError(w, http.StatusNotFound, transport.CodeNotFound, "no template found", nil)
	case errors.Is(err, ErrOverlap):
		transport.WriteCodedError(w, http.StatusBadRequest, transport.CodeOverlappingSlot, "template slots overlap", nil)
	case errors.Is(err, ErrInvalidCapacity):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"capacity": "min"})
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
