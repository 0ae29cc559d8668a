package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/middleware"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/transport"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Lister interface {
	Recent(ctx context.Context, actor string, limit int) ([]Event, error)
}

type Handler struct {
	events Lister
	log    *slog.Logger
}

// NewHandler accepts a nil lister when no audit store is configured.
func NewHandler(events Lister, log *slog.Logger) *Handler {
	return &Handler{events: events, log: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.log
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		log = log.With(slog.String("request_id", id))
	}
	if h.events == nil {
		log.Warn("audit list: not configured")
		transport.WriteError(w, http.StatusServiceUnavailable, "audit trail not configured", nil)
		return
	}

	limit := defaultLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Warn("audit list: invalid limit", slog.String("limit", raw))
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"limit": "min"})
			return
		}
		limit = min(n, maxLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	events, err := h.events.Recent(ctx, strings.TrimSpace(r.URL.Query().Get("actor")), limit)
	if err != nil {
		log.Error("audit list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
