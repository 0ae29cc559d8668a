package health

import (
	"context"
	"net/http"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/transport"
)

// Check is a named dependency probe for /readyz.
type Check struct {
	Name  string
	Check func(context.Context) error
}

type Handler struct {
	checks  []Check
	timeout time.Duration
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks, timeout: 2 * time.Second}
}

func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every check with its own timeout and reports each failure by name.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	for _, check := range h.checks {
		if check.Check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		transport.WriteCodedError(w, http.StatusServiceUnavailable, transport.CodeUnavailable, "not ready", failures)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
