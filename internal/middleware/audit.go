package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type AuditEntry struct {
	Actor     string
	Method    string
	Path      string
	Status    int
	RequestID string
	At        time.Time
}

type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Audit records successful mutating requests once the response is written.
// A nil recorder disables it.
func Audit(recorder AuditRecorder, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.Status() >= http.StatusBadRequest {
				return
			}

			entry := AuditEntry{
				Actor:     ActorFromContext(r.Context()),
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    rec.Status(),
				RequestID: RequestIDFromContext(r.Context()),
				At:        time.Now().UTC(),
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 3*time.Second)
			defer cancel()
			if err := recorder.Record(ctx, entry); err != nil {
				log.Warn("audit: record failed",
					slog.String("request_id", entry.RequestID),
					slog.String("path", entry.Path),
					slog.String("error", err.Error()),
				)
			}
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
