package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/frahmantamala/procurement/pkg/logger"
)

const (
	TraceHeader   = "X-Trace-ID"
	maxTraceIDLen = 128
)

// RequestID adopts the caller's trace id when it is a short printable token
// and generates one otherwise. The id is echoed back and attached to the
// context log fields.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := incomingTraceID(r)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		w.Header().Set(TraceHeader, traceID)
		ctx := logger.With(r.Context(), "trace_id", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func incomingTraceID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(TraceHeader))
	if id == "" || len(id) > maxTraceIDLen {
		return ""
	}
	if strings.ContainsFunc(id, func(c rune) bool { return c < '!' || c > '~' }) {
		return ""
	}
	return id
}
