package middleware

import (
	"net/http"

	"github.com/perfectpitch/pitch-coach/pkg/requestid"
)

// RequestID takes the request ID from the X-Request-Id header or generates
// a unique one, injects it into the request context and echoes it back on
// the response so clients can correlate pipeline logs with their calls.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(requestid.Header)
		if rid == "" {
			rid = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), rid)
		w.Header().Set(requestid.Header, rid)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
