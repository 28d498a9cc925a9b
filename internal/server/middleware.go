package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/hyperjump/revsearch/internal/retrieval"
)

const requestIDHeader = "X-Request-ID"

// requestID reuses the client's X-Request-ID or assigns a new UUID, echoes it in the
// response and makes it available to the retrieval pipeline for logging.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(retrieval.ContextWithRequestID(r.Context(), id)))
	})
}
