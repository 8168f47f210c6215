// Package request assigns each request an ID and echoes it back to the client.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"medshare/pkg/requestcontext"
)

// HeaderRequestID is the header the ID is read from and written to.
const HeaderRequestID = "X-Request-ID"

// ID injects a request ID into the context, reusing the client's header value
// when present so IDs propagate across service hops.
func ID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
