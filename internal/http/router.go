// Package httpapi assembles the HTTP surface: middleware chain, authenticated
// asset routes, and the operational endpoints.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medshare/internal/contract/handler"
	"medshare/internal/identity"
	auth "medshare/pkg/platform/middleware/auth"
	request "medshare/pkg/platform/middleware/request"
)

// NewRouter wires all endpoints. Asset routes sit behind the identity
// middleware; health and metrics stay open for the platform.
func NewRouter(svc handler.Service, validator *identity.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(request.ID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireIdentity(validator, logger))
		handler.New(svc, logger).Register(r)
	})

	return r
}
