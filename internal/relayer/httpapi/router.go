package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the route table. /v1/domain is public; the rest require an
// access token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/v1", func(r chi.Router) {
		r.Get("/domain", s.domain)

		r.Group(func(r chi.Router) {
			r.Use(s.accessTokenMiddleware)
			r.Post("/handles", s.registerHandle)
			r.Post("/user-decrypt", s.userDecrypt)
			r.Get("/audit/{user}", s.auditTrail)
		})
	})
	return r
}
