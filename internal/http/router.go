package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bmoreira/tesouraria/internal/auth"
	"github.com/bmoreira/tesouraria/internal/http/auditlog"
	"github.com/bmoreira/tesouraria/internal/http/authn"
	"github.com/bmoreira/tesouraria/internal/http/directory"
	"github.com/bmoreira/tesouraria/internal/http/graduation"
	"github.com/bmoreira/tesouraria/internal/http/ledger"
	"github.com/bmoreira/tesouraria/internal/http/report"
	"github.com/bmoreira/tesouraria/internal/http/rosterimport"
)

func New(
	secret []byte,
	authV1 *authn.Handler,
	directoryV1 *directory.Handler,
	ledgerV1 *ledger.Handler,
	graduationV1 *graduation.Handler,
	rosterV1 *rosterimport.Handler,
	reportV1 *report.Handler,
	auditV1 *auditlog.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	admin := auth.RequireRole(auth.RoleAdmin)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			authV1.Routes()(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(secret))

			r.Route("/directory", directoryV1.Routes(admin))

			r.Route("/transactions", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				ledgerV1.Routes(admin)(r)
			})

			r.Route("/graduations", graduationV1.Routes(admin))
			r.Route("/import", rosterV1.Routes())
			r.Route("/reports", reportV1.Routes())

			r.Route("/audit", func(r chi.Router) {
				r.Use(admin)
				auditV1.Routes()(r)
			})
		})
	})

	return router
}
