package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docuconvo/auth/handler"
	"github.com/docuconvo/auth/modules/account"
	"github.com/docuconvo/auth/pkg/auth"
	"github.com/docuconvo/auth/pkg/environment"
	"github.com/docuconvo/auth/pkg/httpserver"
)

type routerDeps struct {
	env              environment.Environment
	log              *slog.Logger
	account          *account.Service
	sessions         auth.SessionReader
	signInPath       string
	checks           []httpserver.Check
	readinessTimeout time.Duration
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		environment.Middleware(d.env),
	)

	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(d.log, d.readinessTimeout, d.checks...))

	r.Mount("/auth", d.account.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(d.sessions, d.signInPath))
		r.Get("/api/me", handler.Wrap[struct{}](func(ctx handler.Context, _ struct{}) handler.Response {
			sess, ok := auth.SessionFromContext(ctx)
			if !ok {
				return handler.Error(handler.ErrUnauthorized)
			}
			return handler.JSON(sess.User)
		}))
	})

	return r
}
