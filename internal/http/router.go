package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bytebank/backend/internal/auth"
	authhttp "github.com/bytebank/backend/internal/http/auth"
	"github.com/bytebank/backend/internal/http/importcsv"
	"github.com/bytebank/backend/internal/http/realtime"
	"github.com/bytebank/backend/internal/http/transaction"
)

func New(
	tokens *auth.Tokens,
	authV1 *authhttp.Handler,
	transactionsV1 *transaction.Handler,
	realtimeV1 *realtime.Handler,
	importV1 *importcsv.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authed := auth.Middleware(tokens)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			authV1.Routes(r)

			r.Group(func(r chi.Router) {
				r.Use(authed)
				authV1.Protected(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authed)

			r.Route("/transactions", func(r chi.Router) {
				// The receipt endpoint takes a multipart upload;
				// everything else is JSON.
				r.Use(middleware.AllowContentType("application/json", "multipart/form-data"))

				r.Get("/ws", realtimeV1.ServeHTTP)
				r.Route("/import", importV1.Routes)
				transactionsV1.Routes(r)
			})
		})
	})

	return router
}
