package routes

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"pulse/internal/config"
	"pulse/internal/handlers"
)

func RegisterAuthRoutes(router chi.Router, db *sql.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})
}
