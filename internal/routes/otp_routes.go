package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"pulse/internal/config"
	"pulse/internal/handlers"
	"pulse/internal/middleware"
	"pulse/internal/services"
)

func RegisterOTPRoutes(router chi.Router, db *sql.DB, cfg *config.Config) {
	mailer := &services.SMTPSender{
		Host:   cfg.SMTPHost,
		Port:   cfg.SMTPPort,
		User:   cfg.SMTPUser,
		Pass:   cfg.SMTPPassword,
		From:   cfg.SMTPFrom,
		UseTLS: cfg.SMTPUseTLS,
	}
	otpHandler := handlers.NewOTPHandler(db, cfg, mailer)

	router.Route("/otp", func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))

		// Code issuance is limited per user, not per IP.
		sendLimit := httprate.Limit(5, time.Minute, httprate.WithKeyFuncs(keyByUser))

		r.With(sendLimit).Post("/send", otpHandler.SendOTP)
		r.Post("/verify", otpHandler.VerifyOTP)
		r.Post("/change-password", otpHandler.ChangePassword)
	})
}

func keyByUser(r *http.Request) (string, error) {
	if id, ok := r.Context().Value(middleware.CtxUserID).(string); ok && id != "" {
		return id, nil
	}
	return httprate.KeyByIP(r)
}
