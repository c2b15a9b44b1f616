/**
 * @description
 * This file sets up the HTTP router for the onboarding service using the
 * `chi` routing library. It defines all API routes and applies middleware.
 */
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a new HTTP router.
func NewRouter(handler *OnboardingHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)    // Log API requests
	r.Use(middleware.Recoverer) // Recover from panics
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", handler.Register)
		r.Post("/verification", handler.Verify)
		r.Post("/verification/resend", handler.ResendVerification)
		r.Post("/privacy-policy", handler.PrivacyPolicy)
		r.Post("/pin", handler.SetupPin)
		r.Post("/biometric", handler.SetupBiometric)
		r.Get("/{icNumber}/status", handler.Status)
	})

	return r
}
