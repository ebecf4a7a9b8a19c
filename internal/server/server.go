// Package server exposes the back office as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/app"
	"github.com/rojas-cambio/cambio/internal/auth"
	"github.com/rojas-cambio/cambio/internal/buildinfo"
)

// Server serves one opened data directory.
type Server struct {
	app    *app.App
	tokens *auth.Tokens
	logger *slog.Logger

	limiters *cache.Cache
	rps      float64
	burst    int
}

// New creates a Server.
func New(a *app.App, tokens *auth.Tokens) *Server {
	rps, burst := a.Config.Server.RateLimit, a.Config.Server.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		app:      a,
		tokens:   tokens,
		logger:   a.Logger,
		limiters: cache.New(10*time.Minute, 20*time.Minute),
		rps:      rps,
		burst:    burst,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/me", s.handleMe)
			r.Get("/me/navigation", s.handleNavigation)

			r.With(s.require(access.ViewRates)).Get("/rates", s.handleRates)
			r.With(s.require(access.ViewRates)).Get("/rates/{currency}/history", s.handleRateHistory)
			r.With(s.require(access.ManageRates)).Post("/rates/refresh", s.handleRefreshRates)
			r.With(s.require(access.ManageRates)).Put("/rates/{currency}", s.handleSetRate)
			r.With(s.require(access.ViewRates)).Get("/forecast", s.handleForecast)

			r.With(s.require(access.ViewTransactions)).Get("/transactions", s.handleListTransactions)
			r.With(s.require(access.ViewTransactions)).Get("/transactions/next-receipt", s.handleNextReceipt)
			r.With(s.require(access.ViewTransactions)).Get("/transactions/{id}", s.handleGetTransaction)
			r.With(s.require(access.RecordTransaction)).Post("/transactions", s.handleRecordTransaction)
			r.With(s.require(access.EditTransaction)).Put("/transactions/{id}", s.handleEditTransaction)
			r.With(s.require(access.EditTransaction)).Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.With(s.require(access.CalculateCash)).Post("/cash/calculate", s.handleCalculate)
			r.With(s.require(access.CalculateCash)).Get("/cash/latest", s.handleLatestCalculation)
			r.With(s.require(access.ViewDashboard)).Get("/stats", s.handleStats)
			r.With(s.require(access.ViewReports)).Get("/reports/{kind}", s.handleReport)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.require(access.ManageUsers))
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleAddUser)
				r.Patch("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})

			r.With(s.require(access.ManageSettings)).Get("/activity", s.handleActivity)
		})
	})
	return r
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
