package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinictracker/clinictracker/internal/config"
	"github.com/clinictracker/clinictracker/internal/domain/billing"
	"github.com/clinictracker/clinictracker/internal/domain/customfield"
	"github.com/clinictracker/clinictracker/internal/domain/qi"
	"github.com/clinictracker/clinictracker/internal/domain/reporting"
	"github.com/clinictracker/clinictracker/internal/domain/settings"
	"github.com/clinictracker/clinictracker/internal/domain/visit"
	"github.com/clinictracker/clinictracker/internal/domain/workday"
	"github.com/clinictracker/clinictracker/internal/platform/db"
	"github.com/clinictracker/clinictracker/internal/platform/middleware"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic tracker API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// newServer builds the echo instance with global middleware and every route
// registered under /api.
func newServer(a *app, cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", db.HealthHandler(a.db))

	api := e.Group("/api")
	billing.NewHandler(a.catalog).RegisterRoutes(api)
	visit.NewHandler(a.visits).RegisterRoutes(api)
	reporting.NewHandler(a.reports).RegisterRoutes(api)
	settings.NewHandler(a.settings).RegisterRoutes(api)
	customfield.NewHandler(a.fields).RegisterRoutes(api)
	workday.NewHandler(a.workdays).RegisterRoutes(api)
	qi.NewHandler(a.qi).RegisterRoutes(api)

	return e
}

func runServer() error {
	// Config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	// Database and services
	a, err := openApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()
	logger.Info().
		Str("dialect", string(a.db.Dialect)).
		Int("billing_codes", a.catalog.Len()).
		Float64("conversion_rate", a.settings.ConversionRate()).
		Msg("connected to database")

	e := newServer(a, cfg, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
