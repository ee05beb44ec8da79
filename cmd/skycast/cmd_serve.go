package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/skycast/internal/api/http"
	"github.com/i474232898/skycast/internal/geolocation"
	"github.com/i474232898/skycast/internal/scheduler"
	"github.com/i474232898/skycast/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	log := d.log
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Locate the user once, in the background. New sessions start from the
	// located position; sessions opened before the lookup finished adopt it.
	userLocation := geolocation.NewOnce(d.locator, log.Named("geolocation"))
	userLocation.Start(ctx)

	sessions := store.NewSessionStore(d.cfg.MaxSessions, d.cfg.SessionMaxAge, userLocation.Coordinates)
	go func() {
		select {
		case <-userLocation.Done():
			if c := userLocation.Coordinates(); c != nil {
				n := sessions.AdoptUserCoordinates(*c)
				log.Debug("user location adopted by open sessions", zap.Int("sessions", n))
			}
		case <-ctx.Done():
		}
	}()

	sched := scheduler.New(sessions, d.aggregator, d.cfg.RefreshInterval, d.metrics, log.Named("scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "skycast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Searches chain several upstream calls.
		WriteTimeout: 4*d.cfg.HTTPTimeout + 5*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "skycast",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))

	handler := httpapi.NewHandler(sessions, d.aggregator, d.cfg.QuickPicks, log.Named("http"))
	httpapi.RegisterRoutes(app, handler)

	go func() {
		log.Info("listening", zap.String("port", d.cfg.Port))
		if err := app.Listen(":" + d.cfg.Port); err != nil {
			log.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	return nil
}
