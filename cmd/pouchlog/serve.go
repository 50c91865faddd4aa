package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/sumire/pouchlog/internal/handler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("database connected")

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewAppValidator()
	e.Renderer = handler.NewRenderer()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(handler.RequestLogger())

	authHandler := handler.NewAuthHandler(a.auth)
	logbookHandler := handler.NewLogbookHandler(a.logbook, a.catalog)
	goalHandler := handler.NewGoalHandler(a.goals)
	dashboardHandler := handler.NewDashboardHandler(a.stats)
	settingsHandler := handler.NewSettingsHandler(a.prefs, a.notifySvc)
	pages := handler.NewPageHandler(a.auth, a.logbook, a.catalog, a.goals, a.prefs, a.notifySvc)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth (public)
	e.GET("/login", pages.LoginPage)
	e.GET("/register", pages.RegisterPage)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.GET("/auth/google", authHandler.GoogleRedirect)
	e.GET("/auth/google/callback", authHandler.GoogleCallback)
	e.GET("/auth/verify/:token", authHandler.VerifyEmail)

	// HTML pages (session cookie)
	sess := handler.SessionAuth(a.auth)
	e.GET("/", pages.Dashboard, sess)
	e.GET("/logs", pages.LogsPage, sess)
	e.POST("/logs", logbookHandler.Create, sess)
	e.GET("/goals", pages.GoalsPage, sess)
	e.POST("/goals", goalHandler.Create, sess)
	e.GET("/settings", pages.SettingsPage, sess)
	e.POST("/settings/notifications", settingsHandler.UpdatePreferences, sess)

	// JSON API (bearer token or session cookie)
	api := e.Group("/api", handler.JWTAuth(a.auth))
	api.GET("/me", authHandler.Me)
	api.PUT("/me", authHandler.UpdateProfile)
	api.POST("/me/verification", authHandler.ResendVerification)

	api.GET("/logs", logbookHandler.List)
	api.POST("/logs", logbookHandler.Create)
	api.PUT("/logs/:id", logbookHandler.Update)
	api.DELETE("/logs/:id", logbookHandler.Delete)

	api.GET("/pouches", logbookHandler.ListPouches)
	api.POST("/pouches", logbookHandler.CreatePouch)

	api.GET("/goals", goalHandler.List)
	api.POST("/goals", goalHandler.Create)
	api.PUT("/goals/:id", goalHandler.Update)
	api.DELETE("/goals/:id", goalHandler.Deactivate)
	api.GET("/goals/progress", goalHandler.Progress)

	api.GET("/charts/daily", dashboardHandler.DailyChart)
	api.GET("/charts/weekly", dashboardHandler.WeeklyChart)
	api.GET("/charts/hourly", dashboardHandler.HourlyChart)
	api.GET("/insights", dashboardHandler.Insights)

	api.GET("/settings/notifications", settingsHandler.GetPreferences)
	api.PUT("/settings/notifications", settingsHandler.UpdatePreferences)
	api.POST("/settings/notifications/test", settingsHandler.TestWebhook)
	api.GET("/notifications", settingsHandler.History)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", a.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
