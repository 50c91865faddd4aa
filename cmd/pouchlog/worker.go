package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sumire/pouchlog/internal/service"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background notification processor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker()
	},
}

func runWorker() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w := service.NewWorker(a.cfg.Worker,
		a.notifications, a.notifySvc, a.notifySvc,
		a.users, a.prefs, a.goalRepo, a.goals,
		a.stats, a.verifications)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
