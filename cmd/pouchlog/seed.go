package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default pouch catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := a.catalog.Seed(context.Background())
		if err != nil {
			return err
		}
		slog.Info("catalog seeded", "added", added)
		return nil
	},
}
