package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/randytsao24/departures/internal/app"
	"github.com/randytsao24/departures/internal/transit"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Fetches departures once and prints them",
	Args:  cobra.NoArgs,
	RunE:  once,
}

func once(cmd *cobra.Command, args []string) error {
	cfg, queries, err := loadQueries()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout+cfg.RetryMaxElapsed)
	defer cancel()

	resp, err := app.NewSource(cfg).Fetch(ctx, queries)
	if err != nil {
		return err
	}

	printDepartures(cmd.OutOrStdout(), transit.Aggregate(resp, queries, time.Now()))
	return nil
}
