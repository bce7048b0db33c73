package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randytsao24/departures/internal/app"
	"github.com/randytsao24/departures/internal/poller"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Polls departures and prints every refresh until interrupted",
	Args:  cobra.NoArgs,
	RunE:  watch,
}

func watch(cmd *cobra.Command, args []string) error {
	cfg, queries, err := loadQueries()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	responses := app.NewResponseCache(cfg)
	defer responses.Close()

	logger := app.NewLogger(cfg)
	p := poller.New(app.NewSource(cfg), responses, queries, app.PollerOptions(cfg, logger))
	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Stop()

	out := cmd.OutOrStdout()
	for deps := range p.Updates() {
		fmt.Fprintln(out, "---")
		printDepartures(out, deps)
	}
	return nil
}
