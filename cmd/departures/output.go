package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/randytsao24/departures/internal/config"
	"github.com/randytsao24/departures/internal/models"
)

// loadQueries reads the configuration and resolves the stop queries from
// flags, falling back to the first configured card.
func loadQueries() (*config.Config, []models.StopQuery, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if len(stopsFlag) > 0 {
		cards := config.ParseCards("cli", strings.Join(stopsFlag, ","), strings.Join(patternsFlag, ","))
		if len(cards) == 0 {
			return nil, nil, errors.New("--stops names no stop IDs")
		}
		return cfg, cards[0].Stops, nil
	}
	if len(cfg.Cards) > 0 && len(cfg.Cards[0].Stops) > 0 {
		return cfg, cfg.Cards[0].Stops, nil
	}
	return nil, nil, errors.New("no stops given: use --stops or configure HSL_STOPS")
}

func printDepartures(w io.Writer, deps []models.Departure) {
	if len(deps) == 0 {
		fmt.Fprintln(w, "No upcoming departures")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tHEADSIGN\tLEAVES IN\t")
	for _, d := range deps {
		marker := ""
		if d.IsRealtime {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d min%s\t\n", d.RouteName, d.Headsign, d.MinutesUntilDeparture, marker)
	}
	tw.Flush()
}
