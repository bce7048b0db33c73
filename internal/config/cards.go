package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/randytsao24/departures/internal/models"
)

// NoPattern marks an absent pattern in HSL_PATTERNS
const NoPattern = "_"

// ParseCards builds cards from whitespace-separated card lists. Inside one
// card, stops and patterns are comma-separated and matched by position:
//
//	titles:   "Home Work"
//	stops:    "HSL:1 HSL:2,HSL:3"
//	patterns: "_ HSL:1001:0:01,_"
//
// Stop groups without a title are ignored, and titles without stops are
// dropped. Both are logged.
func ParseCards(titles, stops, patterns string) []Card {
	titleList := strings.Fields(titles)
	stopGroups := strings.Fields(stops)
	patternGroups := strings.Fields(patterns)

	if len(stopGroups) > len(titleList) {
		slog.Warn("ignoring stop groups without a card title",
			"titles", len(titleList), "stop_groups", len(stopGroups))
	}

	cards := make([]Card, 0, len(titleList))
	for i, title := range titleList {
		card := Card{Title: title}
		if i < len(stopGroups) {
			var cardPatterns []string
			if i < len(patternGroups) {
				cardPatterns = strings.Split(patternGroups[i], ",")
			}
			for j, stopID := range strings.Split(stopGroups[i], ",") {
				if stopID == "" {
					continue
				}
				q := models.StopQuery{StopID: stopID}
				if j < len(cardPatterns) && cardPatterns[j] != NoPattern {
					q.PatternID = cardPatterns[j]
				}
				card.Stops = append(card.Stops, q)
			}
		}
		if len(card.Stops) == 0 {
			slog.Warn("dropping card without stops", "title", title)
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

type cardsFile struct {
	Cards []Card `yaml:"cards"`
}

// LoadCardsFile reads cards from a YAML file:
//
//	cards:
//	  - title: Home
//	    stops:
//	      - stop: HSL:1040129
//	        pattern: HSL:1001:0:01
func LoadCardsFile(path string) ([]Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cards file: %w", err)
	}

	var f cardsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing cards file: %w", err)
	}
	if err := ValidateCards(f.Cards); err != nil {
		return nil, err
	}
	return f.Cards, nil
}
