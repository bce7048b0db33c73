// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/randytsao24/departures/internal/models"
	"github.com/randytsao24/departures/internal/transit"
)

// Card is one configured departure card
type Card struct {
	Title string             `yaml:"title" validate:"required"`
	Stops []models.StopQuery `yaml:"stops" validate:"required,min=1,dive"`
}

// Config holds all application configuration.
type Config struct {
	Port            string
	Env             string
	DigitransitURL  string
	DigitransitKey  string
	GTFSRTURL       string
	GTFSRTKey       string
	CacheTTL        time.Duration
	HTTPTimeout     time.Duration
	PollInterval    time.Duration
	RetryMaxElapsed time.Duration
	CardsFile       string
	Cards           []Card
}

// Load reads an optional .env file, then configuration from environment
// variables with sensible defaults. Cards come from CARDS_FILE when set,
// otherwise from HSL_CARD_TITLES, HSL_STOPS and HSL_PATTERNS.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "3000"),
		Env:             getEnv("ENV", "development"),
		DigitransitURL:  getEnv("DIGITRANSIT_URL", transit.DefaultDigitransitURL),
		DigitransitKey:  getEnv("DIGITRANSIT_SUBSCRIPTION_KEY", ""),
		GTFSRTURL:       getEnv("GTFSRT_TRIP_UPDATES_URL", ""),
		GTFSRTKey:       getEnv("GTFSRT_API_KEY", ""),
		CacheTTL:        getDurationEnv("CACHE_TTL_SECONDS", 5) * time.Second,
		HTTPTimeout:     getDurationEnv("HTTP_TIMEOUT_SECONDS", 10) * time.Second,
		PollInterval:    getDurationEnv("POLL_INTERVAL_SECONDS", 5) * time.Second,
		RetryMaxElapsed: getDurationEnv("RETRY_MAX_ELAPSED_SECONDS", 2) * time.Second,
		CardsFile:       getEnv("CARDS_FILE", ""),
	}

	if cfg.CardsFile == "" {
		cfg.Cards = ParseCards(
			os.Getenv("HSL_CARD_TITLES"),
			os.Getenv("HSL_STOPS"),
			os.Getenv("HSL_PATTERNS"),
		)
		return cfg, nil
	}

	cards, err := LoadCardsFile(cfg.CardsFile)
	if err != nil {
		return nil, err
	}
	cfg.Cards = cards
	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsesGTFSRT reports whether departures come from a GTFS-Realtime feed
// instead of the Digitransit API.
func (c *Config) UsesGTFSRT() bool {
	return c.GTFSRTURL != ""
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.UsesGTFSRT() && c.DigitransitKey == "" {
		return errors.New("DIGITRANSIT_SUBSCRIPTION_KEY or GTFSRT_TRIP_UPDATES_URL is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL_SECONDS must be positive")
	}
	return ValidateCards(c.Cards)
}

var validate = validator.New()

// ValidateCards checks every card has a title and at least one stop
func ValidateCards(cards []Card) error {
	for i, card := range cards {
		if err := validate.Struct(card); err != nil {
			return fmt.Errorf("card %d (%q): %w", i, card.Title, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds)
		}
	}
	return time.Duration(defaultSeconds)
}
