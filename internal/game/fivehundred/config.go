package fivehundred

import (
	"fmt"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Config holds the tunable rules of one game.
type Config struct {
	// MaxRounds ends the game when reached, lowest score winning.
	MaxRounds int `json:"max_rounds"`
	// MaxBidNoMarriage is the highest bid allowed without a marriage in
	// hand.
	MaxBidNoMarriage int `json:"max_bid_no_marriage"`
	// MinBid is the lowest opening bid.
	MinBid int `json:"min_bid"`
	// GiveUpPoints is what each defender gains when the declarer gives up.
	GiveUpPoints int `json:"give_up_points"`
}

// DefaultConfig returns the standard rule set.
func DefaultConfig() Config {
	return Config{
		MaxRounds:        100,
		MaxBidNoMarriage: 120,
		MinBid:           MinBid,
		GiveUpPoints:     50,
	}
}

// ParseConfig builds a validated config from a raw settings map. Absent
// keys fall back to defaults.
func ParseConfig(raw map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if err := readInt(raw, "max_rounds", &cfg.MaxRounds); err != nil {
		return Config{}, err
	}
	if err := readInt(raw, "max_bid_no_marriage", &cfg.MaxBidNoMarriage); err != nil {
		return Config{}, err
	}
	if err := readInt(raw, "min_bid", &cfg.MinBid); err != nil {
		return Config{}, err
	}
	if err := readInt(raw, "give_up_points", &cfg.GiveUpPoints); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config against the allowed ranges.
func (c Config) Validate() error {
	if c.MaxRounds < 20 || c.MaxRounds > 500 {
		return apperr.Rules("config_invalid", "max_rounds must be between 20 and 500")
	}
	if c.MaxBidNoMarriage < 120 || c.MaxBidNoMarriage > MaxBid {
		return apperr.Rules("config_invalid", fmt.Sprintf("max_bid_no_marriage must be between 120 and %d", MaxBid))
	}
	if c.MinBid < MinBid || c.MinBid > 120 {
		return apperr.Rules("config_invalid", fmt.Sprintf("min_bid must be between %d and 120", MinBid))
	}
	if c.GiveUpPoints < 0 || c.GiveUpPoints%BidStep != 0 {
		return apperr.Rules("config_invalid", fmt.Sprintf("give_up_points must be a non-negative multiple of %d", BidStep))
	}
	return nil
}

// ConfigMap serializes the config for the table's public view.
func (c Config) ConfigMap() map[string]any {
	return map[string]any{
		"max_rounds":          c.MaxRounds,
		"max_bid_no_marriage": c.MaxBidNoMarriage,
		"min_bid":             c.MinBid,
		"give_up_points":      c.GiveUpPoints,
	}
}

func readInt(raw map[string]any, key string, dst *int) error {
	value, ok := raw[key]
	if !ok || value == nil {
		return nil
	}
	switch v := value.(type) {
	case int:
		*dst = v
	case int64:
		*dst = int(v)
	case float64:
		*dst = int(v)
	default:
		return apperr.Parse("config_value", fmt.Sprintf("%s must be a number, got %T", key, value))
	}
	return nil
}
