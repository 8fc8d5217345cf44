package table

import (
	"fmt"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
	"github.com/gatismeikulis/card-game-app/internal/game"
)

// Settings are the table-level knobs, independent of the game's rules.
type Settings struct {
	AutomaticStart bool `json:"automatic_start"`
	BotsAllowed    bool `json:"bots_allowed"`
	MinSeats       int  `json:"min_seats"`
	MaxSeats       int  `json:"max_seats"`
}

// Config bundles the game choice with its rule config and the table
// settings.
type Config struct {
	GameName   game.Name
	GameConfig game.Config
	Settings   Settings
}

// ParseConfig builds a table config from the client's config envelope.
// Game config and table settings both fall back to game defaults.
func ParseConfig(gameName string, gameConfig, tableConfig map[string]any) (Config, error) {
	name, err := game.ParseName(gameName)
	if err != nil {
		return Config{}, err
	}
	def, err := game.Lookup(name)
	if err != nil {
		return Config{}, err
	}
	cfg, err := def.ParseConfig(gameConfig)
	if err != nil {
		return Config{}, err
	}
	settings, err := parseSettings(tableConfig, def.SeatCount)
	if err != nil {
		return Config{}, err
	}
	return Config{GameName: name, GameConfig: cfg, Settings: settings}, nil
}

func parseSettings(raw map[string]any, seatCount int) (Settings, error) {
	settings := Settings{
		BotsAllowed: true,
		MinSeats:    seatCount,
		MaxSeats:    seatCount,
	}
	if raw == nil {
		return settings, nil
	}
	if v, ok := raw["automatic_start"]; ok {
		b, ok := v.(bool)
		if !ok {
			return Settings{}, apperr.Parse("config_value", "automatic_start must be a boolean")
		}
		settings.AutomaticStart = b
	}
	if v, ok := raw["bots_allowed"]; ok {
		b, ok := v.(bool)
		if !ok {
			return Settings{}, apperr.Parse("config_value", "bots_allowed must be a boolean")
		}
		settings.BotsAllowed = b
	}
	if err := readSeatBound(raw, "min_seats", &settings.MinSeats); err != nil {
		return Settings{}, err
	}
	if err := readSeatBound(raw, "max_seats", &settings.MaxSeats); err != nil {
		return Settings{}, err
	}
	if settings.MinSeats > settings.MaxSeats {
		return Settings{}, apperr.Rules("config_invalid", "min_seats cannot exceed max_seats")
	}
	if settings.MaxSeats > seatCount {
		return Settings{}, apperr.Rules("config_invalid",
			fmt.Sprintf("max_seats cannot exceed the game's seat count (%d)", seatCount))
	}
	return settings, nil
}

func readSeatBound(raw map[string]any, key string, dst *int) error {
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

// Map serializes the config for public table views.
func (c Config) Map() map[string]any {
	return map[string]any{
		"game_name":   string(c.GameName),
		"game_config": c.GameConfig.ConfigMap(),
		"table_config": map[string]any{
			"automatic_start": c.Settings.AutomaticStart,
			"bots_allowed":    c.Settings.BotsAllowed,
			"min_seats":       c.Settings.MinSeats,
			"max_seats":       c.Settings.MaxSeats,
		},
	}
}
