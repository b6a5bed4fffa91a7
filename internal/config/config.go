package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	Athlete    AthleteConfig    `json:"athlete"`
	Model      ModelConfig      `json:"model"`
	Simulation SimulationConfig `json:"simulation"`
	Display    DisplayConfig    `json:"display"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	// ReferencePower seeds the model before any estimate exists,
	// typically a known FTP or a guess.
	ReferencePower float64 `json:"reference_power"`
	Name           string  `json:"name"`
}

// ModelConfig exposes the athlete-facing model time constants. Zero
// means use the engine default; the remaining empirical constants are
// deliberately not configurable.
type ModelConfig struct {
	TauFastDays       float64 `json:"tau_fast_days"`       // metabolic reservoir decay, default 2
	TauSlowDays       float64 `json:"tau_slow_days"`       // structural reservoir decay, default 15
	DetrainingTauDays float64 `json:"detraining_tau_days"` // layoff damping scale, default 42
	LookbackDays      int     `json:"lookback_days"`       // estimate history window, default 60
}

// SimulationConfig holds program-projection settings
type SimulationConfig struct {
	Trials int `json:"trials"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	PowerUnit  string `json:"power_unit"`
	TrendWeeks int    `json:"trend_weeks"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{
			ReferencePower: 200,
		},
		Simulation: SimulationConfig{
			Trials: 10000,
		},
		Display: DisplayConfig{
			PowerUnit:  "W",
			TrendWeeks: 6,
		},
	}
}

// Load reads the configuration from ~/.veloform/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing values
	defaults := DefaultConfig()
	if cfg.Athlete.ReferencePower == 0 {
		cfg.Athlete.ReferencePower = defaults.Athlete.ReferencePower
	}
	if cfg.Simulation.Trials == 0 {
		cfg.Simulation.Trials = defaults.Simulation.Trials
	}
	if cfg.Display.PowerUnit == "" {
		cfg.Display.PowerUnit = defaults.Display.PowerUnit
	}
	if cfg.Display.TrendWeeks == 0 {
		cfg.Display.TrendWeeks = defaults.Display.TrendWeeks
	}

	return &cfg, nil
}

// Save writes the configuration to ~/.veloform/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	return Save(&example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Athlete.ReferencePower <= 0 {
		return errors.New("athlete.reference_power must be positive - set it to a known FTP or a rough guess in watts")
	}
	if c.Athlete.ReferencePower < 50 || c.Athlete.ReferencePower > 600 {
		return fmt.Errorf("athlete.reference_power (%v) looks implausible, expected 50-600 watts", c.Athlete.ReferencePower)
	}
	if c.Model.TauFastDays < 0 || c.Model.TauSlowDays < 0 || c.Model.DetrainingTauDays < 0 {
		return errors.New("model time constants must not be negative")
	}
	if c.Model.TauFastDays > 0 && c.Model.TauSlowDays > 0 && c.Model.TauFastDays >= c.Model.TauSlowDays {
		return fmt.Errorf("model.tau_fast_days (%v) must be shorter than model.tau_slow_days (%v)",
			c.Model.TauFastDays, c.Model.TauSlowDays)
	}
	if c.Model.LookbackDays < 0 {
		return fmt.Errorf("model.lookback_days must not be negative, got %d", c.Model.LookbackDays)
	}
	if c.Simulation.Trials < 0 {
		return fmt.Errorf("simulation.trials must not be negative, got %d", c.Simulation.Trials)
	}
	if c.Display.TrendWeeks < 0 {
		return fmt.Errorf("display.trend_weeks must not be negative, got %d", c.Display.TrendWeeks)
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".veloform", "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".veloform"), nil
}
