package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOptimizer(); err != nil {
		return err
	}
	if err := c.validateGoals(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOptimizer() error {
	if c.Optimizer.CycleSeconds > 24*60*60 {
		return errors.New("optimizer.cycle_seconds must be at most one day")
	}
	return nil
}

func (c *Config) validateGoals() error {
	if c.Goals.DistanceKm < 0 {
		return errors.New("goals.distance_km must not be negative")
	}
	if c.Goals.DurationHours < 0 {
		return errors.New("goals.duration_hours must not be negative")
	}
	if c.Goals.Flights < 0 {
		return errors.New("goals.flights must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
