// Package sim drives simulated game time, mapping real elapsed time onto
// game days and firing the day, month, and year progression hooks.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/louisbranch/metropole/internal/city/domain"
	"github.com/louisbranch/metropole/internal/city/events"
)

const (
	// DaysPerMonth is the number of game days in a game month.
	DaysPerMonth = 30
	// MonthsPerYear is the number of game months in a game year.
	MonthsPerYear = 12
)

// Simulation is the slice of the city service the clock drives.
type Simulation interface {
	HandleDay(ctx context.Context, gameTime events.GameTime) (*events.Record, error)
	HandleMonth(ctx context.Context, gameTime events.GameTime) (*events.Record, error)
	AdvanceYear(ctx context.Context) (domain.YearReport, error)
}

// Clock advances game time at a fixed real-time interval per game day. It is
// not safe for concurrent use; run it from a single goroutine.
type Clock struct {
	sim      Simulation
	interval time.Duration
	logger   *slog.Logger

	year  int
	month int
	day   int
}

// Config contains the inputs for creating a Clock.
type Config struct {
	Simulation Simulation
	// DayInterval is the real duration of one game day.
	DayInterval time.Duration
	Logger      *slog.Logger
	// StartYear aligns the clock with a restored city. Optional.
	StartYear int
}

// New creates a clock positioned at the first day of StartYear.
func New(cfg Config) (*Clock, error) {
	if cfg.Simulation == nil {
		return nil, fmt.Errorf("simulation is required")
	}
	if cfg.DayInterval <= 0 {
		return nil, fmt.Errorf("day interval must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Clock{
		sim:      cfg.Simulation,
		interval: cfg.DayInterval,
		logger:   logger,
		year:     cfg.StartYear,
		month:    1,
		day:      0,
	}, nil
}

// Now returns the current game time.
func (c *Clock) Now() events.GameTime {
	return events.GameTime{Year: c.year, Month: c.month, Day: c.day}
}

// Step advances game time by one day, firing month and year hooks at their
// boundaries. Hook errors stop the step and are returned to the caller.
func (c *Clock) Step(ctx context.Context) error {
	c.day++
	if c.day > DaysPerMonth {
		c.day = 1
		c.month++
		if c.month > MonthsPerYear {
			c.month = 1
			c.year++
			report, err := c.sim.AdvanceYear(ctx)
			if err != nil {
				return fmt.Errorf("advance year: %w", err)
			}
			c.logger.Debug("game year advanced", "year", report.Year, "total_income", report.TotalIncome)
		}
		if _, err := c.sim.HandleMonth(ctx, c.Now()); err != nil {
			return fmt.Errorf("handle month: %w", err)
		}
	}
	if _, err := c.sim.HandleDay(ctx, c.Now()); err != nil {
		return fmt.Errorf("handle day: %w", err)
	}
	return nil
}

// Run steps the clock once per interval until the context is cancelled.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Step(ctx); err != nil {
				return err
			}
		}
	}
}
