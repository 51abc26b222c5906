// Package simulate runs the city simulation headless for a fixed number of
// game years and prints the yearly reports.
package simulate

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/louisbranch/metropole/internal/city/catalog"
	"github.com/louisbranch/metropole/internal/city/domain"
	"github.com/louisbranch/metropole/internal/city/service"
	"github.com/louisbranch/metropole/internal/notify"
	entrypoint "github.com/louisbranch/metropole/internal/platform/cmd"
	"github.com/louisbranch/metropole/internal/platform/random"
	"github.com/louisbranch/metropole/internal/sim"
)

// Config holds simulate command configuration.
type Config struct {
	Years    int    `env:"METROPOLE_SIM_YEARS" envDefault:"10"`
	Seed     int64  `env:"METROPOLE_SEED"`
	CityName string `env:"METROPOLE_CITY_NAME" envDefault:"New City"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Years, "years", cfg.Years, "Number of game years to simulate")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Event selection seed (0 for random)")
	fs.StringVar(&cfg.CityName, "city", cfg.CityName, "Name of the simulated city")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the headless simulation, writing reports to stdout.
func Run(ctx context.Context, cfg Config) error {
	return run(ctx, cfg, os.Stdout)
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	if cfg.Years <= 0 {
		return fmt.Errorf("years must be positive")
	}

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed, err = random.NewSeed()
		if err != nil {
			return fmt.Errorf("generate seed: %w", err)
		}
	}

	notifier := notify.NewNotifier()
	notifier.Subscribe(func(n notify.Notification) {
		switch n.Kind {
		case notify.KindYearEnd:
			report, ok := n.Payload.(domain.YearReport)
			if !ok {
				return
			}
			fmt.Fprintf(out, "year %d: tax=%d districts=%d factories=%d total=%d\n",
				report.Year, report.TaxIncome, report.DistrictIncome, report.FactoryIncome, report.TotalIncome)
		case notify.KindEvent, notify.KindDistrictEvent:
			payload, ok := n.Payload.(domain.EventAppliedPayload)
			if !ok {
				return
			}
			fmt.Fprintf(out, "event: %s\n", payload.Title)
		}
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(service.Config{
		CityName: cfg.CityName,
		Catalog:  cat,
		Notifier: notifier,
		Logger:   logger,
		Seed:     seed,
	})
	if err != nil {
		return fmt.Errorf("create city service: %w", err)
	}

	clock, err := sim.New(sim.Config{
		Simulation:  svc,
		DayInterval: 1, // unused; the loop below steps directly
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create game clock: %w", err)
	}

	days := cfg.Years * sim.MonthsPerYear * sim.DaysPerMonth
	for day := 0; day <= days; day++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := clock.Step(ctx); err != nil {
			return fmt.Errorf("step day %d: %w", day, err)
		}
	}

	state, err := svc.State(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "final: year=%d population=%d funds=%d happiness=%d environment=%d education=%d\n",
		state.Year, state.Population, state.Funds, state.Happiness, state.Environment, state.Education)
	return nil
}
