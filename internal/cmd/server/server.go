// Package server parses server command flags and starts the city API
// runtime.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/louisbranch/metropole/internal/city/catalog"
	"github.com/louisbranch/metropole/internal/city/service"
	entrypoint "github.com/louisbranch/metropole/internal/platform/cmd"
	"github.com/louisbranch/metropole/internal/platform/random"
	"github.com/louisbranch/metropole/internal/sim"
	"github.com/louisbranch/metropole/internal/storage"
	"github.com/louisbranch/metropole/internal/storage/memory"
	"github.com/louisbranch/metropole/internal/storage/sqlite"
	"github.com/louisbranch/metropole/internal/web"
	"github.com/louisbranch/metropole/internal/web/metrics"
)

// Config holds server command configuration.
type Config struct {
	Port       int    `env:"METROPOLE_PORT" envDefault:"8080"`
	Addr       string `env:"METROPOLE_ADDR"`
	DBPath     string `env:"METROPOLE_DB_PATH" envDefault:"metropole.db"`
	CityName   string `env:"METROPOLE_CITY_NAME" envDefault:"New City"`
	Seed       int64  `env:"METROPOLE_SEED"`
	DaySeconds int    `env:"METROPOLE_DAY_SECONDS" envDefault:"5"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The API server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The API server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite save database path (empty for in-memory)")
	fs.StringVar(&cfg.CityName, "city", cfg.CityName, "Name of the simulated city")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Event selection seed (0 for random)")
	fs.IntVar(&cfg.DaySeconds, "day-seconds", cfg.DaySeconds, "Real seconds per game day")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the city API service and its simulation clock.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var store storage.SaveStore
	if cfg.DBPath == "" {
		store = memory.New()
	} else {
		sqliteStore, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open save store: %w", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	seed := cfg.Seed
	if seed == 0 {
		seed, err = random.NewSeed()
		if err != nil {
			return fmt.Errorf("generate seed: %w", err)
		}
	}

	svc, err := service.New(service.Config{
		CityName: cfg.CityName,
		Catalog:  cat,
		Store:    store,
		Logger:   logger,
		Seed:     seed,
	})
	if err != nil {
		return fmt.Errorf("create city service: %w", err)
	}

	m := metrics.New()
	hub := web.NewHub(logger, m)
	svc.Subscribe(hub.Notify)

	server, err := web.NewServer(web.ServerConfig{
		Addr:    listenAddr(cfg),
		Handler: web.NewHandler(svc, logger, m),
		Hub:     hub,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	clock, err := sim.New(sim.Config{
		Simulation:  svc,
		DayInterval: time.Duration(cfg.DaySeconds) * time.Second,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create game clock: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- clock.Run(runCtx) }()
	go func() { errCh <- server.Run(runCtx) }()

	err = <-errCh
	cancel()
	<-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func listenAddr(cfg Config) string {
	if cfg.Addr != "" {
		return cfg.Addr
	}
	return fmt.Sprintf(":%d", cfg.Port)
}
