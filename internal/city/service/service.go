// Package service orchestrates city simulation commands over a single city
// aggregate, serializing access and handling persistence.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/metropole/internal/city/catalog"
	"github.com/louisbranch/metropole/internal/city/domain"
	"github.com/louisbranch/metropole/internal/city/events"
	"github.com/louisbranch/metropole/internal/notify"
	"github.com/louisbranch/metropole/internal/platform/id"
	"github.com/louisbranch/metropole/internal/storage"
)

// Service owns one running city. All commands acquire its mutex, so callers
// may invoke it from any goroutine.
type Service struct {
	mu      sync.Mutex
	city    *domain.City
	events  *events.System
	catalog *catalog.Catalog
	saveID  string

	store    storage.SaveStore
	notifier *notify.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    func() time.Time
}

// Config contains the inputs for creating a Service.
type Config struct {
	CityName string
	Catalog  *catalog.Catalog
	// Store persists saves. Optional; without it saves are disabled.
	Store storage.SaveStore
	// Notifier fans out state-change notifications. Optional.
	Notifier *notify.Notifier
	Logger   *slog.Logger
	// Seed makes event selection deterministic.
	Seed  int64
	Clock func() time.Time
}

// New creates a Service with a fresh city.
func New(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewNotifier()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	city, err := domain.New(domain.Config{
		Name:    cfg.CityName,
		Catalog: cfg.Catalog,
		Emit:    notifier.Emit,
	})
	if err != nil {
		return nil, fmt.Errorf("create city: %w", err)
	}
	system, err := events.New(cfg.Catalog, events.Options{Seed: cfg.Seed, Now: clock})
	if err != nil {
		return nil, fmt.Errorf("create event system: %w", err)
	}
	saveID, err := id.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate save id: %w", err)
	}

	return &Service{
		city:     city,
		events:   system,
		catalog:  cfg.Catalog,
		saveID:   saveID,
		store:    cfg.Store,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("metropole/city"),
		clock:    clock,
	}, nil
}

// Subscribe registers a notification handler for city state changes.
func (s *Service) Subscribe(handler notify.Handler) {
	s.notifier.Subscribe(handler)
}

// SaveID returns the id the running city persists under.
func (s *Service) SaveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveID
}

// Build constructs a building city-wide or inside a district.
func (s *Service) Build(ctx context.Context, buildingType catalog.BuildingType, districtID string) (domain.BuildResult, error) {
	ctx, span := s.tracer.Start(ctx, "city.Build")
	defer span.End()
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.city.BuildStructure(buildingType, districtID)
	if err != nil {
		return domain.BuildResult{}, err
	}
	s.logger.Info("structure built",
		"building_type", string(buildingType),
		"district_id", districtID,
		"funds", result.Funds)
	return result, nil
}

// DistrictView is the read model returned for district commands.
type DistrictView struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Type           string               `json:"type"`
	Level          int                  `json:"level"`
	Specialization string               `json:"specialization,omitempty"`
	Position       domain.Position      `json:"position"`
	Metrics        domain.Metrics       `json:"metrics"`
	Effects        catalog.EffectBundle `json:"effects"`
}

func districtView(district *domain.District) DistrictView {
	return DistrictView{
		ID:             district.ID(),
		Name:           district.Name(),
		Type:           string(district.Type()),
		Level:          district.Level(),
		Specialization: district.Specialization(),
		Position:       district.Position(),
		Metrics:        district.Metrics(),
		Effects:        district.Effects(),
	}
}

// CreateDistrict zones a new district.
func (s *Service) CreateDistrict(ctx context.Context, districtType catalog.DistrictType, name string, position *domain.Position) (DistrictView, error) {
	ctx, span := s.tracer.Start(ctx, "city.CreateDistrict")
	defer span.End()
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	district, err := s.city.CreateDistrict(districtType, domain.CreateDistrictOptions{
		Name:     name,
		Position: position,
	})
	if err != nil {
		return DistrictView{}, err
	}
	s.logger.Info("district created",
		"district_id", district.ID(),
		"district_type", string(districtType))
	return districtView(district), nil
}

// Districts lists the current districts.
func (s *Service) Districts(ctx context.Context) ([]DistrictView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	districts := s.city.Districts()
	views := make([]DistrictView, 0, len(districts))
	for _, district := range districts {
		views = append(views, districtView(district))
	}
	return views, nil
}

// UpgradeDistrict raises a district's level.
func (s *Service) UpgradeDistrict(ctx context.Context, districtID string) (domain.UpgradeResult, error) {
	ctx, span := s.tracer.Start(ctx, "city.UpgradeDistrict")
	defer span.End()
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.city.UpgradeDistrict(districtID)
	if err != nil {
		return domain.UpgradeResult{}, err
	}
	s.logger.Info("district upgraded", "district_id", districtID, "level", result.Level)
	return result, nil
}

// SetDistrictSpecialization assigns or clears a district specialization.
func (s *Service) SetDistrictSpecialization(ctx context.Context, districtID, specializationID string) (DistrictView, error) {
	if err := ctx.Err(); err != nil {
		return DistrictView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.city.SetDistrictSpecialization(districtID, specializationID); err != nil {
		return DistrictView{}, err
	}
	district, _ := s.city.District(districtID)
	s.logger.Info("district specialized", "district_id", districtID, "specialization", specializationID)
	return districtView(district), nil
}

// SetTaxRate changes the city tax rate.
func (s *Service) SetTaxRate(ctx context.Context, rate float64) (domain.TaxChange, error) {
	if err := ctx.Err(); err != nil {
		return domain.TaxChange{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	change, err := s.city.SetTaxRate(rate)
	if err != nil {
		return domain.TaxChange{}, err
	}
	s.logger.Info("tax rate changed", "old_rate", change.OldRate, "new_rate", change.NewRate)
	return change, nil
}

// AdvanceYear runs the yearly progression and autosaves the result.
func (s *Service) AdvanceYear(ctx context.Context) (domain.YearReport, error) {
	ctx, span := s.tracer.Start(ctx, "city.AdvanceYear")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.city.AdvanceYear()
	span.SetAttributes(
		attribute.Int("city.year", report.Year),
		attribute.Int("city.total_income", report.TotalIncome),
	)
	s.logger.Info("year advanced",
		"year", report.Year,
		"tax_income", report.TaxIncome,
		"district_income", report.DistrictIncome,
		"total_income", report.TotalIncome)

	if err := s.persistLocked(ctx); err != nil {
		// Autosave failures must not roll back the simulation.
		s.logger.Warn("autosave failed", "error", err)
	}
	return report, nil
}

// HandleDay rolls the daily random event chance.
func (s *Service) HandleDay(ctx context.Context, gameTime events.GameTime) (*events.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.events.HandleDay(s.city, gameTime)
	if err != nil {
		return nil, err
	}
	if record != nil {
		s.logger.Info("event triggered", "event_id", record.ID, "category", string(record.Category))
	}
	return record, nil
}

// HandleMonth rolls the monthly economic and environmental event chance.
func (s *Service) HandleMonth(ctx context.Context, gameTime events.GameTime) (*events.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.events.HandleMonth(s.city, gameTime)
	if err != nil {
		return nil, err
	}
	if record != nil {
		s.logger.Info("event triggered", "event_id", record.ID, "category", string(record.Category))
	}
	return record, nil
}

// TriggerEvent force-fires one event by id.
func (s *Service) TriggerEvent(ctx context.Context, eventID string) (*events.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.events.TriggerSpecific(s.city, eventID, events.GameTime{Year: s.city.Year()})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event triggered", "event_id", record.ID, "forced", true)
	return record, nil
}

// EventHistory returns triggered events, newest first.
func (s *Service) EventHistory(ctx context.Context) ([]events.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.History(), nil
}

// State returns the full city state as a snapshot.
func (s *Service) State(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.city.Snapshot(s.clock()), nil
}

// Statistics returns one tracked yearly series.
func (s *Service) Statistics(ctx context.Context, metric domain.StatMetric) ([]domain.StatPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.city.Statistics(metric), nil
}

// Save persists the running city under its save id.
func (s *Service) Save(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "city.Save")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Service) persistLocked(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Put(ctx, storage.Save{
		ID:       s.saveID,
		Name:     s.city.Name(),
		Snapshot: s.city.Snapshot(s.clock()),
	})
}

// Load replaces the running city with a persisted save.
func (s *Service) Load(ctx context.Context, saveID string) error {
	ctx, span := s.tracer.Start(ctx, "city.Load")
	defer span.End()

	if s.store == nil {
		return fmt.Errorf("storage is not configured")
	}

	save, err := s.store.Get(ctx, saveID)
	if err != nil {
		return err
	}
	city, err := domain.Restore(save.Snapshot, domain.RestoreConfig{
		Catalog: s.catalog,
		Emit:    s.notifier.Emit,
	})
	if err != nil {
		return fmt.Errorf("restore city: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.city = city
	s.saveID = saveID
	s.logger.Info("save loaded", "save_id", saveID, "city", city.Name(), "year", city.Year())
	return nil
}

// ListSaves lists persisted saves, most recently updated first.
func (s *Service) ListSaves(ctx context.Context) ([]storage.Save, error) {
	if s.store == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return s.store.List(ctx)
}

// DeleteSave removes a persisted save.
func (s *Service) DeleteSave(ctx context.Context, saveID string) error {
	if s.store == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.store.Delete(ctx, saveID)
}
