// Package events selects and applies random events against city state using
// weighted probability and conditional eligibility.
package events

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/louisbranch/metropole/internal/city/catalog"
	"github.com/louisbranch/metropole/internal/city/domain"
	apperrors "github.com/louisbranch/metropole/internal/errors"
)

// GameTime locates an event in simulated time.
type GameTime struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Record is one triggered event kept in the bounded history.
type Record struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Message   string                `json:"message"`
	Category  catalog.EventCategory `json:"category"`
	Icon      string                `json:"icon"`
	Timestamp time.Time             `json:"timestamp"`
	GameTime  GameTime              `json:"gameTime"`
	Effects   catalog.EventEffects  `json:"effects"`
}

// System decides whether random events fire and applies them to a city. It
// is stateless per call apart from the event history; callers must serialize
// invocations together with all other city mutation.
type System struct {
	catalog *catalog.Catalog
	rng     *rand.Rand
	now     func() time.Time
	history []Record
}

// Options configures a System.
type Options struct {
	// Seed makes event selection deterministic. Ignored when Rand is set.
	Seed int64
	// Rand overrides the random source entirely. Optional.
	Rand *rand.Rand
	// Now supplies wall-clock timestamps for history records. Optional.
	Now func() time.Time
}

// New creates an event system over the catalog's event templates.
func New(cat *catalog.Catalog, opts Options) (*System, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &System{
		catalog: cat,
		rng:     rng,
		now:     now,
	}, nil
}

// HandleDay rolls the daily event chance and, when it hits, triggers one
// eligible event selected by weight. Returns nil when no event fires.
func (s *System) HandleDay(city *domain.City, gameTime GameTime) (*Record, error) {
	if s.rng.Float64() >= s.catalog.Constants.EventChance {
		return nil, nil
	}
	eligible := s.Eligible(city)
	if len(eligible) == 0 {
		return nil, nil
	}
	return s.trigger(city, s.selectWeighted(eligible), gameTime)
}

// HandleMonth rolls the independent monthly chance over the narrower
// economic and environmental pool. Returns nil when no event fires.
func (s *System) HandleMonth(city *domain.City, gameTime GameTime) (*Record, error) {
	if s.rng.Float64() >= s.catalog.Constants.MonthlyEventChance {
		return nil, nil
	}
	var pool []catalog.EventDef
	for _, event := range s.Eligible(city) {
		if event.Category == catalog.CategoryEconomic || event.Category == catalog.CategoryEnvironmental {
			pool = append(pool, event)
		}
	}
	if len(pool) == 0 {
		return nil, nil
	}
	return s.trigger(city, s.selectWeighted(pool), gameTime)
}

// TriggerSpecific force-applies an event by id, bypassing eligibility and
// probability. Used for scripted and debug triggering.
func (s *System) TriggerSpecific(city *domain.City, eventID string, gameTime GameTime) (*Record, error) {
	event, ok := s.catalog.Event(eventID)
	if !ok {
		return nil, apperrors.New(apperrors.CodeEventNotFound, fmt.Sprintf("event %q not found", eventID))
	}
	return s.trigger(city, event, gameTime)
}

// Eligible filters the catalog by each event's conditions against current
// city state. An event without conditions is always eligible.
func (s *System) Eligible(city *domain.City) []catalog.EventDef {
	var eligible []catalog.EventDef
	for _, event := range s.catalog.Events {
		if s.conditionsMet(city, event.Conditions) {
			eligible = append(eligible, event)
		}
	}
	return eligible
}

func (s *System) conditionsMet(city *domain.City, conditions catalog.EventConditions) bool {
	for name, bound := range conditions.Scalars {
		if !bound.Satisfied(scalarValue(city, name)) {
			return false
		}
	}
	for buildingType, bound := range conditions.Buildings {
		if !bound.Satisfied(float64(city.BuildingCount(buildingType))) {
			return false
		}
	}
	return true
}

func scalarValue(city *domain.City, name string) float64 {
	switch name {
	case "population":
		return float64(city.Population())
	case "funds":
		return float64(city.Funds())
	case "happiness":
		return float64(city.Happiness())
	case "environment":
		return float64(city.Environment())
	case "education":
		return float64(city.Education())
	case "year":
		return float64(city.Year())
	default:
		return 0
	}
}

// selectWeighted picks one candidate by cumulative-weight roulette, weighting
// each event's base probability by its category weight. If floating-point
// drift leaves the loop without a pick, the first candidate is returned.
func (s *System) selectWeighted(candidates []catalog.EventDef) catalog.EventDef {
	totalWeight := 0.0
	for _, event := range candidates {
		totalWeight += s.effectiveWeight(event)
	}

	remaining := s.rng.Float64() * totalWeight
	for _, event := range candidates {
		remaining -= s.effectiveWeight(event)
		if remaining <= 0 {
			return event
		}
	}
	return candidates[0]
}

func (s *System) effectiveWeight(event catalog.EventDef) float64 {
	return event.Probability * s.catalog.Constants.CategoryWeight(event.Category)
}

func (s *System) trigger(city *domain.City, event catalog.EventDef, gameTime GameTime) (*Record, error) {
	if err := city.ApplyEvent(event, ""); err != nil {
		return nil, err
	}

	record := Record{
		ID:        event.ID,
		Title:     event.Title,
		Message:   event.Message,
		Category:  event.Category,
		Icon:      event.Icon,
		Timestamp: s.now().UTC(),
		GameTime:  gameTime,
		Effects:   event.Effects,
	}
	s.history = append([]Record{record}, s.history...)
	if limit := s.catalog.Constants.MaxEventsHistory; len(s.history) > limit {
		s.history = s.history[:limit]
	}
	return &record, nil
}

// History returns a copy of the event history, newest first.
func (s *System) History() []Record {
	return append([]Record(nil), s.history...)
}
