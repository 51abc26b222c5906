package domain

import (
	"fmt"
	"time"

	"github.com/louisbranch/metropole/internal/city/catalog"
	"github.com/louisbranch/metropole/internal/notify"
	"github.com/louisbranch/metropole/internal/platform/id"
)

// Snapshot is the persisted shape of a city. Every field survives a
// serialize/restore round trip except SavedAt, which is renewed on each
// serialize.
type Snapshot struct {
	Name        string                      `json:"name"`
	Population  int                         `json:"population"`
	Funds       int                         `json:"funds"`
	Happiness   int                         `json:"happiness"`
	Environment int                         `json:"environment"`
	Education   int                         `json:"education"`
	TaxRate     float64                     `json:"taxRate"`
	Year        int                         `json:"year"`
	Buildings   map[string]int              `json:"buildings"`
	Districts   []DistrictSnapshot          `json:"districts"`
	Statistics  map[StatMetric][]StatPoint  `json:"statistics"`
	SavedAt     time.Time                   `json:"savedAt"`
}

// DistrictSnapshot is the persisted shape of a district.
type DistrictSnapshot struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Type           string               `json:"type"`
	Level          int                  `json:"level"`
	Size           int                  `json:"size"`
	Buildings      map[string]int       `json:"buildings"`
	Specialization string               `json:"specialization,omitempty"`
	Position       Position             `json:"position"`
	Metrics        Metrics              `json:"metrics"`
	Effects        catalog.EffectBundle `json:"effects"`
}

// Snapshot serializes the city, renewing the SavedAt timestamp.
func (c *City) Snapshot(now time.Time) Snapshot {
	buildings := make(map[string]int, len(c.buildings))
	for buildingType, count := range c.buildings {
		buildings[string(buildingType)] = count
	}

	districts := make([]DistrictSnapshot, 0, len(c.districts))
	for _, district := range c.districts {
		districts = append(districts, district.snapshot())
	}

	statistics := make(map[StatMetric][]StatPoint, len(c.statistics))
	for metric, series := range c.statistics {
		statistics[metric] = append([]StatPoint(nil), series...)
	}

	return Snapshot{
		Name:        c.name,
		Population:  c.population,
		Funds:       c.funds,
		Happiness:   c.happiness,
		Environment: c.environment,
		Education:   c.education,
		TaxRate:     c.taxRate,
		Year:        c.year,
		Buildings:   buildings,
		Districts:   districts,
		Statistics:  statistics,
		SavedAt:     now.UTC(),
	}
}

func (d *District) snapshot() DistrictSnapshot {
	buildings := make(map[string]int, len(d.buildings))
	for buildingType, count := range d.buildings {
		buildings[string(buildingType)] = count
	}
	return DistrictSnapshot{
		ID:             d.id,
		Name:           d.name,
		Type:           string(d.districtType),
		Level:          d.level,
		Size:           d.size,
		Buildings:      buildings,
		Specialization: d.specialization,
		Position:       d.position,
		Metrics:        d.metrics,
		Effects:        d.effects,
	}
}

// RestoreConfig carries the collaborators a restored city needs.
type RestoreConfig struct {
	Catalog *catalog.Catalog
	Emit    notify.Handler
	NewID   func() (string, error)
}

// Restore rebuilds a city from a snapshot. District effects are restored
// verbatim rather than recomputed: the yearly environment recomputation
// intentionally diverges from the structural aggregation, and a round trip
// must not lose that state.
func Restore(snapshot Snapshot, cfg RestoreConfig) (*City, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.NewID
	}

	buildings := make(map[catalog.BuildingType]int, len(snapshot.Buildings))
	for buildingType, count := range snapshot.Buildings {
		if _, ok := cfg.Catalog.Building(catalog.BuildingType(buildingType)); !ok {
			return nil, fmt.Errorf("snapshot references unknown building type %q", buildingType)
		}
		buildings[catalog.BuildingType(buildingType)] = count
	}

	statistics := make(map[StatMetric][]StatPoint, len(snapshot.Statistics))
	for metric, series := range snapshot.Statistics {
		statistics[metric] = append([]StatPoint(nil), series...)
	}

	city := &City{
		name:        snapshot.Name,
		population:  snapshot.Population,
		funds:       snapshot.Funds,
		happiness:   snapshot.Happiness,
		environment: snapshot.Environment,
		education:   snapshot.Education,
		taxRate:     snapshot.TaxRate,
		year:        snapshot.Year,
		buildings:   buildings,
		statistics:  statistics,
		catalog:     cfg.Catalog,
		emit:        cfg.Emit,
		newID:       newID,
	}

	for _, districtSnapshot := range snapshot.Districts {
		district, err := restoreDistrict(districtSnapshot, cfg.Catalog, cfg.Emit)
		if err != nil {
			return nil, err
		}
		city.districts = append(city.districts, district)
	}
	return city, nil
}

func restoreDistrict(snapshot DistrictSnapshot, cat *catalog.Catalog, emit notify.Handler) (*District, error) {
	districtType := catalog.DistrictType(snapshot.Type)
	if _, ok := cat.District(districtType); !ok {
		return nil, fmt.Errorf("snapshot references unknown district type %q", snapshot.Type)
	}

	buildings := make(map[catalog.BuildingType]int, len(snapshot.Buildings))
	for buildingType, count := range snapshot.Buildings {
		if _, ok := cat.Building(catalog.BuildingType(buildingType)); !ok {
			return nil, fmt.Errorf("snapshot references unknown building type %q", buildingType)
		}
		buildings[catalog.BuildingType(buildingType)] = count
	}

	return &District{
		id:             snapshot.ID,
		name:           snapshot.Name,
		districtType:   districtType,
		level:          snapshot.Level,
		size:           snapshot.Size,
		buildings:      buildings,
		specialization: snapshot.Specialization,
		position:       snapshot.Position,
		metrics:        snapshot.Metrics,
		effects:        snapshot.Effects,
		catalog:        cat,
		emit:           emit,
	}, nil
}
