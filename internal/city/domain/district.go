package domain

import (
	"fmt"
	"math"

	"github.com/louisbranch/metropole/internal/city/catalog"
	apperrors "github.com/louisbranch/metropole/internal/errors"
	"github.com/louisbranch/metropole/internal/notify"
)

// Position is a district's immutable grid coordinate. It is only meaningful
// to external map views.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Metrics is the derived per-district state recomputed every simulated year.
// Unlike city scalars, district metrics have no upper clamp; they are floored
// at zero when events apply negative deltas.
type Metrics struct {
	Population  int `json:"population"`
	Happiness   int `json:"happiness"`
	Environment int `json:"environment"`
	Education   int `json:"education"`
	Income      int `json:"income"`
}

// Contribution is a district's share of the city-wide aggregates.
type Contribution struct {
	Population  int `json:"population"`
	Happiness   int `json:"happiness"`
	Environment int `json:"environment"`
	Education   int `json:"education"`
	Income      int `json:"income"`
	Buildings   int `json:"buildings"`
}

// District is a zoned sub-region owned exclusively by a City.
type District struct {
	id             string
	name           string
	districtType   catalog.DistrictType
	level          int
	size           int
	buildings      map[catalog.BuildingType]int
	specialization string
	position       Position
	metrics        Metrics
	effects        catalog.EffectBundle

	catalog *catalog.Catalog
	emit    notify.Handler
}

// DistrictConfig contains the inputs for creating a district.
type DistrictConfig struct {
	ID       string
	Name     string
	Type     catalog.DistrictType
	Position Position
	Catalog  *catalog.Catalog
	Emit     notify.Handler
}

// NewDistrict creates a level-1 district of the given type. The type must
// exist in the catalog.
func NewDistrict(cfg DistrictConfig) (*District, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if _, ok := cfg.Catalog.District(cfg.Type); !ok {
		return nil, apperrors.New(apperrors.CodeCityUnknownDistrict, fmt.Sprintf("unknown district type %q", cfg.Type))
	}

	district := &District{
		id:           cfg.ID,
		name:         cfg.Name,
		districtType: cfg.Type,
		level:        1,
		size:         1,
		buildings:    make(map[catalog.BuildingType]int),
		position:     cfg.Position,
		metrics: Metrics{
			Happiness:   50,
			Environment: 50,
		},
		catalog: cfg.Catalog,
		emit:    cfg.Emit,
	}
	district.recomputeEffects()
	return district, nil
}

// ID returns the district identifier.
func (d *District) ID() string { return d.id }

// Name returns the district display name.
func (d *District) Name() string { return d.name }

// Type returns the district zoning type.
func (d *District) Type() catalog.DistrictType { return d.districtType }

// Level returns the current district level.
func (d *District) Level() int { return d.level }

// Size returns the district size.
func (d *District) Size() int { return d.size }

// Position returns the immutable grid coordinate.
func (d *District) Position() Position { return d.position }

// Specialization returns the active specialization id, or empty when
// unspecialized.
func (d *District) Specialization() string { return d.specialization }

// Metrics returns the current derived metrics.
func (d *District) Metrics() Metrics { return d.metrics }

// Effects returns the cached aggregate effect totals.
func (d *District) Effects() catalog.EffectBundle { return d.effects }

// Buildings returns a copy of the building counts.
func (d *District) Buildings() map[catalog.BuildingType]int {
	counts := make(map[catalog.BuildingType]int, len(d.buildings))
	for buildingType, count := range d.buildings {
		counts[buildingType] = count
	}
	return counts
}

// BuildingCount returns the count for one building type.
func (d *District) BuildingCount(buildingType catalog.BuildingType) int {
	return d.buildings[buildingType]
}

// BuildingAddedPayload describes a buildingAdded notification.
type BuildingAddedPayload struct {
	DistrictID   string `json:"districtId"`
	BuildingType string `json:"buildingType"`
	Count        int    `json:"count"`
}

// AddBuilding adds count buildings of the given type. The type must be
// compatible with the district's zoning; incompatible types leave the
// district unchanged.
func (d *District) AddBuilding(buildingType catalog.BuildingType, count int) error {
	if count <= 0 {
		count = 1
	}
	def, ok := d.catalog.District(d.districtType)
	if !ok {
		return apperrors.New(apperrors.CodeCityUnknownDistrict, fmt.Sprintf("unknown district type %q", d.districtType))
	}
	if !def.Accepts(buildingType) {
		return apperrors.WithMetadata(
			apperrors.CodeDistrictIncompatibleBuilding,
			fmt.Sprintf("%s districts cannot contain %s buildings", d.districtType, buildingType),
			map[string]string{"district_type": string(d.districtType), "building_type": string(buildingType)},
		)
	}

	d.buildings[buildingType] += count
	d.recomputeEffects()
	d.notify(notify.Notification{Kind: notify.KindBuildingAdded, Payload: BuildingAddedPayload{
		DistrictID:   d.id,
		BuildingType: string(buildingType),
		Count:        d.buildings[buildingType],
	}})
	return nil
}

// LevelUpPayload describes a levelUp notification.
type LevelUpPayload struct {
	DistrictID string `json:"districtId"`
	NewLevel   int    `json:"newLevel"`
}

// Upgrade raises the district level by one. It fails once the district is at
// the maximum level.
func (d *District) Upgrade() (int, error) {
	maxLevel := d.catalog.Constants.MaxDistrictLevel
	if d.level >= maxLevel {
		return d.level, apperrors.New(apperrors.CodeDistrictMaxLevel,
			fmt.Sprintf("district is already at maximum level %d", maxLevel))
	}

	d.level++
	d.recomputeEffects()
	d.notify(notify.Notification{Kind: notify.KindLevelUp, Payload: LevelUpPayload{
		DistrictID: d.id,
		NewLevel:   d.level,
	}})
	return d.level, nil
}

// SpecializationChangedPayload describes a specializationChanged notification.
type SpecializationChangedPayload struct {
	DistrictID     string `json:"districtId"`
	Specialization string `json:"specialization"`
}

// SetSpecialization sets the district specialization. An empty id clears it.
// The id must belong to the district type's specialization set.
func (d *District) SetSpecialization(specializationID string) error {
	if specializationID != "" {
		def, ok := d.catalog.District(d.districtType)
		if !ok {
			return apperrors.New(apperrors.CodeCityUnknownDistrict, fmt.Sprintf("unknown district type %q", d.districtType))
		}
		if _, ok := def.Specialization(specializationID); !ok {
			return apperrors.New(apperrors.CodeDistrictInvalidSpecialization,
				fmt.Sprintf("specialization %q is not available for %s districts", specializationID, d.districtType))
		}
	}

	d.specialization = specializationID
	d.recomputeEffects()
	d.notify(notify.Notification{Kind: notify.KindSpecializationChanged, Payload: SpecializationChangedPayload{
		DistrictID:     d.id,
		Specialization: specializationID,
	}})
	return nil
}

// Contribution returns the district's contribution to city-wide aggregates
// without mutating any state.
func (d *District) Contribution() Contribution {
	total := 0
	for _, count := range d.buildings {
		total += count
	}
	return Contribution{
		Population:  d.metrics.Population,
		Happiness:   d.effects.Happiness,
		Environment: d.effects.Environment,
		Education:   d.effects.Education,
		Income:      d.metrics.Income,
		Buildings:   total,
	}
}

// CityState is the read-only slice of city scalars a district needs for its
// yearly recomputation.
type CityState struct {
	Population  int
	Happiness   int
	Environment int
	Education   int
	TaxRate     float64
}

// Update performs the per-year recomputation: population growth, income, and
// environment. The three sub-computations write disjoint fields, so their
// order does not matter.
func (d *District) Update(city CityState) {
	d.updatePopulation()
	d.updateIncome(city)
	d.updateEnvironment()
	d.notify(notify.Notification{Kind: notify.KindUpdate, Payload: struct {
		DistrictID string  `json:"districtId"`
		Metrics    Metrics `json:"metrics"`
	}{DistrictID: d.id, Metrics: d.metrics}})
}

// updatePopulation grows residential population toward house capacity.
// Population never decreases, even when capacity shrinks below it.
func (d *District) updatePopulation() {
	if d.districtType != catalog.DistrictResidential {
		return
	}
	capacity := d.buildings[catalog.BuildingHouse] * 10 * d.level
	if d.metrics.Population >= capacity {
		return
	}
	growthRate := (0.7*float64(d.metrics.Happiness)/100 + 0.3*float64(d.metrics.Environment)/100) * 0.05
	growth := int(math.Floor(float64(d.metrics.Population)*growthRate)) + 1
	d.metrics.Population = min(d.metrics.Population+growth, capacity)
}

// updateIncome computes yearly income by district type, scaled by the city's
// education bonus.
func (d *District) updateIncome(city CityState) {
	educationBonus := 1 + float64(city.Education)/100*0.5

	var base float64
	switch d.districtType {
	case catalog.DistrictCommercial:
		base = float64(city.Population) * 0.02 * float64(d.level) * (float64(d.metrics.Happiness) / 100)
	case catalog.DistrictIndustrial:
		base = float64(d.buildings[catalog.BuildingFactory]) * 15 * float64(d.level)
	default:
		base = 5 * float64(d.level)
	}

	d.metrics.Income = int(math.Floor(base * educationBonus))
}

// updateEnvironment overwrites the cached environment effect from base type
// effect and park count. The recomputation is idempotent, not cumulative.
func (d *District) updateEnvironment() {
	def, ok := d.catalog.District(d.districtType)
	if !ok {
		return
	}
	d.effects.Environment = def.BaseEffects.Environment*d.level + d.buildings[catalog.BuildingPark]*3
}

// recomputeEffects rebuilds the cached effect totals from current state:
// base type effects scaled by level, plus building effects, plus the active
// specialization. Calling it repeatedly without state changes yields
// identical results.
func (d *District) recomputeEffects() {
	def, ok := d.catalog.District(d.districtType)
	if !ok {
		return
	}

	effects := def.BaseEffects.Scale(d.level)
	for buildingType, count := range d.buildings {
		buildingDef, ok := d.catalog.Building(buildingType)
		if !ok {
			continue
		}
		effects = effects.Add(buildingDef.Effects.Scale(count))
	}
	if d.specialization != "" {
		if spec, ok := def.Specialization(d.specialization); ok {
			effects = effects.Add(spec.Effects)
		}
	}
	d.effects = effects
}

func (d *District) notify(notification notify.Notification) {
	if d.emit != nil {
		d.emit(notification)
	}
}
