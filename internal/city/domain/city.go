package domain

import (
	"fmt"
	"math"

	"github.com/louisbranch/metropole/internal/city/catalog"
	apperrors "github.com/louisbranch/metropole/internal/errors"
	"github.com/louisbranch/metropole/internal/notify"
	"github.com/louisbranch/metropole/internal/platform/id"
)

// StatMetric names a tracked statistics series.
type StatMetric string

const (
	StatPopulation  StatMetric = "population"
	StatFunds       StatMetric = "funds"
	StatHappiness   StatMetric = "happiness"
	StatEnvironment StatMetric = "environment"
	StatEducation   StatMetric = "education"
)

// StatMetrics lists every tracked series in a stable order.
var StatMetrics = []StatMetric{StatPopulation, StatFunds, StatHappiness, StatEnvironment, StatEducation}

// StatPoint is one recorded value in a statistics series.
type StatPoint struct {
	Year  int `json:"year"`
	Value int `json:"value"`
}

// City is the aggregate root of the simulation. All mutation goes through its
// methods; callers must serialize access (single writer per simulated tick).
type City struct {
	name        string
	population  int
	funds       int
	happiness   int
	environment int
	education   int
	taxRate     float64
	year        int

	// buildings holds city-wide building counts. They drive the simulation
	// only while no districts exist (legacy mode).
	buildings  map[catalog.BuildingType]int
	districts  []*District
	statistics map[StatMetric][]StatPoint

	catalog *catalog.Catalog
	emit    notify.Handler
	newID   func() (string, error)
}

// Config contains the inputs for creating a city.
type Config struct {
	Name    string
	Catalog *catalog.Catalog
	// Emit receives state-change notifications. Optional.
	Emit notify.Handler
	// NewID generates district identifiers. Defaults to platform ids.
	NewID func() (string, error)
}

// New creates a city with the catalog's initial values.
func New(cfg Config) (*City, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	name := cfg.Name
	if name == "" {
		name = "New City"
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.NewID
	}

	constants := cfg.Catalog.Constants
	return &City{
		name:        name,
		population:  0,
		funds:       constants.InitialFunds,
		happiness:   constants.InitialHappiness,
		environment: constants.InitialEnvironment,
		education:   constants.InitialEducation,
		taxRate:     constants.TaxNeutralPoint,
		year:        0,
		buildings:   make(map[catalog.BuildingType]int),
		statistics:  make(map[StatMetric][]StatPoint),
		catalog:     cfg.Catalog,
		emit:        cfg.Emit,
		newID:       newID,
	}, nil
}

// Name returns the city name.
func (c *City) Name() string { return c.name }

// Population returns the current population.
func (c *City) Population() int { return c.population }

// Funds returns the current treasury balance.
func (c *City) Funds() int { return c.funds }

// Happiness returns the happiness metric in [0, 100].
func (c *City) Happiness() int { return c.happiness }

// Environment returns the environment metric in [0, 100].
func (c *City) Environment() int { return c.environment }

// Education returns the education metric in [0, 100].
func (c *City) Education() int { return c.education }

// TaxRate returns the current tax rate.
func (c *City) TaxRate() float64 { return c.taxRate }

// Year returns the current simulation year.
func (c *City) Year() int { return c.year }

// Buildings returns a copy of the legacy city-wide building counts.
func (c *City) Buildings() map[catalog.BuildingType]int {
	counts := make(map[catalog.BuildingType]int, len(c.buildings))
	for buildingType, count := range c.buildings {
		counts[buildingType] = count
	}
	return counts
}

// BuildingCount returns the legacy count for one building type.
func (c *City) BuildingCount(buildingType catalog.BuildingType) int {
	return c.buildings[buildingType]
}

// Districts returns the owned districts in creation order.
func (c *City) Districts() []*District {
	return append([]*District(nil), c.districts...)
}

// District finds an owned district by id.
func (c *City) District(districtID string) (*District, bool) {
	for _, district := range c.districts {
		if district.ID() == districtID {
			return district, true
		}
	}
	return nil, false
}

// Statistics returns a copy of one tracked series.
func (c *City) Statistics(metric StatMetric) []StatPoint {
	return append([]StatPoint(nil), c.statistics[metric]...)
}

// State returns the scalar slice districts consume during their yearly
// update.
func (c *City) State() CityState {
	return CityState{
		Population:  c.population,
		Happiness:   c.happiness,
		Environment: c.environment,
		Education:   c.education,
		TaxRate:     c.taxRate,
	}
}

// BuildResult reports a successful construction.
type BuildResult struct {
	BuildingType catalog.BuildingType `json:"buildingType"`
	Cost         int                  `json:"cost"`
	DistrictID   string               `json:"districtId,omitempty"`
	Funds        int                  `json:"funds"`
}

// BuildStructure constructs a building, either inside a district or (legacy
// mode) city-wide. The city must know the type and afford its cost; district
// builds must also pass the district's compatibility gate. Legacy builds
// apply the building's static effects to city scalars immediately, except
// funds effects, which roll into yearly income instead.
func (c *City) BuildStructure(buildingType catalog.BuildingType, districtID string) (BuildResult, error) {
	def, ok := c.catalog.Building(buildingType)
	if !ok {
		return BuildResult{}, apperrors.New(apperrors.CodeCityUnknownBuilding,
			fmt.Sprintf("unknown building type %q", buildingType))
	}
	if c.funds < def.Cost {
		return BuildResult{}, apperrors.WithMetadata(apperrors.CodeCityInsufficientFunds,
			fmt.Sprintf("building a %s costs %d, treasury has %d", def.Name, def.Cost, c.funds),
			map[string]string{"cost": fmt.Sprint(def.Cost), "funds": fmt.Sprint(c.funds)})
	}

	if districtID != "" {
		district, ok := c.District(districtID)
		if !ok {
			return BuildResult{}, apperrors.New(apperrors.CodeDistrictNotFound,
				fmt.Sprintf("district %q not found", districtID))
		}
		districtDef, _ := c.catalog.District(district.Type())
		if !districtDef.Accepts(buildingType) {
			return BuildResult{}, apperrors.New(apperrors.CodeDistrictIncompatibleBuilding,
				fmt.Sprintf("%s districts cannot contain %s buildings", district.Type(), buildingType))
		}
		c.funds -= def.Cost
		if err := district.AddBuilding(buildingType, 1); err != nil {
			return BuildResult{}, err
		}
		return BuildResult{BuildingType: buildingType, Cost: def.Cost, DistrictID: districtID, Funds: c.funds}, nil
	}

	c.funds -= def.Cost
	c.buildings[buildingType]++
	c.population = max(c.population+def.Effects.Population, 0)
	c.happiness = clampPercent(c.happiness + def.Effects.Happiness)
	c.environment = clampPercent(c.environment + def.Effects.Environment)
	c.education = clampPercent(c.education + def.Effects.Education)

	c.notify(notify.Notification{Kind: notify.KindChange, Payload: struct {
		BuildingType string `json:"buildingType"`
		Count        int    `json:"count"`
	}{BuildingType: string(buildingType), Count: c.buildings[buildingType]}})

	return BuildResult{BuildingType: buildingType, Cost: def.Cost, Funds: c.funds}, nil
}

// CreateDistrictOptions carries the optional district creation inputs.
type CreateDistrictOptions struct {
	Name     string
	Position *Position
}

// DistrictCreatedPayload describes a districtCreated notification.
type DistrictCreatedPayload struct {
	DistrictID string `json:"districtId"`
	Type       string `json:"type"`
	Name       string `json:"name"`
}

// CreateDistrict zones a new district, charging the city its cost. Fails on
// unknown types, the district limit, or insufficient funds.
func (c *City) CreateDistrict(districtType catalog.DistrictType, opts CreateDistrictOptions) (*District, error) {
	def, ok := c.catalog.District(districtType)
	if !ok {
		return nil, apperrors.New(apperrors.CodeCityUnknownDistrict,
			fmt.Sprintf("unknown district type %q", districtType))
	}
	if len(c.districts) >= c.catalog.Constants.MaxDistricts {
		return nil, apperrors.New(apperrors.CodeCityDistrictLimit,
			fmt.Sprintf("city already has the maximum of %d districts", c.catalog.Constants.MaxDistricts))
	}
	if c.funds < def.Cost {
		return nil, apperrors.WithMetadata(apperrors.CodeCityInsufficientFunds,
			fmt.Sprintf("zoning a %s costs %d, treasury has %d", def.Name, def.Cost, c.funds),
			map[string]string{"cost": fmt.Sprint(def.Cost), "funds": fmt.Sprint(c.funds)})
	}

	districtID, err := c.newID()
	if err != nil {
		return nil, fmt.Errorf("generate district id: %w", err)
	}
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s %d", def.Name, len(c.districts)+1)
	}
	position := Position{X: len(c.districts) % 5, Y: len(c.districts) / 5}
	if opts.Position != nil {
		position = *opts.Position
	}

	district, err := NewDistrict(DistrictConfig{
		ID:       districtID,
		Name:     name,
		Type:     districtType,
		Position: position,
		Catalog:  c.catalog,
		Emit:     c.emit,
	})
	if err != nil {
		return nil, err
	}

	c.funds -= def.Cost
	c.districts = append(c.districts, district)
	c.notify(notify.Notification{Kind: notify.KindDistrictCreated, Payload: DistrictCreatedPayload{
		DistrictID: districtID,
		Type:       string(districtType),
		Name:       name,
	}})
	return district, nil
}

// UpgradeResult reports a successful district upgrade.
type UpgradeResult struct {
	DistrictID string `json:"districtId"`
	Level      int    `json:"level"`
	Cost       int    `json:"cost"`
}

// UpgradeDistrict raises a district's level after checking the requirement
// table for its current level. Levels without a table entry have no funds or
// population gate.
func (c *City) UpgradeDistrict(districtID string) (UpgradeResult, error) {
	district, ok := c.District(districtID)
	if !ok {
		return UpgradeResult{}, apperrors.New(apperrors.CodeDistrictNotFound,
			fmt.Sprintf("district %q not found", districtID))
	}
	if district.Level() >= c.catalog.Constants.MaxDistrictLevel {
		return UpgradeResult{}, apperrors.New(apperrors.CodeDistrictMaxLevel,
			fmt.Sprintf("district is already at maximum level %d", c.catalog.Constants.MaxDistrictLevel))
	}

	cost := 0
	if requirement, gated := c.catalog.UpgradeRequirementFor(district.Level()); gated {
		if c.funds < requirement.Funds {
			return UpgradeResult{}, apperrors.WithMetadata(apperrors.CodeCityInsufficientFunds,
				fmt.Sprintf("upgrade requires %d funds, treasury has %d", requirement.Funds, c.funds),
				map[string]string{"cost": fmt.Sprint(requirement.Funds), "funds": fmt.Sprint(c.funds)})
		}
		if c.population < requirement.Population {
			return UpgradeResult{}, apperrors.WithMetadata(apperrors.CodeDistrictUpgradeRequirements,
				fmt.Sprintf("upgrade requires a population of %d, city has %d", requirement.Population, c.population),
				map[string]string{"required": fmt.Sprint(requirement.Population), "population": fmt.Sprint(c.population)})
		}
		cost = requirement.Funds
	}

	newLevel, err := district.Upgrade()
	if err != nil {
		return UpgradeResult{}, err
	}
	c.funds -= cost

	c.notify(notify.Notification{Kind: notify.KindDistrictUpgraded, Payload: UpgradeResult{
		DistrictID: districtID,
		Level:      newLevel,
		Cost:       cost,
	}})
	return UpgradeResult{DistrictID: districtID, Level: newLevel, Cost: cost}, nil
}

// SetDistrictSpecialization delegates to the district's specialization gate.
func (c *City) SetDistrictSpecialization(districtID, specializationID string) error {
	district, ok := c.District(districtID)
	if !ok {
		return apperrors.New(apperrors.CodeDistrictNotFound,
			fmt.Sprintf("district %q not found", districtID))
	}
	if err := district.SetSpecialization(specializationID); err != nil {
		return err
	}
	c.notify(notify.Notification{Kind: notify.KindDistrictSpecialized, Payload: SpecializationChangedPayload{
		DistrictID:     districtID,
		Specialization: specializationID,
	}})
	return nil
}

// TaxChange reports an applied tax rate change.
type TaxChange struct {
	OldRate float64 `json:"oldRate"`
	NewRate float64 `json:"newRate"`
}

// SetTaxRate swaps the tax rate after validating the input range. Rejected
// inputs leave the rate unchanged.
func (c *City) SetTaxRate(rate float64) (TaxChange, error) {
	constants := c.catalog.Constants
	if math.IsNaN(rate) || rate < constants.TaxMin || rate > constants.TaxMax {
		return TaxChange{}, apperrors.New(apperrors.CodeCityInvalidTaxRate,
			fmt.Sprintf("tax rate must be between %.2f and %.2f", constants.TaxMin, constants.TaxMax))
	}

	change := TaxChange{OldRate: c.taxRate, NewRate: rate}
	c.taxRate = rate
	c.notify(notify.Notification{Kind: notify.KindChange, Payload: change})
	return change, nil
}

func (c *City) notify(notification notify.Notification) {
	if c.emit != nil {
		c.emit(notification)
	}
}

func clampPercent(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
