package catalog

// BuildingType identifies a structure that can be built in the city or in a
// district.
type BuildingType string

const (
	BuildingHouse    BuildingType = "house"
	BuildingFactory  BuildingType = "factory"
	BuildingRoad     BuildingType = "road"
	BuildingSchool   BuildingType = "school"
	BuildingHospital BuildingType = "hospital"
	BuildingPark     BuildingType = "park"
)

// DistrictType identifies the zoning profile of a district.
type DistrictType string

const (
	DistrictResidential DistrictType = "residential"
	DistrictCommercial  DistrictType = "commercial"
	DistrictIndustrial  DistrictType = "industrial"
	DistrictEducation   DistrictType = "education"
	DistrictEco         DistrictType = "eco"
)

// EventCategory groups random events for weighting and monthly selection.
type EventCategory string

const (
	CategoryDisaster      EventCategory = "disaster"
	CategoryEconomic      EventCategory = "economic"
	CategorySocial        EventCategory = "social"
	CategoryEnvironmental EventCategory = "environmental"
)

// EffectBundle is a sparse set of numeric deltas applied to city or district
// scalars. A zero field means no effect on that scalar.
type EffectBundle struct {
	Population  int `yaml:"population" json:"population,omitempty"`
	Happiness   int `yaml:"happiness" json:"happiness,omitempty"`
	Environment int `yaml:"environment" json:"environment,omitempty"`
	Education   int `yaml:"education" json:"education,omitempty"`
	Income      int `yaml:"income" json:"income,omitempty"`
	Funds       int `yaml:"funds" json:"funds,omitempty"`
}

// Add returns the field-wise sum of two bundles.
func (e EffectBundle) Add(other EffectBundle) EffectBundle {
	return EffectBundle{
		Population:  e.Population + other.Population,
		Happiness:   e.Happiness + other.Happiness,
		Environment: e.Environment + other.Environment,
		Education:   e.Education + other.Education,
		Income:      e.Income + other.Income,
		Funds:       e.Funds + other.Funds,
	}
}

// Scale returns the bundle with every field multiplied by factor.
func (e EffectBundle) Scale(factor int) EffectBundle {
	return EffectBundle{
		Population:  e.Population * factor,
		Happiness:   e.Happiness * factor,
		Environment: e.Environment * factor,
		Education:   e.Education * factor,
		Income:      e.Income * factor,
		Funds:       e.Funds * factor,
	}
}

// BuildingDef describes a buildable structure and its static effects.
type BuildingDef struct {
	Type    BuildingType `yaml:"type"`
	Name    string       `yaml:"name"`
	Cost    int          `yaml:"cost"`
	Effects EffectBundle `yaml:"effects"`
}

// SpecializationDef describes an optional secondary effect profile a district
// can adopt on top of its base type effects.
type SpecializationDef struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	Effects EffectBundle `yaml:"effects"`
}

// DistrictTypeDef describes a district zoning profile: base effects (scaled
// by level), the buildings it accepts and the specializations it offers.
type DistrictTypeDef struct {
	Type            DistrictType        `yaml:"type"`
	Name            string              `yaml:"name"`
	Cost            int                 `yaml:"cost"`
	BaseEffects     EffectBundle        `yaml:"base_effects"`
	Compatible      []BuildingType      `yaml:"compatible"`
	Specializations []SpecializationDef `yaml:"specializations"`
}

// Specialization looks up a specialization definition by id.
func (d DistrictTypeDef) Specialization(id string) (SpecializationDef, bool) {
	for _, spec := range d.Specializations {
		if spec.ID == id {
			return spec, true
		}
	}
	return SpecializationDef{}, false
}

// Accepts reports whether the district type allows the building type.
func (d DistrictTypeDef) Accepts(building BuildingType) bool {
	for _, compatible := range d.Compatible {
		if compatible == building {
			return true
		}
	}
	return false
}

// UpgradeRequirement gates a district upgrade from its current level. A level
// with no entry has no funds or population gate.
type UpgradeRequirement struct {
	Funds      int `yaml:"funds"`
	Population int `yaml:"population"`
}

// EventEffects is the delta set an event applies. Building deltas target the
// legacy city building counts.
type EventEffects struct {
	Population  int                  `yaml:"population"`
	Funds       int                  `yaml:"funds"`
	Happiness   int                  `yaml:"happiness"`
	Environment int                  `yaml:"environment"`
	Education   int                  `yaml:"education"`
	Income      int                  `yaml:"income"`
	Buildings   map[BuildingType]int `yaml:"buildings"`
}

// EventDef is an immutable random event template.
type EventDef struct {
	ID          string          `yaml:"id"`
	Title       string          `yaml:"title"`
	Message     string          `yaml:"message"`
	Category    EventCategory   `yaml:"category"`
	Icon        string          `yaml:"icon"`
	Probability float64         `yaml:"probability"`
	Conditions  EventConditions `yaml:"conditions"`
	Effects     EventEffects    `yaml:"effects"`
}

// Constants holds the tunable simulation parameters.
type Constants struct {
	TaxMin              float64
	TaxMax              float64
	TaxNeutralPoint     float64
	TaxEffectMultiplier float64
	EventChance         float64
	MonthlyEventChance  float64
	MaxDistricts        int
	MaxDistrictLevel    int
	MaxDistrictSize     int
	MaxEventsHistory    int
	MaxStatEntries      int
	InitialFunds        int
	InitialHappiness    int
	InitialEnvironment  int
	InitialEducation    int
	CategoryWeights     map[EventCategory]float64
}

// DefaultConstants returns the standard simulation tuning.
func DefaultConstants() Constants {
	return Constants{
		TaxMin:              0,
		TaxMax:              0.5,
		TaxNeutralPoint:     0.3,
		TaxEffectMultiplier: 20,
		EventChance:         0.4,
		MonthlyEventChance:  0.3,
		MaxDistricts:        10,
		MaxDistrictLevel:    5,
		MaxDistrictSize:     5,
		MaxEventsHistory:    50,
		MaxStatEntries:      50,
		InitialFunds:        1000,
		InitialHappiness:    50,
		InitialEnvironment:  50,
		InitialEducation:    30,
		CategoryWeights: map[EventCategory]float64{
			CategoryDisaster:      1.0,
			CategoryEconomic:      1.2,
			CategorySocial:        1.5,
			CategoryEnvironmental: 1.3,
		},
	}
}

// CategoryWeight returns the selection weight multiplier for a category,
// defaulting to 1 for unknown categories.
func (c Constants) CategoryWeight(category EventCategory) float64 {
	if weight, ok := c.CategoryWeights[category]; ok {
		return weight
	}
	return 1
}
