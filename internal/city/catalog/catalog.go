// Package catalog loads and validates the static simulation configuration:
// the building catalog, district-type catalog, specializations, random event
// templates and tunable constants. Consumers receive a validated *Catalog by
// injection; the simulation core never reads ambient configuration.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	apperrors "github.com/louisbranch/metropole/internal/errors"
)

//go:embed data/*.yaml
var embedded embed.FS

// Catalog is the validated set of simulation configuration data.
type Catalog struct {
	Buildings map[BuildingType]BuildingDef
	Districts map[DistrictType]DistrictTypeDef
	Events    []EventDef
	Upgrades  map[int]UpgradeRequirement
	Constants Constants
}

// scalarConditionNames are the city fields an event condition may reference.
var scalarConditionNames = map[string]bool{
	"population":  true,
	"funds":       true,
	"happiness":   true,
	"environment": true,
	"education":   true,
	"year":        true,
}

// Default loads the embedded catalog with default constants.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded catalog: %w", err)
	}
	return Load(sub, DefaultConstants())
}

// Load parses buildings.yaml, districts.yaml and events.yaml from fsys and
// validates the result against the provided constants.
func Load(fsys fs.FS, constants Constants) (*Catalog, error) {
	catalog := &Catalog{
		Buildings: make(map[BuildingType]BuildingDef),
		Districts: make(map[DistrictType]DistrictTypeDef),
		Upgrades:  make(map[int]UpgradeRequirement),
		Constants: constants,
	}

	var buildingsDoc struct {
		Buildings []BuildingDef `yaml:"buildings"`
	}
	if err := parseFile(fsys, "buildings.yaml", &buildingsDoc); err != nil {
		return nil, err
	}
	for _, def := range buildingsDoc.Buildings {
		if _, exists := catalog.Buildings[def.Type]; exists {
			return nil, invalidf("duplicate building type %q", def.Type)
		}
		catalog.Buildings[def.Type] = def
	}

	var districtsDoc struct {
		Districts []DistrictTypeDef          `yaml:"districts"`
		Upgrades  map[int]UpgradeRequirement `yaml:"upgrades"`
	}
	if err := parseFile(fsys, "districts.yaml", &districtsDoc); err != nil {
		return nil, err
	}
	for _, def := range districtsDoc.Districts {
		if _, exists := catalog.Districts[def.Type]; exists {
			return nil, invalidf("duplicate district type %q", def.Type)
		}
		catalog.Districts[def.Type] = def
	}
	catalog.Upgrades = districtsDoc.Upgrades
	if catalog.Upgrades == nil {
		catalog.Upgrades = make(map[int]UpgradeRequirement)
	}

	var eventsDoc struct {
		Events []EventDef `yaml:"events"`
	}
	if err := parseFile(fsys, "events.yaml", &eventsDoc); err != nil {
		return nil, err
	}
	catalog.Events = eventsDoc.Events

	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func parseFile(fsys fs.FS, name string, target any) error {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read catalog file %s: %w", name, err)
	}
	if err := yaml.Unmarshal(content, target); err != nil {
		return fmt.Errorf("parse catalog file %s: %w", name, err)
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return apperrors.New(apperrors.CodeCatalogInvalid, fmt.Sprintf(format, args...))
}

func (c *Catalog) validate() error {
	if len(c.Buildings) == 0 {
		return invalidf("building catalog is empty")
	}
	if len(c.Districts) == 0 {
		return invalidf("district catalog is empty")
	}
	for buildingType, def := range c.Buildings {
		if def.Cost <= 0 {
			return invalidf("building %q must have a positive cost", buildingType)
		}
		if def.Name == "" {
			return invalidf("building %q is missing a name", buildingType)
		}
	}
	for districtType, def := range c.Districts {
		if def.Cost <= 0 {
			return invalidf("district type %q must have a positive cost", districtType)
		}
		for _, buildingType := range def.Compatible {
			if _, ok := c.Buildings[buildingType]; !ok {
				return invalidf("district type %q references unknown building %q", districtType, buildingType)
			}
		}
		seen := make(map[string]bool)
		for _, spec := range def.Specializations {
			if spec.ID == "" {
				return invalidf("district type %q has a specialization without an id", districtType)
			}
			if seen[spec.ID] {
				return invalidf("district type %q has duplicate specialization %q", districtType, spec.ID)
			}
			seen[spec.ID] = true
		}
	}
	for level := range c.Upgrades {
		if level < 1 || level >= c.Constants.MaxDistrictLevel {
			return invalidf("upgrade requirement for level %d is out of range", level)
		}
	}
	eventIDs := make(map[string]bool)
	for _, event := range c.Events {
		if event.ID == "" {
			return invalidf("event %q is missing an id", event.Title)
		}
		if eventIDs[event.ID] {
			return invalidf("duplicate event id %q", event.ID)
		}
		eventIDs[event.ID] = true
		if _, ok := c.Constants.CategoryWeights[event.Category]; !ok {
			return invalidf("event %q has unknown category %q", event.ID, event.Category)
		}
		if event.Probability <= 0 || event.Probability > 1 {
			return invalidf("event %q probability must be in (0, 1]", event.ID)
		}
		for name := range event.Conditions.Scalars {
			if !scalarConditionNames[name] {
				return invalidf("event %q condition references unknown field %q", event.ID, name)
			}
		}
		for buildingType := range event.Conditions.Buildings {
			if _, ok := c.Buildings[buildingType]; !ok {
				return invalidf("event %q condition references unknown building %q", event.ID, buildingType)
			}
		}
		for buildingType := range event.Effects.Buildings {
			if _, ok := c.Buildings[buildingType]; !ok {
				return invalidf("event %q effect references unknown building %q", event.ID, buildingType)
			}
		}
	}
	return nil
}

// Building looks up a building definition.
func (c *Catalog) Building(buildingType BuildingType) (BuildingDef, bool) {
	def, ok := c.Buildings[buildingType]
	return def, ok
}

// District looks up a district type definition.
func (c *Catalog) District(districtType DistrictType) (DistrictTypeDef, bool) {
	def, ok := c.Districts[districtType]
	return def, ok
}

// UpgradeRequirementFor returns the gate for upgrading from the given level.
// The second return is false when the level has no gate.
func (c *Catalog) UpgradeRequirementFor(level int) (UpgradeRequirement, bool) {
	requirement, ok := c.Upgrades[level]
	return requirement, ok
}

// Event looks up an event template by id.
func (c *Catalog) Event(id string) (EventDef, bool) {
	for _, event := range c.Events {
		if event.ID == id {
			return event, true
		}
	}
	return EventDef{}, false
}
