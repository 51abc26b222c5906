package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Bound is a numeric eligibility constraint. It is expressed in the catalog
// either as a bare number (meaning "at least this much") or as an explicit
// {min, max} range. A nil Min or Max leaves that side unbounded.
type Bound struct {
	Min *float64
	Max *float64
}

// Satisfied reports whether value passes the bound.
func (b Bound) Satisfied(value float64) bool {
	if b.Min != nil && value < *b.Min {
		return false
	}
	if b.Max != nil && value > *b.Max {
		return false
	}
	return true
}

// MinBound builds a lower-only bound. Used by tests and defaults.
func MinBound(min float64) Bound {
	return Bound{Min: &min}
}

// UnmarshalYAML accepts either a scalar minimum or a {min, max} mapping.
func (b *Bound) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var min float64
		if err := node.Decode(&min); err != nil {
			return fmt.Errorf("decode bound minimum: %w", err)
		}
		b.Min = &min
		b.Max = nil
		return nil
	case yaml.MappingNode:
		var raw struct {
			Min *float64 `yaml:"min"`
			Max *float64 `yaml:"max"`
		}
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("decode bound range: %w", err)
		}
		b.Min = raw.Min
		b.Max = raw.Max
		return nil
	default:
		return fmt.Errorf("bound must be a number or a min/max mapping")
	}
}

// EventConditions is the structured eligibility predicate of an event. Every
// listed constraint must pass for the event to be selectable. An empty
// conditions value is always satisfied.
type EventConditions struct {
	// Scalars constrains city scalar fields by name (population, funds,
	// happiness, environment, education, year).
	Scalars map[string]Bound
	// Buildings constrains legacy city building counts. A building type the
	// city has never built counts as zero.
	Buildings map[BuildingType]Bound
}

// Empty reports whether the conditions impose no constraints.
func (c EventConditions) Empty() bool {
	return len(c.Scalars) == 0 && len(c.Buildings) == 0
}

// UnmarshalYAML decodes the catalog shape where building constraints live
// under a "buildings" key next to scalar constraints.
func (c *EventConditions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("conditions must be a mapping")
	}
	c.Scalars = nil
	c.Buildings = nil
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]
		if keyNode.Value == "buildings" {
			buildings := make(map[BuildingType]Bound)
			if err := valueNode.Decode(&buildings); err != nil {
				return fmt.Errorf("decode building conditions: %w", err)
			}
			c.Buildings = buildings
			continue
		}
		var bound Bound
		if err := bound.UnmarshalYAML(valueNode); err != nil {
			return fmt.Errorf("decode condition %q: %w", keyNode.Value, err)
		}
		if c.Scalars == nil {
			c.Scalars = make(map[string]Bound)
		}
		c.Scalars[keyNode.Value] = bound
	}
	return nil
}
