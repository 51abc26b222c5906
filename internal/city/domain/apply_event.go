package domain

import (
	"fmt"

	"github.com/louisbranch/metropole/internal/city/catalog"
	apperrors "github.com/louisbranch/metropole/internal/errors"
	"github.com/louisbranch/metropole/internal/notify"
)

// EventAppliedPayload describes an event notification.
type EventAppliedPayload struct {
	EventID    string `json:"eventId"`
	Title      string `json:"title"`
	DistrictID string `json:"districtId,omitempty"`
}

// ApplyEvent applies an event's effect deltas. With a district id, the
// deltas land on that district's metrics, floored at zero with no upper
// clamp. Without one, they land on the city scalars: population and funds
// floored at zero, percentage metrics clamped to [0, 100], and building
// deltas applied to the legacy counts, floored at zero per type.
func (c *City) ApplyEvent(event catalog.EventDef, districtID string) error {
	if districtID != "" {
		district, ok := c.District(districtID)
		if !ok {
			return apperrors.New(apperrors.CodeDistrictNotFound,
				fmt.Sprintf("district %q not found", districtID))
		}
		district.applyEvent(event)
		c.notify(notify.Notification{Kind: notify.KindDistrictEvent, Payload: EventAppliedPayload{
			EventID:    event.ID,
			Title:      event.Title,
			DistrictID: districtID,
		}})
		return nil
	}

	effects := event.Effects
	c.population = max(c.population+effects.Population, 0)
	c.funds = max(c.funds+effects.Funds, 0)
	c.happiness = clampPercent(c.happiness + effects.Happiness)
	c.environment = clampPercent(c.environment + effects.Environment)
	c.education = clampPercent(c.education + effects.Education)
	for buildingType, delta := range effects.Buildings {
		c.buildings[buildingType] = max(c.buildings[buildingType]+delta, 0)
	}

	c.notify(notify.Notification{Kind: notify.KindEvent, Payload: EventAppliedPayload{
		EventID: event.ID,
		Title:   event.Title,
	}})
	return nil
}

// applyEvent applies event deltas to district metrics. District metrics are
// floored at zero but deliberately have no upper clamp, unlike city scalars.
func (d *District) applyEvent(event catalog.EventDef) {
	effects := event.Effects
	d.metrics.Population = max(d.metrics.Population+effects.Population, 0)
	d.metrics.Happiness = max(d.metrics.Happiness+effects.Happiness, 0)
	d.metrics.Environment = max(d.metrics.Environment+effects.Environment, 0)
	d.metrics.Education = max(d.metrics.Education+effects.Education, 0)
	d.metrics.Income = max(d.metrics.Income+effects.Income, 0)
}
