// Package notify provides a typed notification channel for simulation state
// changes. Subscribers receive notifications synchronously, in registration
// order. A panicking subscriber does not prevent delivery to later
// subscribers.
package notify

// Kind identifies the type of a notification.
type Kind string

const (
	// KindChange records a generic city state change.
	KindChange Kind = "city.change"
	// KindPopulationGrowth records yearly population growth.
	KindPopulationGrowth Kind = "city.population_growth"
	// KindTaxDispleasure records happiness loss caused by the tax rate.
	KindTaxDispleasure Kind = "city.tax_displeasure"
	// KindYearEnd records the completion of a simulated year.
	KindYearEnd Kind = "city.year_end"
	// KindDistrictCreated records the creation of a district.
	KindDistrictCreated Kind = "district.created"
	// KindDistrictUpgraded records a district level increase.
	KindDistrictUpgraded Kind = "district.upgraded"
	// KindDistrictSpecialized records a district specialization change.
	KindDistrictSpecialized Kind = "district.specialized"
	// KindDistrictEvent records a random event applied to a district.
	KindDistrictEvent Kind = "district.event"
	// KindBuildingAdded records a building added to a district.
	KindBuildingAdded Kind = "district.building_added"
	// KindLevelUp records a district reaching a new level.
	KindLevelUp Kind = "district.level_up"
	// KindSpecializationChanged records a district specialization update.
	KindSpecializationChanged Kind = "district.specialization_changed"
	// KindUpdate records a district metrics recomputation.
	KindUpdate Kind = "district.update"
	// KindEvent records a random event applied to the city.
	KindEvent Kind = "city.event"
)

// Notification is a state-change message delivered to subscribers.
type Notification struct {
	Kind Kind `json:"kind"`
	// Payload carries kind-specific structured data. It must be a plain
	// JSON-serializable value; subscribers must not mutate it.
	Payload any `json:"payload,omitempty"`
}

// Handler receives notifications.
type Handler func(Notification)

// Notifier delivers notifications to registered handlers.
type Notifier struct {
	handlers []Handler
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a handler. Handlers are invoked in registration order.
func (n *Notifier) Subscribe(handler Handler) {
	if handler == nil {
		return
	}
	n.handlers = append(n.handlers, handler)
}

// Emit delivers a notification to every handler synchronously. A handler
// panic is swallowed so the remaining handlers still run.
func (n *Notifier) Emit(notification Notification) {
	if n == nil {
		return
	}
	for _, handler := range n.handlers {
		deliver(handler, notification)
	}
}

func deliver(handler Handler, notification Notification) {
	defer func() {
		_ = recover()
	}()
	handler(notification)
}
