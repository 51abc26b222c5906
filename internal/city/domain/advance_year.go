package domain

import (
	"math"

	"github.com/louisbranch/metropole/internal/city/catalog"
	"github.com/louisbranch/metropole/internal/notify"
)

// YearReport is the income breakdown for one simulated year.
type YearReport struct {
	Year           int `json:"year"`
	TaxIncome      int `json:"taxIncome"`
	FactoryIncome  int `json:"factoryIncome"`
	DistrictIncome int `json:"districtIncome"`
	TotalIncome    int `json:"totalIncome"`
}

// PopulationGrowthPayload describes a populationGrowth notification.
type PopulationGrowthPayload struct {
	Previous int `json:"previous"`
	Current  int `json:"current"`
}

// TaxDispleasurePayload describes a taxDispleasure notification.
type TaxDispleasurePayload struct {
	TaxRate        float64 `json:"taxRate"`
	HappinessDelta int     `json:"happinessDelta"`
}

// AdvanceYear runs the yearly progression. District income credited this
// year is the value computed by the previous year's district update; income
// lags structural changes by one tick.
func (c *City) AdvanceYear() YearReport {
	c.year++

	previousPopulation := c.population
	if len(c.districts) > 0 {
		c.aggregateDistricts()
	}

	taxIncome := int(math.Floor(float64(c.population) * 10 * c.taxRate))
	districtIncome := 0
	for _, district := range c.districts {
		districtIncome += district.Metrics().Income
	}
	factoryIncome := 0
	if factory, ok := c.catalog.Building(catalog.BuildingFactory); ok {
		factoryIncome = c.buildings[catalog.BuildingFactory] * factory.Effects.Funds
	}
	total := taxIncome + factoryIncome + districtIncome
	c.funds += total

	state := c.State()
	for _, district := range c.districts {
		district.Update(state)
	}
	if len(c.districts) == 0 {
		c.legacyPopulationGrowth()
	}
	c.applyEnvironmentDrift()
	c.applyTaxHappiness()

	if c.population > previousPopulation {
		c.notify(notify.Notification{Kind: notify.KindPopulationGrowth, Payload: PopulationGrowthPayload{
			Previous: previousPopulation,
			Current:  c.population,
		}})
	}

	c.recordStatistics()

	report := YearReport{
		Year:           c.year,
		TaxIncome:      taxIncome,
		FactoryIncome:  factoryIncome,
		DistrictIncome: districtIncome,
		TotalIncome:    total,
	}
	c.notify(notify.Notification{Kind: notify.KindYearEnd, Payload: report})
	return report
}

// aggregateDistricts overwrites the city population with the sum of district
// populations and folds the average district happiness and education effects
// into the city scalars at 1/5 weight.
func (c *City) aggregateDistricts() {
	total := 0
	happinessSum := 0
	educationSum := 0
	for _, district := range c.districts {
		metrics := district.Metrics()
		effects := district.Effects()
		total += metrics.Population
		happinessSum += effects.Happiness
		educationSum += effects.Education
	}

	c.population = total
	count := float64(len(c.districts))
	c.happiness = clampPercent(c.happiness + int(math.Floor(float64(happinessSum)/count/5)))
	c.education = clampPercent(c.education + int(math.Floor(float64(educationSum)/count/5)))
}

// legacyPopulationGrowth applies the pre-district growth formula. It is a
// compatibility path used only while the city has zero districts.
func (c *City) legacyPopulationGrowth() {
	capacity := 50 + c.buildings[catalog.BuildingHouse]*10
	if c.population >= capacity {
		return
	}
	growthRate := (0.7*float64(c.happiness)/100 + 0.3*float64(c.environment)/100) * 0.05
	growth := int(math.Floor(float64(c.population)*growthRate)) + 1
	c.population = min(c.population+growth, capacity)
}

// applyEnvironmentDrift folds averaged district environment effects into the
// city metric, or applies the legacy factory-based recovery when no
// districts exist.
func (c *City) applyEnvironmentDrift() {
	var delta int
	if len(c.districts) > 0 {
		sum := 0
		for _, district := range c.districts {
			sum += district.Effects().Environment
		}
		delta = int(math.Floor(float64(sum) / float64(len(c.districts)) / 5))
	} else {
		delta = 2 - c.buildings[catalog.BuildingFactory]
	}
	c.environment = clampPercent(c.environment + delta)
}

// applyTaxHappiness shifts happiness around the neutral tax point.
func (c *City) applyTaxHappiness() {
	constants := c.catalog.Constants
	delta := int(math.Floor((constants.TaxNeutralPoint - c.taxRate) * constants.TaxEffectMultiplier))
	c.happiness = clampPercent(c.happiness + delta)
	if delta < 0 {
		c.notify(notify.Notification{Kind: notify.KindTaxDispleasure, Payload: TaxDispleasurePayload{
			TaxRate:        c.taxRate,
			HappinessDelta: delta,
		}})
	}
}

// recordStatistics appends this year's snapshot to every tracked series,
// evicting the oldest entry once a series exceeds the cap.
func (c *City) recordStatistics() {
	values := map[StatMetric]int{
		StatPopulation:  c.population,
		StatFunds:       c.funds,
		StatHappiness:   c.happiness,
		StatEnvironment: c.environment,
		StatEducation:   c.education,
	}
	limit := c.catalog.Constants.MaxStatEntries
	for _, metric := range StatMetrics {
		series := append(c.statistics[metric], StatPoint{Year: c.year, Value: values[metric]})
		if len(series) > limit {
			series = series[len(series)-limit:]
		}
		c.statistics[metric] = series
	}
}
