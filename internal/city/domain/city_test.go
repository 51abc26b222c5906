package domain

import (
	"testing"

	"github.com/louisbranch/metropole/internal/city/catalog"
	apperrors "github.com/louisbranch/metropole/internal/errors"
	"github.com/louisbranch/metropole/internal/notify"
)

func newTestCity(t *testing.T) *City {
	t.Helper()
	city, err := New(Config{
		Name:    "Testopolis",
		Catalog: testCatalog(t),
		NewID:   sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("new city: %v", err)
	}
	return city
}

// cityWithFunds rebuilds a test city with an arbitrary treasury balance via
// the snapshot contract.
func cityWithFunds(t *testing.T, funds int) *City {
	t.Helper()
	city := newTestCity(t)
	snapshot := city.Snapshot(testTime())
	snapshot.Funds = funds
	restored, err := Restore(snapshot, RestoreConfig{Catalog: testCatalog(t), NewID: sequentialIDs()})
	if err != nil {
		t.Fatalf("restore city: %v", err)
	}
	return restored
}

func TestNewCityInitialState(t *testing.T) {
	city := newTestCity(t)

	if city.Name() != "Testopolis" {
		t.Fatalf("expected name Testopolis, got %q", city.Name())
	}
	if city.Funds() != 1000 {
		t.Fatalf("expected initial funds 1000, got %d", city.Funds())
	}
	if city.Happiness() != 50 || city.Environment() != 50 {
		t.Fatalf("expected initial happiness and environment of 50, got %d and %d", city.Happiness(), city.Environment())
	}
	if city.Year() != 0 {
		t.Fatalf("expected year 0, got %d", city.Year())
	}
	if city.TaxRate() != 0.3 {
		t.Fatalf("expected neutral tax rate 0.3, got %v", city.TaxRate())
	}
}

func TestBuildStructureLegacyMode(t *testing.T) {
	city := newTestCity(t)

	result, err := city.BuildStructure(catalog.BuildingHouse, "")
	if err != nil {
		t.Fatalf("build structure: %v", err)
	}
	if result.Cost != 100 {
		t.Fatalf("expected cost 100, got %d", result.Cost)
	}
	if city.Funds() != 900 {
		t.Fatalf("expected funds 900, got %d", city.Funds())
	}
	if count := city.BuildingCount(catalog.BuildingHouse); count != 1 {
		t.Fatalf("expected 1 house, got %d", count)
	}
	if city.Population() != 10 {
		t.Fatalf("expected population 10 from house effects, got %d", city.Population())
	}
	if city.Happiness() != 51 {
		t.Fatalf("expected happiness 51, got %d", city.Happiness())
	}
}

func TestBuildStructureFundsEffectsAreDeferred(t *testing.T) {
	city := newTestCity(t)

	if _, err := city.BuildStructure(catalog.BuildingFactory, ""); err != nil {
		t.Fatalf("build structure: %v", err)
	}

	// The factory's funds effect rolls into yearly income, not the build.
	if city.Funds() != 700 {
		t.Fatalf("expected funds 700 after paying cost only, got %d", city.Funds())
	}
}

func TestBuildStructureInsufficientFunds(t *testing.T) {
	city := cityWithFunds(t, 50)

	_, err := city.BuildStructure(catalog.BuildingHouse, "")
	if !apperrors.IsCode(err, apperrors.CodeCityInsufficientFunds) {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}
	if city.Funds() != 50 {
		t.Fatalf("expected funds unchanged at 50, got %d", city.Funds())
	}
	if count := city.BuildingCount(catalog.BuildingHouse); count != 0 {
		t.Fatalf("expected no houses, got %d", count)
	}
}

func TestBuildStructureUnknownType(t *testing.T) {
	city := newTestCity(t)

	_, err := city.BuildStructure(catalog.BuildingType("stadium"), "")
	if !apperrors.IsCode(err, apperrors.CodeCityUnknownBuilding) {
		t.Fatalf("expected unknown building error, got %v", err)
	}
}

func TestBuildStructureInDistrict(t *testing.T) {
	city := newTestCity(t)
	district, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{})
	if err != nil {
		t.Fatalf("create district: %v", err)
	}

	result, err := city.BuildStructure(catalog.BuildingHouse, district.ID())
	if err != nil {
		t.Fatalf("build structure: %v", err)
	}
	if result.DistrictID != district.ID() {
		t.Fatalf("expected district id in result, got %q", result.DistrictID)
	}
	if city.Funds() != 400 {
		t.Fatalf("expected funds 400 after district and house, got %d", city.Funds())
	}
	if count := district.BuildingCount(catalog.BuildingHouse); count != 1 {
		t.Fatalf("expected 1 house in district, got %d", count)
	}
	// District builds do not touch the legacy counts.
	if count := city.BuildingCount(catalog.BuildingHouse); count != 0 {
		t.Fatalf("expected no legacy houses, got %d", count)
	}
}

func TestBuildStructureIncompatibleDistrict(t *testing.T) {
	city := cityWithFunds(t, 5000)
	district, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{})
	if err != nil {
		t.Fatalf("create district: %v", err)
	}
	fundsBefore := city.Funds()

	_, err = city.BuildStructure(catalog.BuildingFactory, district.ID())
	if !apperrors.IsCode(err, apperrors.CodeDistrictIncompatibleBuilding) {
		t.Fatalf("expected incompatible building error, got %v", err)
	}
	if city.Funds() != fundsBefore {
		t.Fatalf("expected funds unchanged, got %d", city.Funds())
	}
}

func TestCreateDistrictDefaults(t *testing.T) {
	city := newTestCity(t)

	district, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{Name: "A"})
	if err != nil {
		t.Fatalf("create district: %v", err)
	}
	if district.Name() != "A" {
		t.Fatalf("expected name A, got %q", district.Name())
	}
	if district.Type() != catalog.DistrictResidential {
		t.Fatalf("expected residential type, got %s", district.Type())
	}
	if district.Level() != 1 {
		t.Fatalf("expected level 1, got %d", district.Level())
	}
	effects := district.Effects()
	if effects.Population != 10 || effects.Happiness != 2 || effects.Environment != 0 {
		t.Fatalf("unexpected default effects: %+v", effects)
	}
	if city.Funds() != 500 {
		t.Fatalf("expected funds 500 after zoning, got %d", city.Funds())
	}
}

func TestCreateDistrictLimit(t *testing.T) {
	city := cityWithFunds(t, 100000)

	for i := 0; i < 10; i++ {
		if _, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{}); err != nil {
			t.Fatalf("create district %d: %v", i+1, err)
		}
	}

	_, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{})
	if !apperrors.IsCode(err, apperrors.CodeCityDistrictLimit) {
		t.Fatalf("expected district limit error, got %v", err)
	}
	if got := len(city.Districts()); got != 10 {
		t.Fatalf("expected 10 districts, got %d", got)
	}
}

func TestCreateDistrictInsufficientFunds(t *testing.T) {
	city := cityWithFunds(t, 100)

	_, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{})
	if !apperrors.IsCode(err, apperrors.CodeCityInsufficientFunds) {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}
}

func TestUpgradeDistrictAppliesRequirementTable(t *testing.T) {
	city := cityWithFunds(t, 5000)
	district, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{})
	if err != nil {
		t.Fatalf("create district: %v", err)
	}

	// Level 1 requires 1000 funds and population 100; the test city has no
	// population yet.
	_, err = city.UpgradeDistrict(district.ID())
	if !apperrors.IsCode(err, apperrors.CodeDistrictUpgradeRequirements) {
		t.Fatalf("expected population requirement error, got %v", err)
	}
	if district.Level() != 1 {
		t.Fatalf("expected level unchanged at 1, got %d", district.Level())
	}

	// Grow the population past the gate, then upgrade.
	city.population = 150
	result, err := city.UpgradeDistrict(district.ID())
	if err != nil {
		t.Fatalf("upgrade district: %v", err)
	}
	if result.Level != 2 {
		t.Fatalf("expected level 2, got %d", result.Level)
	}
	if result.Cost != 1000 {
		t.Fatalf("expected upgrade cost 1000, got %d", result.Cost)
	}
}

func TestUpgradeDistrictNotFound(t *testing.T) {
	city := newTestCity(t)

	_, err := city.UpgradeDistrict("missing")
	if !apperrors.IsCode(err, apperrors.CodeDistrictNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestSetDistrictSpecialization(t *testing.T) {
	city := newTestCity(t)
	district, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{})
	if err != nil {
		t.Fatalf("create district: %v", err)
	}

	if err := city.SetDistrictSpecialization(district.ID(), "affordable"); err != nil {
		t.Fatalf("set specialization: %v", err)
	}
	if district.Specialization() != "affordable" {
		t.Fatalf("expected affordable, got %q", district.Specialization())
	}

	if err := city.SetDistrictSpecialization("missing", "affordable"); !apperrors.IsCode(err, apperrors.CodeDistrictNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestSetTaxRate(t *testing.T) {
	city := newTestCity(t)

	change, err := city.SetTaxRate(0.4)
	if err != nil {
		t.Fatalf("set tax rate: %v", err)
	}
	if change.OldRate != 0.3 || change.NewRate != 0.4 {
		t.Fatalf("unexpected change: %+v", change)
	}
	if city.TaxRate() != 0.4 {
		t.Fatalf("expected tax rate 0.4, got %v", city.TaxRate())
	}
}

func TestSetTaxRateRejectsOutOfRange(t *testing.T) {
	city := newTestCity(t)

	tests := []float64{-0.1, 0.6, 1.5}
	for _, rate := range tests {
		_, err := city.SetTaxRate(rate)
		if !apperrors.IsCode(err, apperrors.CodeCityInvalidTaxRate) {
			t.Fatalf("rate %v: expected invalid tax rate error, got %v", rate, err)
		}
		if city.TaxRate() != 0.3 {
			t.Fatalf("rate %v: expected tax rate unchanged at 0.3, got %v", rate, city.TaxRate())
		}
	}
}

func TestPercentMetricsStayClamped(t *testing.T) {
	city := cityWithFunds(t, 100000)

	// Repeated park builds would push environment and happiness past 100
	// without clamping.
	for i := 0; i < 30; i++ {
		if _, err := city.BuildStructure(catalog.BuildingPark, ""); err != nil {
			t.Fatalf("build park %d: %v", i, err)
		}
	}
	if city.Environment() != 100 {
		t.Fatalf("expected environment clamped at 100, got %d", city.Environment())
	}
	if city.Happiness() != 100 {
		t.Fatalf("expected happiness clamped at 100, got %d", city.Happiness())
	}
}

func TestNotificationsReachSubscribers(t *testing.T) {
	notifier := notify.NewNotifier()
	var kinds []notify.Kind
	notifier.Subscribe(func(n notify.Notification) { kinds = append(kinds, n.Kind) })

	city, err := New(Config{
		Name:    "Testopolis",
		Catalog: testCatalog(t),
		Emit:    notifier.Emit,
		NewID:   sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("new city: %v", err)
	}

	if _, err := city.CreateDistrict(catalog.DistrictResidential, CreateDistrictOptions{}); err != nil {
		t.Fatalf("create district: %v", err)
	}

	if len(kinds) == 0 || kinds[len(kinds)-1] != notify.KindDistrictCreated {
		t.Fatalf("expected districtCreated notification, got %v", kinds)
	}
}
