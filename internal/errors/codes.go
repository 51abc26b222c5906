package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// City errors
	CodeCityInsufficientFunds Code = "CITY_INSUFFICIENT_FUNDS"
	CodeCityUnknownBuilding   Code = "CITY_UNKNOWN_BUILDING"
	CodeCityUnknownDistrict   Code = "CITY_UNKNOWN_DISTRICT_TYPE"
	CodeCityDistrictLimit     Code = "CITY_DISTRICT_LIMIT_REACHED"
	CodeCityInvalidTaxRate    Code = "CITY_INVALID_TAX_RATE"

	// District errors
	CodeDistrictNotFound              Code = "DISTRICT_NOT_FOUND"
	CodeDistrictIncompatibleBuilding  Code = "DISTRICT_INCOMPATIBLE_BUILDING"
	CodeDistrictMaxLevel              Code = "DISTRICT_MAX_LEVEL"
	CodeDistrictInvalidSpecialization Code = "DISTRICT_INVALID_SPECIALIZATION"
	CodeDistrictUpgradeRequirements   Code = "DISTRICT_UPGRADE_REQUIREMENTS"

	// Event errors
	CodeEventNotFound Code = "EVENT_NOT_FOUND"

	// Catalog errors
	CodeCatalogInvalid Code = "CATALOG_INVALID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeCityUnknownBuilding,
		CodeCityUnknownDistrict,
		CodeCityInvalidTaxRate,
		CodeDistrictInvalidSpecialization,
		CodeCatalogInvalid:
		return http.StatusBadRequest

	// Conflict - state doesn't allow operation
	case CodeCityInsufficientFunds,
		CodeCityDistrictLimit,
		CodeDistrictIncompatibleBuilding,
		CodeDistrictMaxLevel,
		CodeDistrictUpgradeRequirements:
		return http.StatusConflict

	// Not found
	case CodeDistrictNotFound,
		CodeEventNotFound,
		CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
