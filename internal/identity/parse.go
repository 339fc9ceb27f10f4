// Package identity parses raw scan payloads into typed identities.
// All functions are pure: no I/O, no internal state.
package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
)

// ValidationError reports a malformed identity or manpower input.
// It never reaches the ledger and is never retried automatically.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

const fieldCount = 4

// vesselTypes maps accepted spellings (upper-cased) to the canonical enum value.
var vesselTypes = map[string]models.VesselType{
	"EVAPORATOR":    models.VesselEvaporator,
	"OIL SEPARATOR": models.VesselOilSeparator,
	"OIL_SEPARATOR": models.VesselOilSeparator,
	"OILSEPARATOR":  models.VesselOilSeparator,
	"CONDENSER":     models.VesselCondenser,
	"ECONOMIZER":    models.VesselEconomizer,
}

// NormalizeVesselType maps a raw type token to its canonical enum value.
func NormalizeVesselType(raw string) (models.VesselType, bool) {
	t, ok := vesselTypes[strings.ToUpper(strings.TrimSpace(raw))]
	return t, ok
}

// ParseVessel parses a vessel scan payload of the form
// "version;projectName;serial;type" into a VesselIdentity.
func ParseVessel(text string) (models.VesselIdentity, error) {
	parts := strings.Split(strings.TrimSpace(text), ";")
	if len(parts) != fieldCount {
		return models.VesselIdentity{}, &ValidationError{
			Field: "vessel payload",
			Msg:   fmt.Sprintf("expected %d fields, got %d", fieldCount, len(parts)),
		}
	}

	version := strings.TrimSpace(parts[0])
	projectName := strings.TrimSpace(parts[1])
	serial := strings.TrimSpace(parts[2])

	if version == "" {
		return models.VesselIdentity{}, &ValidationError{Field: "vessel payload", Msg: "empty version field"}
	}
	if projectName == "" {
		return models.VesselIdentity{}, &ValidationError{Field: "vessel payload", Msg: "empty project name field"}
	}
	if serial == "" {
		return models.VesselIdentity{}, &ValidationError{Field: "vessel payload", Msg: "empty serial field"}
	}

	vesselType, ok := NormalizeVesselType(parts[3])
	if !ok {
		return models.VesselIdentity{}, &ValidationError{
			Field: "vessel type",
			Msg:   fmt.Sprintf("unknown type %q", strings.TrimSpace(parts[3])),
		}
	}

	return models.VesselIdentity{
		FormatVersion: version,
		ProjectName:   projectName,
		Serial:        serial,
		VesselType:    vesselType,
	}, nil
}

// ParseOperator parses an operator scan payload of the form
// "EMP;employeeId;employeeName;station" into an OperatorIdentity.
// Underscores in the employee name are replaced with spaces.
func ParseOperator(text string) (models.OperatorIdentity, error) {
	parts := strings.Split(strings.TrimSpace(text), ";")
	if len(parts) != fieldCount {
		return models.OperatorIdentity{}, &ValidationError{
			Field: "operator payload",
			Msg:   fmt.Sprintf("expected %d fields, got %d", fieldCount, len(parts)),
		}
	}

	version := strings.ToUpper(strings.TrimSpace(parts[0]))
	if version != models.OperatorFormatVersion {
		return models.OperatorIdentity{}, &ValidationError{
			Field: "operator payload",
			Msg:   fmt.Sprintf("expected tag %q, got %q", models.OperatorFormatVersion, strings.TrimSpace(parts[0])),
		}
	}

	employeeID := strings.TrimSpace(parts[1])
	employeeName := strings.ReplaceAll(strings.TrimSpace(parts[2]), "_", " ")
	station := strings.TrimSpace(parts[3])

	if employeeID == "" {
		return models.OperatorIdentity{}, &ValidationError{Field: "operator payload", Msg: "empty employee id field"}
	}
	if employeeName == "" {
		return models.OperatorIdentity{}, &ValidationError{Field: "operator payload", Msg: "empty employee name field"}
	}
	if station == "" {
		return models.OperatorIdentity{}, &ValidationError{Field: "operator payload", Msg: "empty station field"}
	}

	return models.OperatorIdentity{
		FormatVersion: version,
		EmployeeID:    employeeID,
		EmployeeName:  employeeName,
		Station:       station,
	}, nil
}

// ParseManpower validates a raw manpower input. Empty input means "not yet
// provided" and returns 0 with no error; any non-empty input must be a
// positive whole number.
func ParseManpower(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(trimmed)
	if err != nil || n <= 0 {
		return 0, &ValidationError{
			Field: "manpower",
			Msg:   fmt.Sprintf("%q must be a whole number (1, 2, 3, ...)", trimmed),
		}
	}
	return n, nil
}
