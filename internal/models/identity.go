package models

// VesselType classifies the vessel under test.
type VesselType string

const (
	VesselEvaporator   VesselType = "EVAPORATOR"
	VesselOilSeparator VesselType = "OIL_SEPARATOR"
	VesselCondenser    VesselType = "CONDENSER"
	VesselEconomizer   VesselType = "ECONOMIZER"
)

// OperatorFormatVersion is the literal tag every operator scan payload must carry.
const OperatorFormatVersion = "EMP"

// VesselIdentity is a vessel scan payload parsed into typed fields.
// Immutable once confirmed for a session.
type VesselIdentity struct {
	FormatVersion string     `yaml:"format_version"`
	ProjectName   string     `yaml:"project_name"`
	Serial        string     `yaml:"serial"`
	VesselType    VesselType `yaml:"vessel_type"`
}

// OperatorIdentity is an operator scan payload parsed into typed fields.
// Manpower is supplied separately from the scan and set at confirmation.
type OperatorIdentity struct {
	FormatVersion string `yaml:"format_version"`
	EmployeeID    string `yaml:"employee_id"`
	EmployeeName  string `yaml:"employee_name"`
	Station       string `yaml:"station"`
	Manpower      int    `yaml:"manpower"`
}
