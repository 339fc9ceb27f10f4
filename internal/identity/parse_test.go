package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
)

func TestParseVessel(t *testing.T) {
	v, err := ParseVessel("V1;ProjectX;SN-001;EVAPORATOR")
	require.NoError(t, err)
	assert.Equal(t, "V1", v.FormatVersion)
	assert.Equal(t, "ProjectX", v.ProjectName)
	assert.Equal(t, "SN-001", v.Serial)
	assert.Equal(t, models.VesselEvaporator, v.VesselType)
}

func TestParseVessel_TypeNormalization(t *testing.T) {
	tests := []struct {
		raw  string
		want models.VesselType
	}{
		{"EVAPORATOR", models.VesselEvaporator},
		{"evaporator", models.VesselEvaporator},
		{"Oil Separator", models.VesselOilSeparator},
		{"OIL_SEPARATOR", models.VesselOilSeparator},
		{"oilseparator", models.VesselOilSeparator},
		{"Condenser", models.VesselCondenser},
		{" economizer ", models.VesselEconomizer},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := ParseVessel("V1;P;S;" + tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.VesselType)
		})
	}
}

func TestParseVessel_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"too few fields", "V1;ProjectX;SN-001"},
		{"too many fields", "V1;ProjectX;SN-001;EVAPORATOR;extra"},
		{"unknown type", "V1;ProjectX;SN-001;BOILER"},
		{"empty version", " ;ProjectX;SN-001;EVAPORATOR"},
		{"empty project", "V1; ;SN-001;EVAPORATOR"},
		{"empty serial", "V1;ProjectX;;EVAPORATOR"},
		{"empty type", "V1;ProjectX;SN-001; "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVessel(tt.text)
			require.Error(t, err)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			// Failures never produce a partially-populated identity.
			assert.Equal(t, models.VesselIdentity{}, v)
		})
	}
}

func TestParseVessel_RoundTrip(t *testing.T) {
	payloads := []string{
		"V1;ProjectX;SN-001;EVAPORATOR",
		"V2;Plant 7;SN-042;OIL_SEPARATOR",
		"V1;Acme;C-9;CONDENSER",
	}
	for _, p := range payloads {
		v, err := ParseVessel(p)
		require.NoError(t, err)

		reserialized := strings.Join([]string{
			v.FormatVersion, v.ProjectName, v.Serial, string(v.VesselType),
		}, ";")
		again, err := ParseVessel(reserialized)
		require.NoError(t, err)
		assert.Equal(t, v, again)
	}
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("EMP;E100;Jane_Doe;StationA")
	require.NoError(t, err)
	assert.Equal(t, "EMP", op.FormatVersion)
	assert.Equal(t, "E100", op.EmployeeID)
	assert.Equal(t, "Jane Doe", op.EmployeeName)
	assert.Equal(t, "StationA", op.Station)
	assert.Zero(t, op.Manpower)
}

func TestParseOperator_LowercaseTag(t *testing.T) {
	op, err := ParseOperator("emp;E100;Jane;S1")
	require.NoError(t, err)
	assert.Equal(t, "EMP", op.FormatVersion)
}

func TestParseOperator_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"wrong tag", "VES;E100;Jane;S1"},
		{"too few fields", "EMP;E100;Jane"},
		{"too many fields", "EMP;E100;Jane;S1;extra"},
		{"empty id", "EMP;;Jane;S1"},
		{"empty name", "EMP;E100; ;S1"},
		{"empty station", "EMP;E100;Jane;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := ParseOperator(tt.text)
			require.Error(t, err)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Equal(t, models.OperatorIdentity{}, op)
		})
	}
}

func TestParseManpower(t *testing.T) {
	n, err := ParseManpower("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Empty means not yet provided, not invalid.
	n, err = ParseManpower("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = ParseManpower("   ")
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, raw := range []string{"0", "-1", "1.5", "abc", "2x"} {
		_, err := ParseManpower(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
