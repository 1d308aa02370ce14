package vehicle_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartracker/cartracker/internal/vehicle"
)

func TestDecodeLegacySingleInsurance(t *testing.T) {
	raw := `{
		"id": "1",
		"name": "JEEP",
		"insurance": {"number": "OS-1", "company": "Ingos", "type": "osago", "endDate": "2025-01-14"}
	}`

	var v vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(raw), &v))

	require.Len(t, v.InsurancePolicies, 1)
	assert.Equal(t, "OS-1", v.InsurancePolicies[0].Number)
	assert.Equal(t, vehicle.Compulsory, v.InsurancePolicies[0].Type)
	assert.Equal(t, "2025-01-14", v.InsurancePolicies[0].EndDate.String())
	assert.True(t, v.NeedsInsuranceMigration())
}

func TestDecodeLegacyEmptyInsuranceObject(t *testing.T) {
	var v vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","insurance":{"endDate":"2025-01-01"}}`), &v))

	assert.NotNil(t, v.InsurancePolicies)
	assert.Empty(t, v.InsurancePolicies)
	assert.True(t, v.NeedsInsuranceMigration())
}

func TestDecodeLegacyInsuranceList(t *testing.T) {
	raw := `{"id":"1","insurance":[{"number":"A","type":"osago"},{"number":"B","type":"kasko"}]}`

	var v vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(raw), &v))

	require.Len(t, v.InsurancePolicies, 2)
	assert.Equal(t, vehicle.Comprehensive, v.InsurancePolicies[1].Type)
	assert.True(t, v.NeedsInsuranceMigration())
}

func TestDecodeCurrentShapeHasNoMigration(t *testing.T) {
	var v vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","insurancePolicies":[]}`), &v))

	assert.False(t, v.NeedsInsuranceMigration())
	assert.NotNil(t, v.InsurancePolicies)
	assert.NotNil(t, v.Intervals)
	assert.NotNil(t, v.LastChanges)
}

func TestDecodeMissingActiveFlag(t *testing.T) {
	var legacy vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(`{"id":"car_1","name":"Legacy"}`), &legacy))
	assert.True(t, legacy.IsActive)
	assert.True(t, legacy.NeedsActiveBackfill())

	var retired vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(`{"id":"car_2","isActive":false}`), &retired))
	assert.False(t, retired.IsActive)
	assert.False(t, retired.NeedsActiveBackfill())

	var current vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(`{"id":"car_3","isActive":true}`), &current))
	assert.True(t, current.IsActive)
	assert.False(t, current.NeedsActiveBackfill())
}

func TestInsurancePoliciesAlwaysEncodeAsArray(t *testing.T) {
	var v vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","insurance":{"number":"X"}}`), &v))

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.IsType(t, []any{}, generic["insurancePolicies"])
	assert.NotContains(t, generic, "insurance")
}

func TestLastChangeReadsLegacyOilBrand(t *testing.T) {
	var c vehicle.LastChange
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-10","mileage":350,"oilBrand":"Mobil 1"}`), &c))

	assert.Equal(t, "Mobil 1", c.Material)
	assert.Equal(t, 350, c.Mileage)
	assert.Equal(t, vehicle.NewDate(2024, time.January, 10), c.Date)
}

func TestDateParsing(t *testing.T) {
	d, err := vehicle.ParseDate("2024-03-05T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", d.String())

	zero, err := vehicle.ParseDate("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = vehicle.ParseDate("05.03.2024")
	assert.Error(t, err)

	assert.Equal(t, "2024-05-31", vehicle.NewDate(2023, time.May, 31).AddMonths(12).String())
}

func TestPolicyTypeRejectsUnknown(t *testing.T) {
	var p vehicle.Policy
	err := json.Unmarshal([]byte(`{"number":"1","type":"life"}`), &p)
	assert.Error(t, err)
}

func TestActivePolicyPicksFirstUnexpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	policies := []vehicle.Policy{
		{Number: "old", EndDate: vehicle.NewDate(2024, 5, 1)},
		{Number: "today", EndDate: vehicle.NewDate(2024, 6, 1)},
		{Number: "current", EndDate: vehicle.NewDate(2024, 12, 1)},
		{Number: "later", EndDate: vehicle.NewDate(2025, 12, 1)},
	}

	active, ok := vehicle.ActivePolicy(policies, now)
	require.True(t, ok)
	assert.Equal(t, "current", active.Number)

	_, ok = vehicle.ActivePolicy(nil, now)
	assert.False(t, ok)
}

func TestFindPolicyPrefersIDThenNumber(t *testing.T) {
	policies := []vehicle.Policy{
		{Number: "1700000000000"},
		{ID: 1700000000000, Number: "B"},
		{Number: "legacy"},
	}

	assert.Equal(t, 1, vehicle.FindPolicy(policies, "1700000000000"))
	assert.Equal(t, 2, vehicle.FindPolicy(policies, "legacy"))
	assert.Equal(t, -1, vehicle.FindPolicy(policies, "missing"))
	assert.Equal(t, -1, vehicle.FindPolicy(policies, ""))
}

func TestCloneIsDeep(t *testing.T) {
	cost := 100.0
	v := vehicle.Vehicle{
		Intervals:         map[string]vehicle.Interval{"engineOil": {Mileage: 10000}},
		LastChanges:       map[string]vehicle.LastChange{"engineOil": {Mileage: 1}},
		InsurancePolicies: []vehicle.Policy{{Number: "A", Cost: &cost}},
	}

	c := v.Clone()
	c.Intervals["engineOil"] = vehicle.Interval{Mileage: 5}
	c.LastChanges["atf"] = vehicle.LastChange{}
	*c.InsurancePolicies[0].Cost = 1
	c.InsurancePolicies[0].Number = "B"

	assert.Equal(t, 10000, v.Intervals["engineOil"].Mileage)
	assert.NotContains(t, v.LastChanges, "atf")
	assert.Equal(t, 100.0, *v.InsurancePolicies[0].Cost)
	assert.Equal(t, "A", v.InsurancePolicies[0].Number)
}

func TestDecodeNumericID(t *testing.T) {
	var v vehicle.Vehicle
	require.NoError(t, json.Unmarshal([]byte(`{"id":1712345678901,"name":"Volvo"}`), &v))
	assert.Equal(t, "1712345678901", v.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"1712345678901_abcdefghi"}`), &v))
	assert.Equal(t, "1712345678901_abcdefghi", v.ID)
}
