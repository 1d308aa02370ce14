package status_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartracker/cartracker/internal/status"
	"github.com/cartracker/cartracker/internal/vehicle"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func oilVehicle(current int) vehicle.Vehicle {
	return vehicle.Vehicle{
		CurrentMileage: current,
		Intervals:      map[string]vehicle.Interval{"engineOil": {Mileage: 10000, Months: 12}},
		LastChanges:    map[string]vehicle.LastChange{"engineOil": {Mileage: 40000}},
	}
}

func TestComponentNormalWellBeforeDue(t *testing.T) {
	summary := status.Evaluate(oilVehicle(44500), now)

	require.Len(t, summary.Components, 1)
	c := summary.Components[0]
	assert.Equal(t, 50000, c.NextDueMileage)
	assert.Equal(t, 5500, c.MileageRemaining)
	assert.Equal(t, status.Normal, c.Status)
	assert.InDelta(t, 45.0, c.Progress, 0.001)
	assert.Equal(t, status.Normal, summary.Maintenance)
}

func TestComponentDueSoonInsideLastFifth(t *testing.T) {
	summary := status.Evaluate(oilVehicle(49000), now)

	c := summary.Components[0]
	assert.Equal(t, 1000, c.MileageRemaining)
	assert.Equal(t, status.DueSoon, c.Status)
	assert.Equal(t, status.DueSoon, summary.Maintenance)
	assert.Empty(t, summary.Critical)
}

func TestComponentOverdueOnceDueMileageIsReached(t *testing.T) {
	for _, current := range []int{50000, 50001, 90000} {
		summary := status.Evaluate(oilVehicle(current), now)

		c := summary.Components[0]
		assert.Equal(t, status.Overdue, c.Status, "mileage %d", current)
		assert.Equal(t, 100.0, c.Progress)
		assert.Equal(t, status.Overdue, summary.Maintenance)
		assert.Equal(t, []string{"engineOil"}, summary.Critical)
	}
}

func TestUnknownDoesNotEscalate(t *testing.T) {
	v := oilVehicle(41000)
	v.Intervals["atf"] = vehicle.Interval{Mileage: 60000, Months: 36}

	summary := status.Evaluate(v, now)

	require.Len(t, summary.Components, 2)
	assert.Equal(t, "atf", summary.Components[0].Key)
	assert.Equal(t, status.Unknown, summary.Components[0].Status)
	assert.Nil(t, summary.Components[0].LastChange)
	assert.Equal(t, status.Normal, summary.Maintenance)
}

func TestOverdueWinsOverDueSoon(t *testing.T) {
	v := oilVehicle(49000)
	v.Intervals["cabinFilter"] = vehicle.Interval{Mileage: 5000}
	v.LastChanges["cabinFilter"] = vehicle.LastChange{Mileage: 40000}

	summary := status.Evaluate(v, now)

	assert.Equal(t, status.Overdue, summary.Maintenance)
	assert.Equal(t, []string{"cabinFilter"}, summary.Critical)
}

func TestMonthsOnlyIntervalUsesDays(t *testing.T) {
	key := "brakeFluid"
	interval := vehicle.Interval{Months: 24}

	fresh := vehicle.LastChange{Date: vehicle.NewDate(2024, 1, 1)}
	c := status.EvaluateComponent(key, interval, &fresh, 0, now)
	assert.Equal(t, status.Normal, c.Status)
	assert.Equal(t, "2026-01-01", c.NextDueDate.String())
	require.NotNil(t, c.DaysRemaining)

	old := vehicle.LastChange{Date: vehicle.NewDate(2022, 7, 1)}
	c = status.EvaluateComponent(key, interval, &old, 0, now)
	assert.Equal(t, status.DueSoon, c.Status)

	expired := vehicle.LastChange{Date: vehicle.NewDate(2022, 5, 1)}
	c = status.EvaluateComponent(key, interval, &expired, 0, now)
	assert.Equal(t, status.Overdue, c.Status)
}

func TestEmptyVehicleIsNormal(t *testing.T) {
	summary := status.Evaluate(vehicle.Vehicle{}, now)

	assert.Equal(t, status.Normal, summary.Maintenance)
	assert.Empty(t, summary.Components)
	assert.Empty(t, summary.Critical)
	assert.Equal(t, status.InsuranceDanger, summary.Insurance.Status)
}

func TestInsuranceDangerWithoutActivePolicy(t *testing.T) {
	expired := []vehicle.Policy{{Number: "A", EndDate: vehicle.NewDate(2024, 5, 31)}}

	result := status.EvaluateInsurance(expired, now)

	assert.Equal(t, status.InsuranceDanger, result.Status)
	assert.Nil(t, result.Active)
	_, ok := vehicle.ActivePolicy(expired, now)
	assert.False(t, ok)
}

func TestInsuranceWarningNearExpiry(t *testing.T) {
	policies := []vehicle.Policy{{Number: "A", EndDate: vehicle.NewDate(2024, 6, 30)}}

	result := status.EvaluateInsurance(policies, now)

	assert.Equal(t, status.InsuranceWarning, result.Status)
	require.NotNil(t, result.DaysUntilExpiry)
	assert.Equal(t, 29, *result.DaysUntilExpiry)
	assert.Equal(t, "A", result.Active.Number)
}

func TestInsuranceNormalFarFromExpiry(t *testing.T) {
	policies := []vehicle.Policy{
		{Number: "old", EndDate: vehicle.NewDate(2023, 1, 1)},
		{Number: "B", EndDate: vehicle.NewDate(2024, 7, 2)},
	}

	result := status.EvaluateInsurance(policies, now)

	assert.Equal(t, status.InsuranceNormal, result.Status)
	assert.Equal(t, 31, *result.DaysUntilExpiry)
	assert.Equal(t, "B", result.Active.Number)
}
