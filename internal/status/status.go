// Package status derives maintenance and insurance status from a vehicle.
// Every function is pure and deterministic in (vehicle, now).
package status

import (
	"math"
	"sort"
	"time"

	"github.com/cartracker/cartracker/internal/vehicle"
)

// Status of one maintenance component or of a whole vehicle.
type Status string

const (
	Normal  Status = "normal"
	DueSoon Status = "due-soon"
	Overdue Status = "overdue"
	// Unknown means no change has been recorded. It never raises the
	// vehicle status.
	Unknown Status = "unknown"
)

// InsuranceStatus of a vehicle's policies.
type InsuranceStatus string

const (
	InsuranceNormal  InsuranceStatus = "normal"
	InsuranceWarning InsuranceStatus = "warning"
	InsuranceDanger  InsuranceStatus = "danger"
)

const (
	// DueSoonRatio is the share of an interval left when a component is due soon.
	DueSoonRatio = 0.2
	// ExpiryWarningDays is how close the active policy end date must be for a warning.
	ExpiryWarningDays = 30
)

// Component is the evaluated state of one maintenance item.
type Component struct {
	Key      string
	Interval vehicle.Interval
	// LastChange is nil when the component was never recorded.
	LastChange       *vehicle.LastChange
	Status           Status
	NextDueMileage   int
	MileageRemaining int
	NextDueDate      vehicle.Date
	DaysRemaining    *int
	// Progress is the used share of the interval, 0 to 100.
	Progress float64
}

// Insurance is the evaluated state of a vehicle's policies.
type Insurance struct {
	Status InsuranceStatus
	Active *vehicle.Policy
	// DaysUntilExpiry is set when there is an active policy.
	DaysUntilExpiry *int
}

// Summary is the full evaluation of a vehicle.
type Summary struct {
	Maintenance Status
	Components  []Component
	// Critical lists the keys of overdue components.
	Critical  []string
	Insurance Insurance
}

// Evaluate computes the maintenance and insurance status of v at now.
func Evaluate(v vehicle.Vehicle, now time.Time) Summary {
	components := Components(v, now)
	return Summary{
		Maintenance: Rollup(components),
		Components:  components,
		Critical:    critical(components),
		Insurance:   EvaluateInsurance(v.InsurancePolicies, now),
	}
}

// Components evaluates every interval of v in key order.
func Components(v vehicle.Vehicle, now time.Time) []Component {
	keys := make([]string, 0, len(v.Intervals))
	for key := range v.Intervals {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Component, 0, len(keys))
	for _, key := range keys {
		var last *vehicle.LastChange
		if change, ok := v.LastChanges[key]; ok {
			last = &change
		}
		result = append(result, EvaluateComponent(key, v.Intervals[key], last, v.CurrentMileage, now))
	}
	return result
}

// EvaluateComponent applies the interval rules to one component. Mileage
// decides when the interval has one; a months-only interval applies the same
// thresholds to days.
func EvaluateComponent(key string, interval vehicle.Interval, last *vehicle.LastChange, currentMileage int, now time.Time) Component {
	c := Component{Key: key, Interval: interval, LastChange: last, Status: Unknown}
	if last == nil {
		return c
	}

	if interval.Months > 0 && !last.Date.IsZero() {
		c.NextDueDate = last.Date.AddMonths(interval.Months)
		days := daysUntil(c.NextDueDate.Time(), now)
		c.DaysRemaining = &days
	}

	switch {
	case interval.Mileage > 0:
		c.NextDueMileage = last.Mileage + interval.Mileage
		c.MileageRemaining = c.NextDueMileage - currentMileage
		c.Status = classify(float64(c.MileageRemaining), float64(interval.Mileage))
		c.Progress = progress(float64(currentMileage-last.Mileage), float64(interval.Mileage))
	case c.DaysRemaining != nil:
		total := c.NextDueDate.Time().Sub(last.Date.Time()).Hours() / 24
		c.Status = classify(float64(*c.DaysRemaining), total)
		c.Progress = progress(total-float64(*c.DaysRemaining), total)
	}
	if c.Status == Overdue {
		c.Progress = 100
	}
	return c
}

func classify(remaining, interval float64) Status {
	switch {
	case remaining <= 0:
		return Overdue
	case remaining < interval*DueSoonRatio:
		return DueSoon
	default:
		return Normal
	}
}

func progress(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(100, math.Max(0, used/total*100))
}

// Rollup is Overdue if any component is overdue, else DueSoon if any is due
// soon, else Normal.
func Rollup(components []Component) Status {
	result := Normal
	for _, c := range components {
		switch c.Status {
		case Overdue:
			return Overdue
		case DueSoon:
			result = DueSoon
		}
	}
	return result
}

func critical(components []Component) []string {
	keys := []string{}
	for _, c := range components {
		if c.Status == Overdue {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// EvaluateInsurance is Danger without an active policy and Warning when the
// active policy ends in fewer than ExpiryWarningDays days.
func EvaluateInsurance(policies []vehicle.Policy, now time.Time) Insurance {
	active, ok := vehicle.ActivePolicy(policies, now)
	if !ok {
		return Insurance{Status: InsuranceDanger}
	}

	days := daysUntil(active.EndDate.Time(), now)
	result := Insurance{Status: InsuranceNormal, Active: &active, DaysUntilExpiry: &days}
	if days < ExpiryWarningDays {
		result.Status = InsuranceWarning
	}
	return result
}

// daysUntil rounds partial days up.
func daysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}
