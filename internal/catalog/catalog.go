// Package catalog holds the built-in vehicle templates, the demo garage used
// to seed an empty database, and display names of maintenance components.
package catalog

import (
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/cartracker/cartracker/internal/vehicle"
)

// ErrUnknownTemplate is returned for a template key that is not registered.
var ErrUnknownTemplate = errors.New("catalog: unknown template")

// Template is a vehicle model preset.
type Template struct {
	Key         string
	DisplayName string
	Year        int
	Intervals   map[string]vehicle.Interval
}

var templates = map[string]Template{
	"jeepLiberty": {
		Key:         "jeepLiberty",
		DisplayName: "JEEP LIBERTY KK 2,8 CRD",
		Year:        2008,
		Intervals: map[string]vehicle.Interval{
			"engineOil":           {Mileage: 10000, Months: 12},
			"atf":                 {Mileage: 60000, Months: 36},
			"rearDiff":            {Mileage: 60000, Months: 36},
			"transferCase":        {Mileage: 60000, Months: 36},
			"timingBelt":          {Mileage: 80000, Months: 60},
			"fuelFilter":          {Mileage: 20000, Months: 12},
			"turboInspection":     {Mileage: 40000, Months: 24},
			"intercoolerCleaning": {Mileage: 80000, Months: 48},
			"glowPlugs":           {Mileage: 80000, Months: 60},
			"airFilter":           {Mileage: 20000, Months: 12},
			"cabinFilter":         {Mileage: 15000, Months: 12},
			"brakeFluid":          {Mileage: 40000, Months: 24},
			"coolant":             {Mileage: 80000, Months: 48},
		},
	},
	"volvoXC90": {
		Key:         "volvoXC90",
		DisplayName: "VOLVO XC90 2,5T",
		Year:        2007,
		Intervals: map[string]vehicle.Interval{
			"engineOil":       {Mileage: 10000, Months: 12},
			"atf":             {Mileage: 60000, Months: 36},
			"rearDiff":        {Mileage: 60000, Months: 36},
			"timingBelt":      {Mileage: 100000, Months: 60},
			"haldexOil":       {Mileage: 30000, Months: 24},
			"haldexFilter":    {Mileage: 60000, Months: 36},
			"turboInspection": {Mileage: 50000, Months: 24},
			"egrCleaning":     {Mileage: 80000, Months: 48},
			"airFilter":       {Mileage: 20000, Months: 12},
			"cabinFilter":     {Mileage: 15000, Months: 12},
			"brakeFluid":      {Mileage: 40000, Months: 24},
			"coolant":         {Mileage: 80000, Months: 48},
		},
	},
	"hyundaiCreta": {
		Key:         "hyundaiCreta",
		DisplayName: "HYUNDAI CRETA 2,0",
		Year:        2018,
		Intervals: map[string]vehicle.Interval{
			"engineOil":   {Mileage: 10000, Months: 12},
			"atf":         {Mileage: 60000, Months: 36},
			"rearDiff":    {Mileage: 60000, Months: 36},
			"timingBelt":  {Mileage: 120000, Months: 72},
			"airFilter":   {Mileage: 20000, Months: 12},
			"cabinFilter": {Mileage: 15000, Months: 12},
			"brakeFluid":  {Mileage: 40000, Months: 24},
			"coolant":     {Mileage: 80000, Months: 48},
		},
	},
}

// Keys returns the registered template keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(templates))
	for key := range templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns a copy of the template registered under key.
func Lookup(key string) (Template, bool) {
	t, ok := templates[key]
	if !ok {
		return Template{}, false
	}
	t.Intervals = maps.Clone(t.Intervals)
	return t, true
}

// Overrides replace template defaults when instantiating. Zero values keep
// the default.
type Overrides struct {
	Name              string
	Year              int
	Plate             string
	VIN               string
	Color             string
	CurrentMileage    int
	LastMileageUpdate vehicle.Date
}

// Instantiate builds a new active vehicle from the template. The interval
// table is copied, so the result never shares state with the catalog.
func Instantiate(key string, o Overrides) (vehicle.Vehicle, error) {
	t, ok := Lookup(key)
	if !ok {
		return vehicle.Vehicle{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, key)
	}

	v := vehicle.Vehicle{
		Name:              t.DisplayName,
		Year:              t.Year,
		Plate:             o.Plate,
		VIN:               o.VIN,
		Color:             o.Color,
		CurrentMileage:    o.CurrentMileage,
		LastMileageUpdate: o.LastMileageUpdate,
		Intervals:         t.Intervals,
		LastChanges:       map[string]vehicle.LastChange{},
		InsurancePolicies: []vehicle.Policy{},
		TemplateKey:       key,
		IsActive:          true,
	}
	if o.Name != "" {
		v.Name = o.Name
	}
	if o.Year != 0 {
		v.Year = o.Year
	}
	return v, nil
}

var componentNames = map[string]string{
	"engineOil":           "Engine oil",
	"atf":                 "Automatic transmission fluid",
	"rearDiff":            "Rear differential oil",
	"transferCase":        "Transfer case oil",
	"timingBelt":          "Timing belt",
	"fuelFilter":          "Fuel filter",
	"turboInspection":     "Turbo inspection",
	"intercoolerCleaning": "Intercooler cleaning",
	"glowPlugs":           "Glow plugs",
	"airFilter":           "Air filter",
	"cabinFilter":         "Cabin filter",
	"brakeFluid":          "Brake fluid",
	"coolant":             "Coolant",
	"haldexOil":           "Haldex coupling oil",
	"haldexFilter":        "Haldex filter",
	"egrCleaning":         "EGR cleaning",
}

// ComponentName returns the display name of a component key, or the key
// itself when it has none.
func ComponentName(key string) string {
	if name, ok := componentNames[key]; ok {
		return name
	}
	return key
}
