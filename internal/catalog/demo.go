package catalog

import (
	"time"

	"github.com/cartracker/cartracker/internal/vehicle"
)

// DemoVehicles returns the garage an empty database is seeded with. Each
// call returns fresh values.
func DemoVehicles() []vehicle.Vehicle {
	jeep, _ := Instantiate("jeepLiberty", Overrides{Plate: "P593BK39", CurrentMileage: 396})
	jeep.InsurancePolicies = []vehicle.Policy{
		demoPolicy("OSAGO123456", "Ingosstrakh", vehicle.Compulsory, date(2024, 1, 15), date(2025, 1, 14)),
		demoPolicy("KASKO789012", "RESO", vehicle.Comprehensive, date(2024, 1, 15), date(2025, 1, 14)),
	}
	jeep.LastChanges = map[string]vehicle.LastChange{
		"engineOil":   {Date: date(2024, 1, 10), Mileage: 350, Material: "Mobil 1 5W-30", Notes: "First change after purchase"},
		"airFilter":   {Date: date(2024, 1, 10), Mileage: 350, Material: "MANN FILTER", Notes: "Preventive replacement"},
		"cabinFilter": {Date: date(2024, 1, 10), Mileage: 350, Material: "MANN FILTER", Notes: "Preventive replacement"},
	}

	volvo, _ := Instantiate("volvoXC90", Overrides{Plate: "A123BC777", CurrentMileage: 185000})
	volvo.InsurancePolicies = []vehicle.Policy{
		demoPolicy("OSAGO789012", "RESO", vehicle.Compulsory, date(2024, 2, 1), date(2025, 2, 1)),
	}
	volvo.LastChanges = map[string]vehicle.LastChange{
		"engineOil":    {Date: date(2024, 2, 15), Mileage: 184500, Material: "Castrol 5W-40", Notes: "Scheduled change"},
		"haldexOil":    {Date: date(2024, 2, 15), Mileage: 184500, Material: "Volvo Haldex Oil", Notes: "Per schedule"},
		"haldexFilter": {Date: date(2024, 2, 15), Mileage: 184500, Material: "Volvo Haldex Filter", Notes: "Per schedule"},
	}

	creta, _ := Instantiate("hyundaiCreta", Overrides{Plate: "E555XX99", CurrentMileage: 45000})
	creta.InsurancePolicies = []vehicle.Policy{
		demoPolicy("KASKO555888", "SOGAZ", vehicle.Comprehensive, date(2024, 3, 1), date(2025, 3, 1)),
		demoPolicy("OSAGO333444", "Ingosstrakh", vehicle.Compulsory, date(2023, 3, 1), date(2024, 3, 1)),
	}
	creta.LastChanges = map[string]vehicle.LastChange{
		"engineOil":   {Date: date(2024, 3, 10), Mileage: 44500, Material: "Hyundai 5W-30", Notes: "Dealer service"},
		"atf":         {Date: date(2024, 3, 10), Mileage: 44500, Material: "Hyundai ATF SP-IV", Notes: "Per schedule"},
		"airFilter":   {Date: date(2024, 3, 10), Mileage: 44500, Material: "Hyundai Original", Notes: "Per schedule"},
		"cabinFilter": {Date: date(2024, 3, 10), Mileage: 44500, Material: "Hyundai Original", Notes: "Per schedule"},
		"brakeFluid":  {Date: date(2024, 3, 10), Mileage: 44500, Material: "DOT-4", Notes: "Per schedule"},
	}

	return []vehicle.Vehicle{jeep, volvo, creta}
}

// Demo policies carry no id; they are addressed by number like legacy rows.
func demoPolicy(number, company string, kind vehicle.PolicyType, start, end vehicle.Date) vehicle.Policy {
	return vehicle.Policy{
		Number:    number,
		Company:   company,
		Type:      kind,
		StartDate: start,
		EndDate:   end,
	}
}

func date(year int, month time.Month, day int) vehicle.Date {
	return vehicle.NewDate(year, month, day)
}
