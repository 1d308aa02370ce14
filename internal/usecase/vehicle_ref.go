package usecase

import (
	"fmt"
	"strings"

	"github.com/cartracker/cartracker/internal/services"
	"github.com/cartracker/cartracker/internal/vehicle"
)

// ResolveVehicle finds the vehicle a CLI or tool argument refers to. The
// reference is matched against ids first, then plates and names without
// regard to case. A plate or name shared by several vehicles is rejected.
func ResolveVehicle(vehicles []vehicle.Vehicle, ref string) (vehicle.Vehicle, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return vehicle.Vehicle{}, fmt.Errorf("%w: vehicle reference is empty", services.ErrValidation)
	}

	for _, v := range vehicles {
		if v.ID == ref {
			return v, nil
		}
	}

	for _, field := range []func(vehicle.Vehicle) string{
		func(v vehicle.Vehicle) string { return v.Plate },
		func(v vehicle.Vehicle) string { return v.Name },
	} {
		var matches []vehicle.Vehicle
		for _, v := range vehicles {
			if strings.EqualFold(field(v), ref) {
				matches = append(matches, v)
			}
		}
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return vehicle.Vehicle{}, fmt.Errorf("%w: %q matches %d vehicles, use the id", services.ErrValidation, ref, len(matches))
		}
	}

	return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", ref, services.ErrNotFound)
}
