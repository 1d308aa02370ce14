package database

import "fmt"

// Collection names a record table.
type Collection string

const (
	Vehicles    Collection = "vehicles"
	Maintenance Collection = "maintenance"
	Reminders   Collection = "reminders"
	Insurances  Collection = "insurances"
)

// indexes maps each collection to its named indexes and the JSON path each
// one extracts. Paths must match the expressions in db/migrations.
var indexes = map[Collection]map[string]string{
	Vehicles: {
		"name":     "$.name",
		"plate":    "$.plate",
		"isActive": "$.isActive",
	},
	Maintenance: {
		"vehicleId": "$.vehicleId",
		"date":      "$.date",
		"type":      "$.type",
	},
	Reminders: {
		"vehicleId": "$.vehicleId",
		"dueDate":   "$.dueDate",
		"status":    "$.status",
	},
	Insurances: {
		"vehicleId": "$.vehicleId",
		"type":      "$.type",
		"endDate":   "$.endDate",
	},
}

// Collections returns every collection known to the schema.
func Collections() []Collection {
	return []Collection{Vehicles, Maintenance, Reminders, Insurances}
}

func (c Collection) validate() error {
	if _, ok := indexes[c]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
	return nil
}

func (c Collection) indexPath(name string) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}
	path, ok := indexes[c][name]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownIndex, c, name)
	}
	return path, nil
}

// KeyRange bounds an index scan. A nil bound is unbounded.
type KeyRange struct {
	Lower     any
	Upper     any
	LowerOpen bool
	UpperOpen bool
}

// Only matches index values equal to v.
func Only(v any) *KeyRange {
	return &KeyRange{Lower: v, Upper: v}
}

// LowerBound matches values greater than v, or equal when open is false.
func LowerBound(v any, open bool) *KeyRange {
	return &KeyRange{Lower: v, LowerOpen: open}
}

// UpperBound matches values less than v, or equal when open is false.
func UpperBound(v any, open bool) *KeyRange {
	return &KeyRange{Upper: v, UpperOpen: open}
}

// Bound matches values between lower and upper.
func Bound(lower, upper any, lowerOpen, upperOpen bool) *KeyRange {
	return &KeyRange{Lower: lower, Upper: upper, LowerOpen: lowerOpen, UpperOpen: upperOpen}
}

// sqlValue converts booleans to the integers json_extract yields for them.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}
