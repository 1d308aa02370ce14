// Package vehicle defines the vehicle record and its insurance policies as
// stored in the vehicles collection.
package vehicle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Interval is the replacement interval of a component. A zero field means
// the component is not tracked by that unit.
type Interval struct {
	Mileage int `json:"mileage"`
	Months  int `json:"months"`
}

// LastChange is the most recent replacement of a component.
type LastChange struct {
	Date     Date   `json:"date,omitzero"`
	Mileage  int    `json:"mileage"`
	Material string `json:"material,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (c *LastChange) UnmarshalJSON(data []byte) error {
	type plain LastChange
	var aux struct {
		plain
		OilBrand string `json:"oilBrand"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = LastChange(aux.plain)
	if c.Material == "" {
		c.Material = aux.OilBrand
	}
	return nil
}

// Vehicle is one tracked vehicle.
type Vehicle struct {
	ID                string                `json:"id,omitempty"`
	Name              string                `json:"name"`
	Year              int                   `json:"year,omitempty"`
	Plate             string                `json:"plate"`
	VIN               string                `json:"vin,omitempty"`
	Color             string                `json:"color,omitempty"`
	CurrentMileage    int                   `json:"currentMileage"`
	LastMileageUpdate Date                  `json:"lastMileageUpdate,omitzero"`
	Intervals         map[string]Interval   `json:"intervals"`
	LastChanges       map[string]LastChange `json:"lastChanges"`
	InsurancePolicies []Policy              `json:"insurancePolicies"`
	TemplateKey       string                `json:"templateKey,omitempty"`
	IsActive          bool                  `json:"isActive"`
	CreatedAt         time.Time             `json:"createdAt,omitzero"`
	UpdatedAt         time.Time             `json:"updatedAt,omitzero"`
	DeletedAt         time.Time             `json:"deletedAt,omitzero"`

	legacyInsurance bool
	activeUnset     bool
}

// UnmarshalJSON accepts rows written by older versions, where ids were
// numbers, policies were stored under "insurance" as a list or a single
// object and isActive could be missing. A missing isActive means active.
func (v *Vehicle) UnmarshalJSON(data []byte) error {
	type plain Vehicle
	var aux struct {
		plain
		ID        json.RawMessage `json:"id"`
		Insurance PolicySet       `json:"insurance"`
		IsActive  *bool           `json:"isActive"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*v = Vehicle(aux.plain)
	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	v.ID = id
	if v.InsurancePolicies == nil && !aux.Insurance.IsAbsent() {
		v.InsurancePolicies = aux.Insurance.Normalize()
	}
	v.legacyInsurance = !aux.Insurance.IsAbsent()
	v.IsActive = aux.IsActive == nil || *aux.IsActive
	v.activeUnset = aux.IsActive == nil
	v.ensureCollections()
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid vehicle id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid vehicle id %s: %w", raw, err)
	}
	return n.String(), nil
}

// NeedsInsuranceMigration reports whether the decoded row still carried the
// legacy insurance field and should be written back in the current shape.
func (v Vehicle) NeedsInsuranceMigration() bool {
	return v.legacyInsurance
}

// NeedsActiveBackfill reports whether the decoded row had no isActive field
// and should be written back with it.
func (v Vehicle) NeedsActiveBackfill() bool {
	return v.activeUnset
}

func (v *Vehicle) ensureCollections() {
	if v.Intervals == nil {
		v.Intervals = map[string]Interval{}
	}
	if v.LastChanges == nil {
		v.LastChanges = map[string]LastChange{}
	}
	if v.InsurancePolicies == nil {
		v.InsurancePolicies = []Policy{}
	}
}

// Normalized returns a copy with nil collections replaced by empty ones.
func (v Vehicle) Normalized() Vehicle {
	out := v.Clone()
	out.ensureCollections()
	return out
}

// Clone returns a deep copy of v.
func (v Vehicle) Clone() Vehicle {
	out := v
	if v.Intervals != nil {
		out.Intervals = maps.Clone(v.Intervals)
	}
	if v.LastChanges != nil {
		out.LastChanges = maps.Clone(v.LastChanges)
	}
	if v.InsurancePolicies != nil {
		out.InsurancePolicies = make([]Policy, len(v.InsurancePolicies))
		for i, p := range v.InsurancePolicies {
			if p.Cost != nil {
				cost := *p.Cost
				p.Cost = &cost
			}
			out.InsurancePolicies[i] = p
		}
	}
	return out
}

// ActivePolicy returns the first policy of v active at now.
func (v Vehicle) ActivePolicy(now time.Time) (Policy, bool) {
	return ActivePolicy(v.InsurancePolicies, now)
}
