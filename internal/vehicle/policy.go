package vehicle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// PolicyType is the kind of insurance policy.
type PolicyType string

const (
	Compulsory    PolicyType = "compulsory"
	Comprehensive PolicyType = "comprehensive"
)

// ParsePolicyType accepts the canonical names and the legacy osago/kasko
// values. Empty defaults to Compulsory.
func ParsePolicyType(s string) (PolicyType, error) {
	switch s {
	case "", "compulsory", "osago":
		return Compulsory, nil
	case "comprehensive", "kasko":
		return Comprehensive, nil
	}
	return "", fmt.Errorf("unknown policy type %q", s)
}

func (t *PolicyType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid policy type %s: %w", data, err)
	}
	parsed, err := ParsePolicyType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Policy is one insurance policy of a vehicle. ID is a unix millisecond
// stamp, zero on legacy policies that were stored without one.
type Policy struct {
	ID        int64      `json:"id,omitempty"`
	Number    string     `json:"number"`
	Company   string     `json:"company"`
	Type      PolicyType `json:"type"`
	StartDate Date       `json:"startDate,omitzero"`
	EndDate   Date       `json:"endDate,omitzero"`
	Cost      *float64   `json:"cost,omitempty"`
	// IsActive is the value of IsActiveAt when the policy was last written.
	IsActive bool `json:"isActive"`
}

// IsActiveAt reports whether the policy end date is after now.
func (p Policy) IsActiveAt(now time.Time) bool {
	return !p.EndDate.IsZero() && p.EndDate.Time().After(now)
}

// Ref is the identifier a caller uses to address the policy.
func (p Policy) Ref() string {
	if p.ID != 0 {
		return strconv.FormatInt(p.ID, 10)
	}
	return p.Number
}

// ActivePolicy returns the first policy, in sequence order, still active at now.
func ActivePolicy(policies []Policy, now time.Time) (Policy, bool) {
	for _, p := range policies {
		if p.IsActiveAt(now) {
			return p, true
		}
	}
	return Policy{}, false
}

// FindPolicy returns the index of the policy addressed by ref. The id is
// matched first, then the number for legacy policies. -1 when absent.
func FindPolicy(policies []Policy, ref string) int {
	if ref == "" {
		return -1
	}
	for i, p := range policies {
		if p.ID != 0 && strconv.FormatInt(p.ID, 10) == ref {
			return i
		}
	}
	for i, p := range policies {
		if p.Number == ref {
			return i
		}
	}
	return -1
}

type policyShape int

const (
	shapeAbsent policyShape = iota
	shapeSingle
	shapeList
)

// PolicySet is insurance data as found at a decode boundary: absent, a
// single legacy object or a list. Normalize resolves it to a list.
type PolicySet struct {
	shape  policyShape
	single Policy
	list   []Policy
}

func PolicyList(policies ...Policy) PolicySet {
	return PolicySet{shape: shapeList, list: append([]Policy{}, policies...)}
}

func SinglePolicy(p Policy) PolicySet {
	return PolicySet{shape: shapeSingle, single: p}
}

func (s PolicySet) IsAbsent() bool { return s.shape == shapeAbsent }

// IsLegacy reports whether the set came from a single bare object.
func (s PolicySet) IsLegacy() bool { return s.shape == shapeSingle }

// Normalize returns the policies as a list. A single object carrying neither
// a number nor a company is an empty placeholder and yields no policies.
func (s PolicySet) Normalize() []Policy {
	switch s.shape {
	case shapeSingle:
		if s.single.Number == "" && s.single.Company == "" {
			return []Policy{}
		}
		return []Policy{s.single}
	case shapeList:
		return append([]Policy{}, s.list...)
	}
	return []Policy{}
}

func (s PolicySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Normalize())
}

func (s *PolicySet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*s = PolicySet{}
	case trimmed[0] == '[':
		var list []Policy
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("invalid insurance list: %w", err)
		}
		*s = PolicyList(list...)
	case trimmed[0] == '{':
		var p Policy
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return fmt.Errorf("invalid insurance object: %w", err)
		}
		*s = SinglePolicy(p)
	default:
		return fmt.Errorf("invalid insurance value %s", trimmed)
	}
	return nil
}
