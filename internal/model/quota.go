package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// QuotaSpec is the data/time allowance granted to a session.
type QuotaSpec struct {
	DataQuotaMB      int `json:"dataQuotaMB"`
	TimeQuotaMinutes int `json:"timeQuotaMinutes"`
}

// CustomQuotas is a nullable QuotaSpec column. It is present iff the owning
// access code has level custom; encoding to and from the JSON column happens
// here, at the storage boundary, so business logic only ever sees the typed
// spec.
type CustomQuotas struct {
	QuotaSpec
	Valid bool
}

// NewCustomQuotas wraps a spec as a present custom quota value.
func NewCustomQuotas(spec QuotaSpec) CustomQuotas {
	return CustomQuotas{QuotaSpec: spec, Valid: true}
}

// Ptr returns the spec when present, nil otherwise.
func (c CustomQuotas) Ptr() *QuotaSpec {
	if !c.Valid {
		return nil
	}
	spec := c.QuotaSpec
	return &spec
}

func (c CustomQuotas) Value() (driver.Value, error) {
	if !c.Valid {
		return nil, nil
	}
	return json.Marshal(c.QuotaSpec)
}

func (c *CustomQuotas) Scan(src any) error {
	if src == nil {
		*c = CustomQuotas{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan custom quotas: unsupported type %T", src)
	}
	if err := json.Unmarshal(data, &c.QuotaSpec); err != nil {
		return fmt.Errorf("scan custom quotas: %w", err)
	}
	c.Valid = true
	return nil
}

func (c CustomQuotas) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.QuotaSpec)
}

func (c *CustomQuotas) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = CustomQuotas{}
		return nil
	}
	if err := json.Unmarshal(data, &c.QuotaSpec); err != nil {
		return err
	}
	c.Valid = true
	return nil
}

// WarningSet records which usage thresholds have already fired for a
// session. Stored as a JSON array of percentages, kept sorted.
type WarningSet []int

func (w WarningSet) Has(threshold int) bool {
	for _, t := range w {
		if t == threshold {
			return true
		}
	}
	return false
}

// Add returns the set with threshold included. Adding an existing
// threshold is a no-op.
func (w WarningSet) Add(threshold int) WarningSet {
	if w.Has(threshold) {
		return w
	}
	out := append(append(WarningSet{}, w...), threshold)
	sort.Ints(out)
	return out
}

func (w WarningSet) Value() (driver.Value, error) {
	if w == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(w))
}

func (w *WarningSet) Scan(src any) error {
	if src == nil {
		*w = WarningSet{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan warning set: unsupported type %T", src)
	}
	var thresholds []int
	if err := json.Unmarshal(data, &thresholds); err != nil {
		return fmt.Errorf("scan warning set: %w", err)
	}
	sort.Ints(thresholds)
	*w = thresholds
	return nil
}
