package model

import (
	"encoding/json"
	"fmt"
)

// Plan describes the resource sizing of a purchasable instance tier.
type Plan struct {
	Name     string `json:"name"`
	CPUs     int    `json:"cpus"`
	MemoryMB int    `json:"memory_mb"`
	DiskGB   int    `json:"disk_gb"`
}

var plans = map[string]Plan{
	"basic":       {Name: "basic", CPUs: 1, MemoryMB: 1024, DiskGB: 25},
	"standard":    {Name: "standard", CPUs: 2, MemoryMB: 4096, DiskGB: 80},
	"performance": {Name: "performance", CPUs: 4, MemoryMB: 8192, DiskGB: 160},
}

// PlanByName returns the plan for the given tier name.
func PlanByName(name string) (Plan, error) {
	p, ok := plans[name]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", name)
	}
	return p, nil
}

// Snapshot serializes the plan as the spec_snapshot stored on the instance
// row at purchase time, so later plan changes never rewrite history.
func (p Plan) Snapshot() json.RawMessage {
	b, _ := json.Marshal(p)
	return b
}
