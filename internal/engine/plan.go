package engine

import (
	"sort"

	"mailstack/internal/data"
	"mailstack/internal/probe"
)

// Plan is the set of checks to evaluate and the union of the host facts they
// declare.
type Plan struct {
	Checks       []probe.Check
	Dependencies map[data.DependencyKey]struct{}
}

func NewPlan(checks []probe.Check) *Plan {
	p := &Plan{
		Checks:       checks,
		Dependencies: make(map[data.DependencyKey]struct{}),
	}
	for _, c := range checks {
		for _, d := range c.Dependencies() {
			p.Dependencies[d] = struct{}{}
		}
	}
	return p
}

// SortedDependencies returns the planned fact keys sorted by priority (P0 first).
func (p *Plan) SortedDependencies() []data.DependencyKey {
	keys := make([]data.DependencyKey, 0, len(p.Dependencies))
	for k := range p.Dependencies {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		p1 := data.Priority(keys[i])
		p2 := data.Priority(keys[j])
		if p1 != p2 {
			return p1 < p2
		}
		return keys[i] < keys[j] // Stable sort for same priority
	})

	return keys
}
