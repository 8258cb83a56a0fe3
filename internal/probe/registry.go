package probe

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Check)
	mu       sync.RWMutex
)

func Register(c Check) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[c.ID()]; exists {
		panic(fmt.Sprintf("check %s already registered", c.ID()))
	}
	registry[c.ID()] = c
}

func List() []Check {
	mu.RLock()
	defer mu.RUnlock()
	return listLocked()
}

func listLocked() []Check {
	checks := make([]Check, 0, len(registry))
	for _, c := range registry {
		checks = append(checks, c)
	}
	sort.Slice(checks, func(i, j int) bool {
		return checks[i].ID() < checks[j].ID()
	})
	return checks
}

func Get(id string) (Check, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[id]
	return c, ok
}

// Resolve turns a comma-separated selector into checks. An empty selector
// selects everything. A trailing "*" matches by prefix ("port-*").
func Resolve(selector string) ([]Check, error) {
	mu.RLock()
	defer mu.RUnlock()

	if strings.TrimSpace(selector) == "" {
		return listLocked(), nil
	}

	seen := make(map[string]bool)
	var selected []Check
	for _, id := range strings.Split(selector, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(id, "*"); ok {
			matched := false
			for _, c := range listLocked() {
				if strings.HasPrefix(c.ID(), prefix) {
					matched = true
					if !seen[c.ID()] {
						seen[c.ID()] = true
						selected = append(selected, c)
					}
				}
			}
			if !matched {
				return nil, fmt.Errorf("no check matches: %s", id)
			}
			continue
		}
		c, ok := registry[id]
		if !ok {
			return nil, fmt.Errorf("check not found: %s", id)
		}
		if !seen[id] {
			seen[id] = true
			selected = append(selected, c)
		}
	}
	return selected, nil
}
