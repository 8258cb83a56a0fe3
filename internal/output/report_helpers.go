package output

import (
	"strings"

	"mailstack/internal/probe"
)

// Categories
const (
	CategoryPlatform     = "Platform"
	CategoryResources    = "Resources"
	CategoryNetwork      = "Network"
	CategoryServices     = "Services"
	CategoryVerification = "Service verification"
	CategoryOther        = "Other"
)

var categoryOrder = []string{
	CategoryPlatform,
	CategoryResources,
	CategoryNetwork,
	CategoryServices,
	CategoryVerification,
	CategoryOther,
}

var checkCategories = map[string]string{
	"architecture":   CategoryPlatform,
	"os-release":     CategoryPlatform,
	"virtualization": CategoryPlatform,

	"cpu":    CategoryResources,
	"memory": CategoryResources,
	"swap":   CategoryResources,
	"disk":   CategoryResources,

	"firewall": CategoryNetwork,
	"mtu":      CategoryNetwork,

	"time-sync":         CategoryServices,
	"container-runtime": CategoryServices,

	"mail-queue":    CategoryVerification,
	"smtp-greeting": CategoryVerification,
}

func getCategory(checkID string) string {
	if c, ok := checkCategories[checkID]; ok {
		return c
	}
	switch {
	case strings.HasPrefix(checkID, "port-"):
		return CategoryNetwork
	case strings.HasPrefix(checkID, "service-"), strings.HasPrefix(checkID, "listen-"):
		return CategoryVerification
	}
	return CategoryOther
}

type categoryStats struct {
	Name string
	Pass int
	Warn int
	Fail int
}

func computeCategoryStats(results []probe.Result) []*categoryStats {
	byName := make(map[string]*categoryStats)
	for _, r := range results {
		name := getCategory(r.CheckID)
		cs, ok := byName[name]
		if !ok {
			cs = &categoryStats{Name: name}
			byName[name] = cs
		}
		switch r.Status {
		case probe.StatusPass:
			cs.Pass++
		case probe.StatusWarn:
			cs.Warn++
		case probe.StatusFail:
			cs.Fail++
		}
	}

	var out []*categoryStats
	for _, name := range categoryOrder {
		if cs, ok := byName[name]; ok {
			out = append(out, cs)
		}
	}
	return out
}

// escapeCell makes s safe inside a Markdown table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "<br>")
}
