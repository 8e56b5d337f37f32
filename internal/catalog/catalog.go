// Package catalog loads tracked-object element sets from the local TLE
// store and normalizes their classification for the screening pipeline.
package catalog

import (
	"strings"
	"time"

	"github.com/AntAci/AstraGuard/internal/orbit"
)

// Class is the coarse object classification used by the screening
// inclusion filter and the uncertainty model.
type Class string

const (
	ClassActive Class = "ACTIVE"
	ClassDebris Class = "DEBRIS"
)

// ClassifyGroup maps a catalog source group name to a Class. Any group
// naming debris (COSMOS-2251-DEBRIS, FENGYUN-1C-DEBRIS, ...) is debris;
// everything else is treated as an active payload.
func ClassifyGroup(sourceGroup string) Class {
	if strings.Contains(strings.ToUpper(sourceGroup), "DEBRIS") {
		return ClassDebris
	}
	return ClassActive
}

// Object is one tracked object: identity, classification, and its orbital
// element set. Immutable once loaded for a run.
type Object struct {
	NoradID     int
	Name        string
	SourceGroup string
	Class       Class
	Epoch       time.Time
	Elements    orbit.Elements
	FetchedAt   time.Time
}

// NormalizeGroups upper-cases, trims, and dedupes group names while
// preserving first-seen order.
func NormalizeGroups(groups []string) []string {
	out := make([]string, 0, len(groups))
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		v := strings.ToUpper(strings.TrimSpace(g))
		if v == "" || seen[v] {
			continue
		}
		out = append(out, v)
		seen[v] = true
	}
	return out
}
