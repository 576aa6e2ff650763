// Package status derives a session's lifecycle label from its status catalog
// and override fields. Resolution is pure: the caller supplies the clock.
package status

import (
	"sort"
	"strings"
	"time"
)

// Labels not driven by the catalog itself.
const (
	Scheduled = "scheduled"
	Started   = "started"
	Completed = "completed"
	Missed    = "missed"
)

// Threshold is one catalog entry: the session earns the normalized Name once
// Minutes have elapsed since the scheduled start.
type Threshold struct {
	Name    string
	Minutes int
}

// Catalog is a session type's threshold list in declaration order.
type Catalog []Threshold

// Snapshot bundles the session fields that drive resolution. The catalog is
// copied by value; Resolve never mutates it.
type Snapshot struct {
	ScheduledStart time.Time
	StartedAt      *time.Time
	Ended          bool
	Catalog        Catalog
}

// Normalize converts a catalog label to its wire form: lower-cased with
// spaces replaced by hyphens ("In Progress" -> "in-progress").
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// Resolve returns the session's authoritative status label at now.
//
// Thresholds are walked in ascending offset order; entries with equal offsets
// keep declaration order, so the later-declared one wins when both have
// fired. The walk stops at the first threshold still in the future. Overrides
// then apply in precedence order: an explicitly ended session is "completed"
// no matter what, an explicitly started one is "started" unless the catalog
// already said so, and a session past its scheduled start with no threshold
// fired is presumed "missed".
func Resolve(s Snapshot, now time.Time) string {
	sorted := make(Catalog, len(s.Catalog))
	copy(sorted, s.Catalog)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Minutes < sorted[j].Minutes
	})

	label := Scheduled
	for _, t := range sorted {
		activation := s.ScheduledStart.Add(time.Duration(t.Minutes) * time.Minute)
		if now.Before(activation) {
			break
		}
		label = Normalize(t.Name)
	}

	if s.Ended {
		return Completed
	}
	if s.StartedAt != nil && label != Started {
		return Started
	}
	if now.After(s.ScheduledStart) && label == Scheduled {
		return Missed
	}

	return label
}
