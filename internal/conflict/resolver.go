package conflict

import (
	"fmt"
	"sort"
	"strings"
)

// Resolution is the caller's decision for one conflict.
type Resolution string

const (
	Keep   Resolution = "keep"   // Keep the current value (or retain a removed entity)
	Accept Resolution = "accept" // Take the incoming value (or include an added entity, or confirm a removal)
	Skip   Resolution = "skip"   // Leave as is; same effect as Keep
)

// ParseResolution validates a resolution string.
func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(strings.ToLower(strings.TrimSpace(s))); r {
	case Keep, Accept, Skip:
		return r, nil
	}
	return "", fmt.Errorf("invalid resolution: %q (valid: keep, accept, skip)", s)
}

// Resolutions maps conflict ids to decisions. A missing id resolves as Keep for
// modified and removed conflicts and as Skip for added ones, so a partially
// filled map still yields a complete merge.
type Resolutions map[string]Resolution

// Accepts reports whether the conflict with the given id resolves to Accept.
func (r Resolutions) Accepts(id string) bool {
	return r[id] == Accept
}

// For returns the effective decision for c, applying the default when unset.
func (r Resolutions) For(c Conflict) Resolution {
	if res, ok := r[c.ConflictID()]; ok {
		return res
	}
	if c.Change() == Added {
		return Skip
	}
	return Keep
}

// UnknownIDs returns the ids in r that name no conflict in a, sorted.
func (r Resolutions) UnknownIDs(a *Analysis) []string {
	known := make(map[string]bool)
	for _, c := range a.Conflicts() {
		known[c.ConflictID()] = true
	}
	var unknown []string
	for id := range r {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// AcceptAllIncoming resolves every conflict in a to Accept.
func AcceptAllIncoming(a *Analysis) Resolutions {
	return resolveAll(a, Accept)
}

// KeepAllCurrent resolves every conflict in a to Keep.
func KeepAllCurrent(a *Analysis) Resolutions {
	return resolveAll(a, Keep)
}

func resolveAll(a *Analysis, res Resolution) Resolutions {
	out := make(Resolutions)
	for _, c := range a.Conflicts() {
		out[c.ConflictID()] = res
	}
	return out
}

// Summary counts the effective decisions for every conflict in a.
type Summary struct {
	Accepted int `json:"accepted"`
	Kept     int `json:"kept"`
	Skipped  int `json:"skipped"`
}

// Summarize counts how r resolves each conflict in a, defaults included.
func (r Resolutions) Summarize(a *Analysis) Summary {
	var s Summary
	for _, c := range a.Conflicts() {
		switch r.For(c) {
		case Accept:
			s.Accepted++
		case Skip:
			s.Skipped++
		default:
			s.Kept++
		}
	}
	return s
}
