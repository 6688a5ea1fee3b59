// Package similarity provides the pure comparison functions used to match CV
// entities across snapshots.
package similarity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matsen/cvmerge/internal/cv"
)

// minTokenLen is the shortest token (in runes) that counts toward similarity.
// Shorter words ("at", "of", "&") carry no identity.
const minTokenLen = 3

// TokenSimilarity returns the Jaccard similarity of the lower-cased,
// whitespace-separated tokens of a and b. An empty string stands for a missing
// value: two missing values are equal (1), one missing value is not (0). Two
// present values with no qualifying tokens are also treated as equal.
func TokenSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	ta := tokens(a)
	tb := tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func tokens(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		if utf8.RuneCountInString(f) >= minTokenLen {
			set[f] = true
		}
	}
	return set
}

// DateRangesOverlap reports whether two date ranges intersect. A range without
// a start never overlaps; a range without an end is ongoing until now.
func DateRangesOverlap(start1, end1, start2, end2 *cv.Date) bool {
	return DateRangesOverlapAt(time.Now(), start1, end1, start2, end2)
}

// DateRangesOverlapAt is DateRangesOverlap with an explicit "now".
func DateRangesOverlapAt(now time.Time, start1, end1, start2, end2 *cv.Date) bool {
	if start1 == nil || start2 == nil {
		return false
	}
	effEnd1 := effectiveEnd(end1, now)
	effEnd2 := effectiveEnd(end2, now)
	return !start1.After(effEnd2) && !start2.After(effEnd1)
}

func effectiveEnd(end *cv.Date, now time.Time) time.Time {
	if end == nil {
		return now
	}
	return end.Time
}

// TextsDiffer reports whether two bilingual values differ in either locale,
// comparing trimmed values. A missing value reads as empty.
func TextsDiffer(a, b cv.Bilingual) bool {
	for _, l := range cv.Locales {
		if a.Trimmed(l) != b.Trimmed(l) {
			return true
		}
	}
	return false
}

// HasContent reports whether either locale holds non-blank text.
func HasContent(a cv.Bilingual) bool {
	for _, l := range cv.Locales {
		if a.Trimmed(l) != "" {
			return true
		}
	}
	return false
}
