package conflict

import (
	"strings"
	"time"

	"github.com/matsen/cvmerge/internal/cv"
	"github.com/matsen/cvmerge/internal/similarity"
)

// DefaultMatchThreshold is the minimum score for two roles to be considered the same.
const DefaultMatchThreshold = 0.5

// Role match weights (higher = stronger evidence)
const (
	weightDateOverlap = 3.0
	weightTitle       = 2.0
	weightCompany     = 2.0
	weightExactDates  = 1.0 // Split evenly between start and end

	totalRoleWeight = weightDateOverlap + weightTitle + weightCompany + weightExactDates
)

// How a role pair was matched
const (
	matchedByID    = "id"
	matchedByScore = "score"
)

// MatchScore estimates how likely cur and inc describe the same role, in [0, 1].
// Roles with the same id always score 1.
func MatchScore(cur, inc cv.Role) float64 {
	return matchScoreAt(time.Now(), cur, inc)
}

func matchScoreAt(now time.Time, cur, inc cv.Role) float64 {
	if cur.ID == inc.ID {
		return 1.0
	}

	score := 0.0
	if similarity.DateRangesOverlapAt(now, cur.Start, cur.End, inc.Start, inc.End) {
		score += weightDateOverlap
	}
	score += weightTitle * similarity.TokenSimilarity(cur.Title, inc.Title)
	score += weightCompany * similarity.TokenSimilarity(cur.Company, inc.Company)

	if cur.Start != nil && cv.DatesEqual(cur.Start, inc.Start) {
		score += weightExactDates / 2
	}
	if (cur.IsCurrent && inc.IsCurrent) || (cur.End != nil && cv.DatesEqual(cur.End, inc.End)) {
		score += weightExactDates / 2
	}

	return score / totalRoleWeight
}

// FindBestMatch returns the index and score of the highest-scoring candidate
// with a score of at least threshold. Ties keep the earliest candidate.
func FindBestMatch(role cv.Role, candidates []cv.Role, threshold float64) (int, float64, bool) {
	return findBestMatchAt(time.Now(), role, candidates, threshold, nil)
}

// findBestMatchAt skips candidates marked in excluded (which may be nil).
func findBestMatchAt(now time.Time, role cv.Role, candidates []cv.Role, threshold float64, excluded []bool) (int, float64, bool) {
	bestIdx := -1
	bestScore := 0.0
	for i, cand := range candidates {
		if excluded != nil && excluded[i] {
			continue
		}
		score := matchScoreAt(now, role, cand)
		if score >= threshold && (bestIdx < 0 || score > bestScore) {
			bestIdx = i
			bestScore = score
		}
	}
	if bestIdx < 0 {
		return -1, 0, false
	}
	return bestIdx, bestScore, true
}

// MatchOptions controls role matching.
type MatchOptions struct {
	Threshold float64   // Minimum score; DefaultMatchThreshold if zero, so 0 itself cannot be requested
	Now       time.Time // Reference time for ongoing roles; time.Now() if zero

	// SharedCandidates scans every current role against the full incoming pool,
	// so one incoming role may be matched by several current roles. This
	// reproduces the behavior of earlier releases. By default matching is
	// exclusive and yields a 1:1 correspondence.
	SharedCandidates bool
}

func (o MatchOptions) withDefaults() MatchOptions {
	if o.Threshold == 0 {
		o.Threshold = DefaultMatchThreshold
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// RoleMatch pairs a current role with the incoming role judged to be the same.
type RoleMatch struct {
	Current   cv.Role
	Incoming  cv.Role
	Score     float64
	MatchedBy string // "id" or "score"
}

// RoleMatchResult contains the result of matching two role collections.
type RoleMatchResult struct {
	// Pairs, in current-collection order
	Matches []RoleMatch

	// Roles only in current (no match in incoming)
	CurrentOnly []cv.Role

	// Roles only in incoming (no current role matched them)
	IncomingOnly []cv.Role
}

// MatchRoles pairs roles across two unordered collections.
//
// In exclusive mode (the default) roles sharing an id are paired first. Each
// remaining current role, in order, then takes its best-scoring incoming role
// among those not yet taken.
func MatchRoles(current, incoming []cv.Role, opts MatchOptions) RoleMatchResult {
	opts = opts.withDefaults()
	if opts.SharedCandidates {
		return matchRolesShared(current, incoming, opts)
	}

	matchOf := make([]int, len(current)) // index into incoming, -1 if none
	scoreOf := make([]float64, len(current))
	byOf := make([]string, len(current))
	taken := make([]bool, len(incoming))

	// First pass: identical ids
	incomingByID := make(map[string]int)
	for j, inc := range incoming {
		if _, ok := incomingByID[inc.ID]; !ok {
			incomingByID[inc.ID] = j
		}
	}
	for i, cur := range current {
		matchOf[i] = -1
		if j, ok := incomingByID[cur.ID]; ok && !taken[j] {
			matchOf[i] = j
			scoreOf[i] = 1.0
			byOf[i] = matchedByID
			taken[j] = true
		}
	}

	// Second pass: heuristic scoring over what is left
	for i, cur := range current {
		if matchOf[i] >= 0 {
			continue
		}
		if j, score, ok := findBestMatchAt(opts.Now, cur, incoming, opts.Threshold, taken); ok {
			matchOf[i] = j
			scoreOf[i] = score
			byOf[i] = matchedByScore
			taken[j] = true
		}
	}

	var result RoleMatchResult
	for i, cur := range current {
		if matchOf[i] < 0 {
			result.CurrentOnly = append(result.CurrentOnly, cur)
			continue
		}
		result.Matches = append(result.Matches, RoleMatch{
			Current:   cur,
			Incoming:  incoming[matchOf[i]],
			Score:     scoreOf[i],
			MatchedBy: byOf[i],
		})
	}
	for j, inc := range incoming {
		if !taken[j] {
			result.IncomingOnly = append(result.IncomingOnly, inc)
		}
	}
	return result
}

// matchRolesShared scans each current role against the whole incoming pool.
func matchRolesShared(current, incoming []cv.Role, opts MatchOptions) RoleMatchResult {
	var result RoleMatchResult
	taken := make([]bool, len(incoming))

	for _, cur := range current {
		j, score, ok := findBestMatchAt(opts.Now, cur, incoming, opts.Threshold, nil)
		if !ok {
			result.CurrentOnly = append(result.CurrentOnly, cur)
			continue
		}
		by := matchedByScore
		if cur.ID == incoming[j].ID {
			by = matchedByID
		}
		result.Matches = append(result.Matches, RoleMatch{
			Current:   cur,
			Incoming:  incoming[j],
			Score:     score,
			MatchedBy: by,
		})
		taken[j] = true
	}

	for j, inc := range incoming {
		if !taken[j] {
			result.IncomingOnly = append(result.IncomingOnly, inc)
		}
	}
	return result
}

// SkillMatch pairs skills with the same name.
type SkillMatch struct {
	Current  cv.Skill
	Incoming cv.Skill
}

// SkillMatchResult contains the result of matching two skill collections.
type SkillMatchResult struct {
	Matches      []SkillMatch
	CurrentOnly  []cv.Skill
	IncomingOnly []cv.Skill
}

// MatchSkills pairs skills by case-insensitive name. Each name matches at most
// once; later duplicates on either side are left unmatched.
func MatchSkills(current, incoming []cv.Skill) SkillMatchResult {
	var result SkillMatchResult

	incomingByName := make(map[string]int)
	for j, inc := range incoming {
		key := skillKey(inc.Name)
		if _, ok := incomingByName[key]; !ok {
			incomingByName[key] = j
		}
	}

	taken := make([]bool, len(incoming))
	for _, cur := range current {
		j, ok := incomingByName[skillKey(cur.Name)]
		if !ok || taken[j] {
			result.CurrentOnly = append(result.CurrentOnly, cur)
			continue
		}
		taken[j] = true
		result.Matches = append(result.Matches, SkillMatch{Current: cur, Incoming: incoming[j]})
	}

	for j, inc := range incoming {
		if !taken[j] {
			result.IncomingOnly = append(result.IncomingOnly, inc)
		}
	}
	return result
}

func skillKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
