// Package selector implements 1G1R grouping: given a set of ROM
// candidates sharing a logical game, deterministically pick the one
// preferred variant. Nothing in the available dependency set does
// region/revision/verification scoring, and romba has no concept of
// game variants at all, so this package is new code built directly
// from the scoring formula rather than adapted from an existing file.
package selector

import (
	"regexp"
	"sort"
	"strings"
)

// Candidate is one ROM variant competing for selection within a group.
type Candidate struct {
	FilePath   string
	Name       string
	CleanName  string
	Region     string
	Languages  string
	Parent     string
	IsVerified bool
	Revision   int
	Categories []string
	Size       uint64
	Crc32      string
}

// Options tunes the scoring formula. Zero value scores everything 0
// except the exclude_categories/exclude_unlicensed penalties, which
// apply unconditionally once the lists/flag are set.
type Options struct {
	RegionPriority       []string
	LanguagePriority     []string
	ExcludeCategories    []string
	PreferVerified       bool
	PreferParent         bool
	PreferLatestRevision bool
	ExcludeUnlicensed    bool
}

// Group is every candidate sharing one grouping key, with the selected
// winner and the rest ranked as alternatives.
type Group struct {
	Key             string
	Selected        Candidate
	Alternatives    []Candidate
	SelectionReason string
}

// cleanMarkers strips the bracket/paren tags this package itself
// recognizes as region/revision/verification noise, e.g.
// "Super Mario Bros. (USA) [!]" -> "Super Mario Bros.".
var cleanMarkers = regexp.MustCompile(`\s*[\(\[][^\(\)\[\]]*[\)\]]\s*`)

// CleanName strips parenthesized/bracketed tags from a filename-derived
// game name, leaving the bare title used as a grouping fallback when no
// parent is declared.
func CleanName(name string) string {
	return strings.TrimSpace(cleanMarkers.ReplaceAllString(name, " "))
}

func groupKey(c Candidate) string {
	if c.Parent != "" {
		return strings.ToLower(c.Parent)
	}
	clean := c.CleanName
	if clean == "" {
		clean = CleanName(c.Name)
	}
	return strings.ToLower(clean)
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if strings.EqualFold(item, v) {
			return i
		}
	}
	return -1
}

func containsCategory(categories, excluded []string) bool {
	for _, cat := range categories {
		for _, ex := range excluded {
			if strings.EqualFold(cat, ex) {
				return true
			}
		}
	}
	return false
}

// Score computes a candidate's 1G1R score. Deliberately
// exported: organizer and callers displaying "why was this picked" can
// recompute scores for a SelectionReason without re-running GroupAndSelect.
func Score(c Candidate, o Options) int {
	score := 0

	if containsCategory(c.Categories, o.ExcludeCategories) {
		score -= 1000
	}

	if idx := indexOf(o.RegionPriority, c.Region); idx >= 0 {
		score += (len(o.RegionPriority) - idx) * 10
	}
	if idx := indexOf(o.LanguagePriority, c.Languages); idx >= 0 {
		score += (len(o.LanguagePriority) - idx) * 5
	}
	if o.PreferVerified && c.IsVerified {
		score += 25
	}
	if o.PreferParent && c.Parent == "" {
		score += 15
	}
	if o.PreferLatestRevision {
		score += c.Revision * 2
	}
	if o.ExcludeUnlicensed && containsCategory(c.Categories, []string{"Unlicensed"}) {
		score -= 50
	}

	return score
}

// candidateScore pairs a Candidate with its computed score so sorting
// doesn't recompute Score per comparison.
type candidateScore struct {
	c     Candidate
	score int
}

// GroupAndSelect partitions candidates by grouping key (parent, else
// clean_name) and picks one winner per group. Determinism requirement:
// identical input+options always yields identical output, including
// alternatives ordering, regardless of input permutation, so every
// tie-break below must be total (never leave equal candidates in their
// input-relative order).
func GroupAndSelect(candidates []Candidate, o Options) []Group {
	groups := make(map[string][]candidateScore)
	var order []string
	for _, c := range candidates {
		k := groupKey(c)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], candidateScore{c: c, score: Score(c, o)})
	}
	sort.Strings(order)

	out := make([]Group, 0, len(order))
	for _, k := range order {
		members := groups[k]
		sort.SliceStable(members, func(i, j int) bool {
			return less(members[i], members[j], o)
		})
		out = append(out, Group{
			Key:             k,
			Selected:        members[0].c,
			Alternatives:    extractRest(members),
			SelectionReason: reason(members[0], o),
		})
	}
	return out
}

// less orders candidateScore a before b (a should sort first): higher
// score wins; tied scores break by parent-presence (if PreferParent),
// then highest revision, then longest name, then name, then file path
// — the last two exist purely to make the ordering total so identical
// candidate sets always compare equal regardless of input order.
func less(a, b candidateScore, o Options) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if o.PreferParent {
		aIsParent := a.c.Parent == ""
		bIsParent := b.c.Parent == ""
		if aIsParent != bIsParent {
			return aIsParent
		}
	}
	if a.c.Revision != b.c.Revision {
		return a.c.Revision > b.c.Revision
	}
	if len(a.c.Name) != len(b.c.Name) {
		return len(a.c.Name) > len(b.c.Name)
	}
	if a.c.Name != b.c.Name {
		return a.c.Name < b.c.Name
	}
	return a.c.FilePath < b.c.FilePath
}

func extractRest(members []candidateScore) []Candidate {
	if len(members) <= 1 {
		return nil
	}
	rest := make([]Candidate, 0, len(members)-1)
	for _, m := range members[1:] {
		rest = append(rest, m.c)
	}
	return rest
}

func reason(winner candidateScore, o Options) string {
	var parts []string
	if indexOf(o.RegionPriority, winner.c.Region) >= 0 {
		parts = append(parts, "region="+winner.c.Region)
	}
	if o.PreferVerified && winner.c.IsVerified {
		parts = append(parts, "verified")
	}
	if o.PreferParent && winner.c.Parent == "" {
		parts = append(parts, "is_parent")
	}
	if o.PreferLatestRevision && winner.c.Revision > 0 {
		parts = append(parts, "latest_revision")
	}
	if len(parts) == 0 {
		return "highest_score"
	}
	return strings.Join(parts, ",")
}
