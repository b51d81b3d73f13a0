// Package selector picks the authoritative copy inside each duplicate
// group. Selection only marks the winner; non-representative members are
// never touched in their source locations.
package selector

import (
	"photocons/logging"
	"photocons/types"
)

// FormatRanker maps a format to its priority index, lower is better.
type FormatRanker interface {
	FormatRank(format string) int
}

// Select marks the representative of every group. The choice is
// deterministic for a given input: ordered tie-breaks on pixel count,
// timestamp confidence, configured format rank, and finally the
// lexicographically smallest source path.
func Select(records []types.PhotoRecord, groups []types.DuplicateGroup, ranker FormatRanker) {
	for gi := range groups {
		best := -1
		for _, member := range groups[gi].Members {
			if best == -1 || better(&records[member], &records[best], ranker) {
				best = member
			}
		}
		groups[gi].Representative = best

		if best >= 0 && len(groups[gi].Members) > 1 {
			logging.DebugLog("Group %d representative: %s (%d members)",
				groups[gi].ID, records[best].SourcePath, len(groups[gi].Members))
		}
	}
}

// better reports whether candidate a beats the current best b.
func better(a, b *types.PhotoRecord, ranker FormatRanker) bool {
	// 1. Highest resolution wins.
	if a.Pixels() != b.Pixels() {
		return a.Pixels() > b.Pixels()
	}

	// 2. Richer metadata: a higher timestamp confidence tier wins.
	if a.TimeConfidence != b.TimeConfidence {
		return a.TimeConfidence > b.TimeConfidence
	}

	// 3. Preferred format rank.
	ra, rb := ranker.FormatRank(a.Format), ranker.FormatRank(b.Format)
	if ra != rb {
		return ra < rb
	}

	// 4. Lexicographically smallest source path, so repeated runs on
	// identical input pick the same file.
	return a.SourcePath < b.SourcePath
}
