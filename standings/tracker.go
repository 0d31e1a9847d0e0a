// Package standings maintains per-player win/loss records inside a Swiss
// bracket and produces the ranked orderings used for advancement and pairing.
package standings

import (
	"sort"

	"github.com/openbracket/progression-engine/models"
)

// RecordResult applies one finished match to a standing.
func RecordResult(s *models.SwissStanding, won bool) {
	if won {
		s.Wins++
	} else {
		s.Losses++
	}
}

// RankedOrder returns the standings sorted by wins descending, then losses
// ascending. The sort is stable: ties keep their prior relative order, which
// keeps pairing and advancement deterministic for identical inputs.
func RankedOrder(list []*models.SwissStanding) []*models.SwissStanding {
	ranked := make([]*models.SwissStanding, len(list))
	copy(ranked, list)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Wins != ranked[j].Wins {
			return ranked[i].Wins > ranked[j].Wins
		}
		return ranked[i].Losses < ranked[j].Losses
	})
	return ranked
}

// PlayerIDs projects a standings slice onto the player ids, preserving order.
func PlayerIDs(list []*models.SwissStanding) []int {
	ids := make([]int, len(list))
	for i, s := range list {
		ids[i] = s.PlayerID
	}
	return ids
}
