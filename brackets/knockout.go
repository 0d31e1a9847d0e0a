// Package brackets plans tournament rounds. Planners are pure: they take a
// player list and return the match layout; persistence belongs to the service
// layer.
package brackets

import (
	"errors"
	"math"
	"sort"

	"github.com/openbracket/progression-engine/models"
)

var ErrNotEnoughPlayers = errors.New("not enough players to build a bracket (minimum 2)")

// PlannedMatch is one slot in a knockout plan. Round 1 is the entry round;
// later rounds are placeholders whose players arrive as winners advance.
// NextIndex points at the parent match inside Plan.Matches; the final has none.
type PlannedMatch struct {
	Round     int
	Capacity  int // stage capacity, selects the RoundType
	Player1ID *int
	Player2ID *int
	WinnerID  *int // pre-set for byes
	Completed bool
	NextIndex *int
}

type KnockoutPlan struct {
	Rounds   int
	Capacity int // entry-stage capacity: smallest power of two >= field size
	Byes     int
	Matches  []*PlannedMatch // ordered by round ascending
}

// StageCapacity returns the smallest power of two >= n.
func StageCapacity(n int) int {
	capacity := 1
	for capacity < n {
		capacity <<= 1
	}
	return capacity
}

// PlanKnockout lays out a full single-elimination tree for the given field.
//
// Players are seeded by rating ascending. Byes fill the gap up to the next
// power of two and go to the highest-rated players; a bye is a completed
// entry-round match with the winner pre-set and no opponent. The remaining
// players are paired consecutively from the sorted list. Every non-final
// match links to its parent, and winners of pre-completed byes are propagated
// into the parent slots immediately.
func PlanKnockout(players []models.PlayerRating) (*KnockoutPlan, error) {
	n := len(players)
	if n < 2 {
		return nil, ErrNotEnoughPlayers
	}

	seeded := make([]models.PlayerRating, n)
	copy(seeded, players)
	sort.SliceStable(seeded, func(i, j int) bool {
		return seeded[i].Elo < seeded[j].Elo
	})

	rounds := int(math.Ceil(math.Log2(float64(n))))
	capacity := 1 << uint(rounds)
	byes := capacity - n

	plan := &KnockoutPlan{
		Rounds:   rounds,
		Capacity: capacity,
		Byes:     byes,
		Matches:  make([]*PlannedMatch, 0, capacity-1),
	}

	// Entry round: paired players first, then one bye match per spare slot.
	paired := seeded[:n-byes]
	for i := 0; i < len(paired); i += 2 {
		p1, p2 := paired[i].PlayerID, paired[i+1].PlayerID
		plan.Matches = append(plan.Matches, &PlannedMatch{
			Round:     1,
			Capacity:  capacity,
			Player1ID: &p1,
			Player2ID: &p2,
		})
	}
	for _, bye := range seeded[n-byes:] {
		pid := bye.PlayerID
		plan.Matches = append(plan.Matches, &PlannedMatch{
			Round:     1,
			Capacity:  capacity,
			Player1ID: &pid,
			WinnerID:  &pid,
			Completed: true,
		})
	}

	// Placeholder rounds up to the final.
	roundStart := 0
	roundSize := capacity / 2
	for r := 2; r <= rounds; r++ {
		parentStart := roundStart + roundSize
		parentSize := roundSize / 2
		for i := 0; i < parentSize; i++ {
			plan.Matches = append(plan.Matches, &PlannedMatch{
				Round:    r,
				Capacity: roundSize, // stage one level up holds half the field
			})
		}
		for i := 0; i < roundSize; i++ {
			child := plan.Matches[roundStart+i]
			parentIdx := parentStart + i/2
			child.NextIndex = &parentIdx

			if child.Completed && child.WinnerID != nil {
				parent := plan.Matches[parentIdx]
				if i%2 == 0 {
					parent.Player1ID = child.WinnerID
				} else {
					parent.Player2ID = child.WinnerID
				}
			}
		}
		roundStart = parentStart
		roundSize = parentSize
	}

	return plan, nil
}
