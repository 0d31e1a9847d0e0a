package brackets

// SwissRounds returns the number of rounds for a Swiss bracket of n players:
// ceil(log2(n)), never less than 1.
func SwissRounds(n int) int {
	rounds := 0
	for capacity := 1; capacity < n; capacity <<= 1 {
		rounds++
	}
	if rounds < 1 {
		rounds = 1
	}
	return rounds
}

type SwissPair struct {
	Player1ID int
	Player2ID int
}

// MeetingKey normalizes an opponent pair for rematch lookups.
func MeetingKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// PlanSwissRound pairs players in the given order (round 1: rating ascending,
// later rounds: ranked standings). Each player is paired with the nearest
// following player they have not met yet; if every remaining candidate is a
// rematch, the nearest one is taken anyway. With an odd field the last
// unpaired player sits the round out.
func PlanSwissRound(ordered []int, met map[[2]int]bool) []SwissPair {
	pairs := make([]SwissPair, 0, len(ordered)/2)
	used := make([]bool, len(ordered))

	for i := 0; i < len(ordered); i++ {
		if used[i] {
			continue
		}
		opponent := -1
		for j := i + 1; j < len(ordered); j++ {
			if used[j] {
				continue
			}
			if !met[MeetingKey(ordered[i], ordered[j])] {
				opponent = j
				break
			}
			if opponent == -1 {
				opponent = j // rematch fallback
			}
		}
		if opponent == -1 {
			break // odd player out
		}
		used[i] = true
		used[opponent] = true
		pairs = append(pairs, SwissPair{Player1ID: ordered[i], Player2ID: ordered[opponent]})
	}
	return pairs
}
