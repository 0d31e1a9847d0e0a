package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwissRounds(t *testing.T) {
	cases := map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 16: 4, 17: 5}
	for n, want := range cases {
		assert.Equal(t, want, SwissRounds(n), "n=%d", n)
	}
}

func TestPlanSwissRoundConsecutivePairs(t *testing.T) {
	pairs := PlanSwissRound([]int{10, 20, 30, 40}, nil)

	assert.Equal(t, []SwissPair{
		{Player1ID: 10, Player2ID: 20},
		{Player1ID: 30, Player2ID: 40},
	}, pairs)
}

func TestPlanSwissRoundAvoidsRematch(t *testing.T) {
	met := map[[2]int]bool{
		MeetingKey(10, 20): true,
	}

	pairs := PlanSwissRound([]int{10, 20, 30, 40}, met)

	assert.Equal(t, []SwissPair{
		{Player1ID: 10, Player2ID: 30},
		{Player1ID: 20, Player2ID: 40},
	}, pairs)
}

func TestPlanSwissRoundRematchFallback(t *testing.T) {
	// Everyone has already played everyone: nearest opponents anyway.
	met := map[[2]int]bool{
		MeetingKey(1, 2): true, MeetingKey(1, 3): true, MeetingKey(1, 4): true,
		MeetingKey(2, 3): true, MeetingKey(2, 4): true, MeetingKey(3, 4): true,
	}

	pairs := PlanSwissRound([]int{1, 2, 3, 4}, met)

	assert.Equal(t, []SwissPair{
		{Player1ID: 1, Player2ID: 2},
		{Player1ID: 3, Player2ID: 4},
	}, pairs)
}

func TestPlanSwissRoundOddFieldSitsLastOut(t *testing.T) {
	pairs := PlanSwissRound([]int{1, 2, 3, 4, 5}, nil)

	assert.Len(t, pairs, 2)
	for _, p := range pairs {
		assert.NotEqual(t, 5, p.Player1ID)
		assert.NotEqual(t, 5, p.Player2ID)
	}
}

func TestMeetingKeyNormalizes(t *testing.T) {
	assert.Equal(t, MeetingKey(4, 9), MeetingKey(9, 4))
}
