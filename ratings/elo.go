package ratings

import "math"

// KFactor is the fixed Elo K constant applied to every match.
const KFactor = 32

// ExpectedScore returns the probability that a player rated `rating` beats a
// player rated `opponent` under the standard logistic Elo curve.
func ExpectedScore(rating, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
}

// CalculateEloChange computes both players' post-match ratings. Results are
// truncated toward negative infinity; when truncation would leave a rating
// unchanged (a very lopsided pairing) the winner still gains one point and
// the loser still drops one, so every completed match moves both ratings.
func CalculateEloChange(winnerElo, loserElo int) (newWinnerElo, newLoserElo int) {
	winnerWinProb := ExpectedScore(winnerElo, loserElo)
	loserWinProb := ExpectedScore(loserElo, winnerElo)

	newWinnerElo = int(math.Floor(float64(winnerElo) + (1-winnerWinProb)*KFactor))
	newLoserElo = int(math.Floor(float64(loserElo) + (0-loserWinProb)*KFactor))

	if newWinnerElo == winnerElo {
		newWinnerElo++
	}
	if newLoserElo == loserElo {
		newLoserElo--
	}
	return newWinnerElo, newLoserElo
}
