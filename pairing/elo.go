package pairing

import "math"

// Queue ratings move by a fixed-K Elo rule: K 32, 400-point expectation
// scale, ratings never drop below zero.
const (
	eloK     = 32.0
	eloScale = 400.0
)

// EloUpdate returns the new ratings after a decisive queue match. The winner
// always gains at least one point and the loser always drops at least one,
// so the ladder moves even between far-apart ratings. Ratings floor at zero:
// a loser already at zero stays there instead of strictly decreasing. Draws
// are handled by the caller: both ratings stay put.
func EloUpdate(winner, loser int) (newWinner, newLoser int) {
	expectedWin := 1 / (1 + math.Pow(10, float64(loser-winner)/eloScale))
	expectedLose := 1 / (1 + math.Pow(10, float64(winner-loser)/eloScale))

	gain := int(math.Round(eloK * (1 - expectedWin)))
	if gain < 1 {
		gain = 1
	}
	drop := int(math.Round(eloK * expectedLose))
	if drop < 1 {
		drop = 1
	}

	newWinner = winner + gain
	newLoser = loser - drop
	if newLoser < 0 {
		newLoser = 0
	}
	return newWinner, newLoser
}
