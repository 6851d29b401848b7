package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEloUpdateEqualRatings(t *testing.T) {
	newWinner, newLoser := EloUpdate(1000, 1000)

	assert.Equal(t, 1016, newWinner)
	assert.Equal(t, 984, newLoser)
}

func TestEloUpdateUpsetMovesMore(t *testing.T) {
	_, favLoser := EloUpdate(800, 1200)
	favGain, _ := EloUpdate(1200, 800)

	// Beating a stronger opponent pays more than beating a weaker one.
	upsetGain, _ := EloUpdate(800, 1200)
	assert.Greater(t, upsetGain-800, favGain-1200)
	assert.Less(t, favLoser, 1200)
}

func TestEloUpdateAlwaysMoves(t *testing.T) {
	// Even at an extreme gap the ratings still move by at least one point.
	newWinner, newLoser := EloUpdate(3000, 100)

	assert.Equal(t, 3001, newWinner)
	assert.Equal(t, 99, newLoser)
}

func TestEloUpdateLoserClampedAtZero(t *testing.T) {
	_, newLoser := EloUpdate(10, 10)

	assert.Equal(t, 0, newLoser)
}
