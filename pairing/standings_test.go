package pairing

import (
	"testing"
	"time"

	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func team(name string) *models.Team {
	return &models.Team{ID: uuid.New(), Name: name}
}

func finishedMatch(winner, loser *models.Team) *models.Match {
	now := time.Now()
	id := winner.ID
	return &models.Match{
		ID:         uuid.New(),
		Phase:      models.PhaseSwiss,
		State:      models.MatchFinished,
		Team1ID:    winner.ID,
		Team2ID:    loser.ID,
		WinnerID:   &id,
		FinishedAt: &now,
	}
}

func drawnMatch(a, b *models.Team) *models.Match {
	now := time.Now()
	return &models.Match{
		ID:         uuid.New(),
		Phase:      models.PhaseSwiss,
		State:      models.MatchFinished,
		Team1ID:    a.ID,
		Team2ID:    b.ID,
		FinishedAt: &now,
	}
}

func TestComputeStandingsScoresAndRanks(t *testing.T) {
	a, b, c, d := team("a"), team("b"), team("c"), team("d")
	matches := []*models.Match{
		finishedMatch(a, b),
		finishedMatch(c, d),
		finishedMatch(a, c),
		finishedMatch(b, d),
	}

	standings := ComputeStandings([]*models.Team{a, b, c, d}, matches)
	require.Len(t, standings, 4)

	assert.Equal(t, a.ID, standings[0].TeamID)
	assert.Equal(t, 2, standings[0].Score)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, d.ID, standings[3].TeamID)
	assert.Equal(t, 0, standings[3].Score)
	assert.Equal(t, 4, standings[3].Rank)
}

func TestComputeStandingsBuchholzTieBreak(t *testing.T) {
	a, b, c, d := team("a"), team("b"), team("c"), team("d")
	matches := []*models.Match{
		finishedMatch(a, b),
		finishedMatch(c, d),
		// a beats c: b and d both sit on zero points, but b lost to a
		// stronger field.
		finishedMatch(a, c),
	}

	standings := ComputeStandings([]*models.Team{a, b, c, d}, matches)
	require.Len(t, standings, 4)

	assert.Equal(t, a.ID, standings[0].TeamID)
	assert.Equal(t, c.ID, standings[1].TeamID)
	// b's only opponent (a) scored 2, d's only opponent (c) scored 1.
	assert.Equal(t, b.ID, standings[2].TeamID)
	assert.Equal(t, d.ID, standings[3].TeamID)
	assert.Greater(t, standings[2].Buchholz, standings[3].Buchholz)
}

func TestComputeStandingsIdempotent(t *testing.T) {
	a, b, c := team("a"), team("b"), team("c")
	c.ByeRounds = 1
	matches := []*models.Match{finishedMatch(a, b), drawnMatch(a, c)}

	first := ComputeStandings([]*models.Team{a, b, c}, matches)
	second := ComputeStandings([]*models.Team{a, b, c}, matches)

	assert.Equal(t, first, second)
}

func TestComputeStandingsByeCountsAsPoint(t *testing.T) {
	a, b := team("a"), team("b")
	b.ByeRounds = 1
	b.HadBye = true

	standings := ComputeStandings([]*models.Team{a, b}, nil)
	require.Len(t, standings, 2)

	assert.Equal(t, b.ID, standings[0].TeamID)
	assert.Equal(t, 1, standings[0].Score)
	assert.Equal(t, 0, standings[0].Played, "a bye is not a played match")
}

func TestComputeStandingsDeletedTeamFeedsOpponentBuchholz(t *testing.T) {
	a, b, gone := team("a"), team("b"), team("gone")
	now := time.Now()
	matches := []*models.Match{
		finishedMatch(a, gone),
		finishedMatch(gone, b),
	}
	gone.DeletedAt = &now

	standings := ComputeStandings([]*models.Team{a, b}, matches)
	require.Len(t, standings, 2)

	// The withdrawn team is absent but its single win still raises the
	// Buchholz of the teams that faced it.
	for _, s := range standings {
		assert.NotEqual(t, gone.ID, s.TeamID)
		assert.Equal(t, 1, s.Buchholz)
	}
}

func TestComputeStandingsDeterministicOrderOnFullTie(t *testing.T) {
	a, b := team("a"), team("b")

	first := ComputeStandings([]*models.Team{a, b}, nil)
	second := ComputeStandings([]*models.Team{b, a}, nil)

	assert.Equal(t, first, second, "input order must not change the ranking")
}
