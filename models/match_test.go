package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedSwissMatch() *Match {
	now := time.Now()
	winner := uuid.New()
	s1, s2 := 2, 1
	return &Match{
		ID:         uuid.New(),
		Phase:      PhaseSwiss,
		State:      MatchFinished,
		Team1ID:    winner,
		Team2ID:    uuid.New(),
		WinnerID:   &winner,
		Team1Score: &s1,
		Team2Score: &s2,
		FinishedAt: &now,
	}
}

func TestCensoredHidesUnrevealedResult(t *testing.T) {
	m := finishedSwissMatch()

	c := m.Censored()
	require.NotSame(t, m, c)

	assert.Equal(t, MatchPlanned, c.State)
	assert.Nil(t, c.WinnerID)
	assert.Nil(t, c.Team1Score)
	assert.Nil(t, c.Team2Score)
	assert.Nil(t, c.FinishedAt)

	// Neither the match nor its participants are identifiable before the
	// reveal.
	assert.Equal(t, uuid.Nil, c.ID)
	assert.Equal(t, uuid.Nil, c.Team1ID)
	assert.Equal(t, uuid.Nil, c.Team2ID)
	assert.Nil(t, c.Team1)
	assert.Nil(t, c.Team2)

	// The original is untouched.
	assert.Equal(t, MatchFinished, m.State)
	assert.NotNil(t, m.WinnerID)
	assert.NotEqual(t, uuid.Nil, m.Team1ID)
}

func TestCensoredPassesRevealedMatchThrough(t *testing.T) {
	m := finishedSwissMatch()
	m.IsRevealed = true

	assert.Same(t, m, m.Censored())
}

func TestCensoredKeepsQueueResultsButHidesID(t *testing.T) {
	m := finishedSwissMatch()
	m.Phase = PhaseQueue

	c := m.Censored()
	require.NotSame(t, m, c)

	assert.Equal(t, uuid.Nil, c.ID)
	// Queue results are public without a reveal.
	assert.Equal(t, MatchFinished, c.State)
	assert.Equal(t, m.WinnerID, c.WinnerID)
	assert.Equal(t, m.Team1ID, c.Team1ID)
	assert.Equal(t, m.Team2ID, c.Team2ID)
	assert.NotEqual(t, uuid.Nil, m.ID)
}

func TestOpponent(t *testing.T) {
	m := finishedSwissMatch()

	assert.Equal(t, m.Team2ID, m.Opponent(m.Team1ID))
	assert.Equal(t, m.Team1ID, m.Opponent(m.Team2ID))
	assert.Equal(t, uuid.Nil, m.Opponent(uuid.New()))
}
