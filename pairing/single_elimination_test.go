package pairing

import (
	"testing"
	"time"

	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedList(n int) []*models.Team {
	teams := make([]*models.Team, n)
	for i := range teams {
		teams[i] = team(string(rune('a' + i)))
	}
	return teams
}

func winBy(m *models.Match, winnerID uuid.UUID) *models.Match {
	now := time.Now()
	m.State = models.MatchFinished
	m.WinnerID = &winnerID
	m.FinishedAt = &now
	return m
}

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 2, NextPowerOfTwo(2))
	assert.Equal(t, 4, NextPowerOfTwo(3))
	assert.Equal(t, 8, NextPowerOfTwo(6))
	assert.Equal(t, 8, NextPowerOfTwo(8))
	assert.Equal(t, 16, NextPowerOfTwo(9))
}

func TestBracketRounds(t *testing.T) {
	assert.Equal(t, 1, BracketRounds(2))
	assert.Equal(t, 2, BracketRounds(4))
	assert.Equal(t, 3, BracketRounds(8))
}

func TestEliminationFirstRoundByesGoToTopSeeds(t *testing.T) {
	planner := NewEliminationPlanner()
	seeds := seedList(6)

	plan, err := planner.Plan(PlanParams{EventID: uuid.New(), Teams: seeds})
	require.NoError(t, err)

	// Six teams in a bracket of eight: the two top seeds skip round one.
	require.Len(t, plan.Byes, 2)
	assert.Contains(t, plan.Byes, seeds[0].ID)
	assert.Contains(t, plan.Byes, seeds[1].ID)

	require.Len(t, plan.Matches, 2)
	for _, m := range plan.Matches {
		assert.Equal(t, 1, m.Round)
		assert.False(t, m.Has(seeds[0].ID))
		assert.False(t, m.Has(seeds[1].ID))
	}
}

func TestEliminationFullBracketNoByes(t *testing.T) {
	planner := NewEliminationPlanner()
	seeds := seedList(4)

	plan, err := planner.Plan(PlanParams{EventID: uuid.New(), Teams: seeds})
	require.NoError(t, err)

	assert.Empty(t, plan.Byes)
	require.Len(t, plan.Matches, 2)

	// Seed 1 opens against seed 4, seed 2 against seed 3.
	first := pairOf(plan.Matches[0])
	assert.True(t, first[seeds[0].ID] && first[seeds[3].ID])
	second := pairOf(plan.Matches[1])
	assert.True(t, second[seeds[1].ID] && second[seeds[2].ID])
}

func TestEliminationWaitsForRoundToFinish(t *testing.T) {
	planner := NewEliminationPlanner()
	seeds := seedList(4)

	firstRound, err := planner.Plan(PlanParams{EventID: uuid.New(), Teams: seeds})
	require.NoError(t, err)

	winBy(firstRound.Matches[0], seeds[0].ID)
	// Second semifinal still open.
	_, err = planner.Plan(PlanParams{
		Teams:    seeds,
		Finished: []*models.Match{firstRound.Matches[0]},
		Open:     []*models.Match{firstRound.Matches[1]},
	})
	assert.ErrorIs(t, err, ErrRoundIncomplete)
}

func TestEliminationFinalComesWithPlacementMatch(t *testing.T) {
	planner := NewEliminationPlanner()
	seeds := seedList(4)
	eventID := uuid.New()

	firstRound, err := planner.Plan(PlanParams{EventID: eventID, Teams: seeds})
	require.NoError(t, err)
	winBy(firstRound.Matches[0], seeds[0].ID)
	winBy(firstRound.Matches[1], seeds[1].ID)

	next, err := planner.Plan(PlanParams{
		EventID:  eventID,
		Teams:    seeds,
		Finished: firstRound.Matches,
	})
	require.NoError(t, err)
	require.Len(t, next.Matches, 2)

	final := next.Matches[0]
	assert.Equal(t, 2, final.Round)
	assert.Equal(t, 1, final.OrderInRound)
	assert.False(t, final.IsPlacementMatch)
	finalPair := pairOf(final)
	assert.True(t, finalPair[seeds[0].ID] && finalPair[seeds[1].ID])

	placement := next.Matches[1]
	assert.True(t, placement.IsPlacementMatch)
	assert.Equal(t, 2, placement.Round)
	placementPair := pairOf(placement)
	assert.True(t, placementPair[seeds[2].ID] && placementPair[seeds[3].ID],
		"semifinal losers contest third place")
}

func TestEliminationByeAdvancesWithoutAMatch(t *testing.T) {
	planner := NewEliminationPlanner()
	seeds := seedList(3)
	eventID := uuid.New()

	firstRound, err := planner.Plan(PlanParams{EventID: eventID, Teams: seeds})
	require.NoError(t, err)
	require.Len(t, firstRound.Byes, 1)
	assert.Equal(t, seeds[0].ID, firstRound.Byes[0])
	require.Len(t, firstRound.Matches, 1)

	winBy(firstRound.Matches[0], seeds[1].ID)
	next, err := planner.Plan(PlanParams{
		EventID:  eventID,
		Teams:    seeds,
		Finished: firstRound.Matches,
	})
	require.NoError(t, err)

	// Three teams make a two-round bracket; the final has no placement
	// match because one semifinal slot was a bye.
	require.Len(t, next.Matches, 1)
	finalPair := pairOf(next.Matches[0])
	assert.True(t, finalPair[seeds[0].ID] && finalPair[seeds[1].ID])
}

func TestEliminationDoneAfterFinal(t *testing.T) {
	planner := NewEliminationPlanner()
	seeds := seedList(2)
	eventID := uuid.New()

	bracket, err := planner.Plan(PlanParams{EventID: eventID, Teams: seeds})
	require.NoError(t, err)
	require.Len(t, bracket.Matches, 1)

	winBy(bracket.Matches[0], seeds[1].ID)
	_, err = planner.Plan(PlanParams{
		EventID:  eventID,
		Teams:    seeds,
		Finished: bracket.Matches,
	})
	assert.ErrorIs(t, err, ErrBracketDone)
}

func TestEliminationReplayIsDeterministic(t *testing.T) {
	planner := NewEliminationPlanner()
	seeds := seedList(6)
	eventID := uuid.New()

	first, err := planner.Plan(PlanParams{EventID: eventID, Teams: seeds})
	require.NoError(t, err)

	// Replaying the same state creates nothing new: the open matches
	// already cover the round.
	_, err = planner.Plan(PlanParams{EventID: eventID, Teams: seeds, Open: first.Matches})
	assert.ErrorIs(t, err, ErrRoundIncomplete)
}

func TestChampion(t *testing.T) {
	seeds := seedList(4)
	planner := NewEliminationPlanner()
	eventID := uuid.New()

	firstRound, err := planner.Plan(PlanParams{EventID: eventID, Teams: seeds})
	require.NoError(t, err)
	winBy(firstRound.Matches[0], seeds[0].ID)
	winBy(firstRound.Matches[1], seeds[1].ID)

	assert.Nil(t, Champion(4, firstRound.Matches), "no champion before the final")

	next, err := planner.Plan(PlanParams{EventID: eventID, Teams: seeds, Finished: firstRound.Matches})
	require.NoError(t, err)
	winBy(next.Matches[0], seeds[1].ID)

	all := append(firstRound.Matches, next.Matches...)
	champion := Champion(4, all)
	require.NotNil(t, champion)
	assert.Equal(t, seeds[1].ID, *champion)
}
