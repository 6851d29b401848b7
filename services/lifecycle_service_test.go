package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/arena-engine/models"
	"github.com/Dosada05/arena-engine/pairing"
	"github.com/Dosada05/arena-engine/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLifecycleService(eventRepo *memEventRepo, teamRepo *memTeamRepo, matchRepo *memMatchRepo) *lifecycleService {
	return &lifecycleService{
		eventRepo:        eventRepo,
		teamRepo:         teamRepo,
		matchRepo:        matchRepo,
		locker:           NewEventLocker(100 * time.Millisecond),
		swiss:            pairing.NewSwissPlanner(),
		elim:             pairing.NewEliminationPlanner(),
		hub:              testHub(),
		logger:           testLogger(),
		minTeamsForSwiss: 4,
	}
}

func seedQueueingEvent(t *testing.T, eventRepo *memEventRepo, teamRepo *memTeamRepo, teamCount int) (*models.Event, []*models.Team) {
	t.Helper()
	now := time.Now()
	event := &models.Event{
		Name:         "spring-open",
		LockedAt:     &now,
		ProcessQueue: true,
	}
	require.NoError(t, eventRepo.Create(context.Background(), event))

	names := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	teams := make([]*models.Team, 0, teamCount)
	for i := 0; i < teamCount; i++ {
		team := &models.Team{
			EventID:               event.ID,
			Name:                  names[i],
			QueueScore:            1000 + 10*i,
			StartedRepoCreationAt: &now,
		}
		require.NoError(t, teamRepo.Create(context.Background(), team))
		teams = append(teams, team)
	}
	return event, teams
}

func TestAdvanceToSwissWaitsForOpenQueueMatches(t *testing.T) {
	eventRepo, teamRepo, matchRepo := newMemEventRepo(), newMemTeamRepo(), newMemMatchRepo()
	svc := newTestLifecycleService(eventRepo, teamRepo, matchRepo)
	event, teams := seedQueueingEvent(t, eventRepo, teamRepo, 4)

	queueMatch := &models.Match{
		EventID: event.ID,
		Phase:   models.PhaseQueue,
		Round:   1,
		State:   models.MatchInProgress,
		Team1ID: teams[0].ID,
		Team2ID: teams[1].ID,
	}
	require.NoError(t, matchRepo.Create(context.Background(), nil, queueMatch))

	_, err := svc.advanceToSwissTx(context.Background(), nil, event, models.EventQueueing)
	assert.ErrorIs(t, err, ErrRoundNotComplete)
	assert.True(t, event.ProcessQueue, "the queue stays live until the transition succeeds")

	winner := teams[0].ID
	require.NoError(t, matchRepo.Finish(context.Background(), nil, queueMatch.ID, &winner, 1016, 984, time.Now()))

	created, err := svc.advanceToSwissTx(context.Background(), nil, event, models.EventQueueing)
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.False(t, event.ProcessQueue)
	assert.Equal(t, 1, event.CurrentRound)
	assert.Equal(t, pairing.MaxSwissRounds(4), event.SwissRounds)
}

func TestAdvanceToSwissBooksEachTeamOnce(t *testing.T) {
	eventRepo, teamRepo, matchRepo := newMemEventRepo(), newMemTeamRepo(), newMemMatchRepo()
	svc := newTestLifecycleService(eventRepo, teamRepo, matchRepo)
	event, _ := seedQueueingEvent(t, eventRepo, teamRepo, 4)

	created, err := svc.advanceToSwissTx(context.Background(), nil, event, models.EventQueueing)
	require.NoError(t, err)

	// Every live team appears in exactly one open match across the event.
	openPerTeam := make(map[uuid.UUID]int)
	all, err := matchRepo.ListByEvent(context.Background(), nil, event.ID, repositories.MatchFilter{OnlyOpen: true})
	require.NoError(t, err)
	for _, m := range all {
		openPerTeam[m.Team1ID]++
		openPerTeam[m.Team2ID]++
	}
	assert.Len(t, created, 2)
	for teamID, n := range openPerTeam {
		assert.Equal(t, 1, n, "team %s is double-booked", teamID)
	}
}

func TestFinishIgnoresOpenPlacementMatch(t *testing.T) {
	eventRepo, teamRepo, matchRepo := newMemEventRepo(), newMemTeamRepo(), newMemMatchRepo()
	svc := newTestLifecycleService(eventRepo, teamRepo, matchRepo)
	event, teams := seedQueueingEvent(t, eventRepo, teamRepo, 4)

	seedBracket := func(finalState models.MatchState) {
		finish := func(m *models.Match, winner uuid.UUID) {
			m.State = models.MatchFinished
			m.WinnerID = &winner
		}
		semi1 := &models.Match{EventID: event.ID, Phase: models.PhaseElimination, Round: 1, OrderInRound: 1, Team1ID: teams[0].ID, Team2ID: teams[3].ID}
		finish(semi1, teams[0].ID)
		semi2 := &models.Match{EventID: event.ID, Phase: models.PhaseElimination, Round: 1, OrderInRound: 2, Team1ID: teams[1].ID, Team2ID: teams[2].ID}
		finish(semi2, teams[1].ID)
		final := &models.Match{EventID: event.ID, Phase: models.PhaseElimination, Round: 2, OrderInRound: 1, State: finalState, Team1ID: teams[0].ID, Team2ID: teams[1].ID}
		if finalState == models.MatchFinished {
			finish(final, teams[0].ID)
		}
		placement := &models.Match{EventID: event.ID, Phase: models.PhaseElimination, Round: 2, OrderInRound: 2, State: models.MatchInProgress, IsPlacementMatch: true, Team1ID: teams[3].ID, Team2ID: teams[2].ID}
		for _, m := range []*models.Match{semi1, semi2, final, placement} {
			require.NoError(t, matchRepo.Create(context.Background(), nil, m))
		}
	}

	seedBracket(models.MatchInProgress)
	err := svc.finishTx(context.Background(), nil, event, models.EventElimination)
	assert.ErrorIs(t, err, ErrRoundNotComplete, "an unfinished final keeps the event open")

	matchRepo = newMemMatchRepo()
	svc = newTestLifecycleService(eventRepo, teamRepo, matchRepo)
	seedBracket(models.MatchFinished)

	require.NoError(t, svc.finishTx(context.Background(), nil, event, models.EventElimination))
	assert.NotNil(t, event.FinishedAt, "a running 3rd-place match does not block the finish")
}
