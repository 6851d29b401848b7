package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/arena-engine/models"
	"github.com/Dosada05/arena-engine/notify"
	"github.com/Dosada05/arena-engine/pairing"
	"github.com/Dosada05/arena-engine/repositories"
	"github.com/google/uuid"
)

// LifecycleService drives the event state machine:
// FORMING -> LOCKED -> QUEUEING -> SWISS -> ELIMINATION -> FINISHED.
// Every transition is explicit and irreversible, executes inside the
// per-event region, commits atomically under a version check, and emits a
// fire-and-forget notification.
type LifecycleService interface {
	CreateEvent(ctx context.Context, name, description string, swissRounds int) (*models.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	CurrentPhase(ctx context.Context, id uuid.UUID) (models.Phase, error)

	LockTeams(ctx context.Context, id uuid.UUID) error
	EnterQueueing(ctx context.Context, id uuid.UUID) error
	AdvanceToSwiss(ctx context.Context, id uuid.UUID) error
	AdvanceRound(ctx context.Context, id uuid.UUID) error
	BuildBracket(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID) error

	Standings(ctx context.Context, id uuid.UUID) ([]pairing.Standing, error)
}

type lifecycleService struct {
	db        *sql.DB
	eventRepo repositories.EventRepository
	teamRepo  repositories.TeamRepository
	matchRepo repositories.MatchRepository
	locker    *EventLocker
	swiss     *pairing.SwissPlanner
	elim      *pairing.EliminationPlanner
	hub       *notify.Hub
	logger    *slog.Logger

	minTeamsForSwiss int
}

func NewLifecycleService(
	db *sql.DB,
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	locker *EventLocker,
	hub *notify.Hub,
	logger *slog.Logger,
	minTeamsForSwiss int,
) LifecycleService {
	return &lifecycleService{
		db:               db,
		eventRepo:        eventRepo,
		teamRepo:         teamRepo,
		matchRepo:        matchRepo,
		locker:           locker,
		swiss:            pairing.NewSwissPlanner(),
		elim:             pairing.NewEliminationPlanner(),
		hub:              hub,
		logger:           logger,
		minTeamsForSwiss: minTeamsForSwiss,
	}
}

func (s *lifecycleService) CreateEvent(ctx context.Context, name, description string, swissRounds int) (*models.Event, error) {
	if name == "" {
		return nil, ErrEventNameRequired
	}
	if swissRounds < 0 {
		return nil, fmt.Errorf("%w: swiss rounds must not be negative", ErrValidationFailed)
	}
	event := &models.Event{
		Name:          name,
		Description:   description,
		CanCreateTeam: true,
		SwissRounds:   swissRounds,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *lifecycleService) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapEventError(err)
	}
	return event, nil
}

func (s *lifecycleService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.eventRepo.List(ctx)
}

func (s *lifecycleService) CurrentPhase(ctx context.Context, id uuid.UUID) (models.Phase, error) {
	event, err := s.eventRepo.GetByID(ctx, nil, id)
	if err != nil {
		return "", mapEventError(err)
	}
	facts, err := s.loadPhaseFacts(ctx, nil, id)
	if err != nil {
		return "", err
	}
	return models.DerivePhase(event, facts), nil
}

func (s *lifecycleService) loadPhaseFacts(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (models.PhaseFacts, error) {
	var facts models.PhaseFacts
	var err error
	if facts.HasSwissMatches, err = s.matchRepo.HasAnyInPhase(ctx, exec, id, models.PhaseSwiss); err != nil {
		return facts, err
	}
	if facts.HasEliminationMatches, err = s.matchRepo.HasAnyInPhase(ctx, exec, id, models.PhaseElimination); err != nil {
		return facts, err
	}
	return facts, nil
}

// transition runs fn inside the per-event region and a transaction. fn
// receives the freshly loaded event and its derived phase; mutations it
// makes to the event are persisted with the version check before commit.
func (s *lifecycleService) transition(ctx context.Context, id uuid.UUID, fn func(tx *sql.Tx, event *models.Event, phase models.Phase) error) error {
	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	event, err := s.eventRepo.GetByID(ctx, tx, id)
	if err != nil {
		return mapEventError(err)
	}
	facts, err := s.loadPhaseFacts(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := fn(tx, event, models.DerivePhase(event, facts)); err != nil {
		return err
	}
	if err := s.eventRepo.UpdateProgress(ctx, tx, event); err != nil {
		return mapEventError(err)
	}
	return tx.Commit()
}

func (s *lifecycleService) LockTeams(ctx context.Context, id uuid.UUID) error {
	err := s.transition(ctx, id, func(tx *sql.Tx, event *models.Event, phase models.Phase) error {
		if phase != models.EventForming {
			return fmt.Errorf("%w: lock requested in phase %s", ErrInvalidTransition, phase)
		}
		now := time.Now()
		event.LockedAt = &now
		event.CanCreateTeam = false
		return nil
	})
	if err != nil {
		return err
	}
	s.notifyPhase(id, models.EventLocked)
	return nil
}

func (s *lifecycleService) EnterQueueing(ctx context.Context, id uuid.UUID) error {
	err := s.transition(ctx, id, func(tx *sql.Tx, event *models.Event, phase models.Phase) error {
		if phase != models.EventLocked {
			return fmt.Errorf("%w: queueing requested in phase %s", ErrInvalidTransition, phase)
		}
		event.ProcessQueue = true
		return nil
	})
	if err != nil {
		return err
	}
	s.notifyPhase(id, models.EventQueueing)
	return nil
}

func (s *lifecycleService) AdvanceToSwiss(ctx context.Context, id uuid.UUID) error {
	var created []*models.Match
	err := s.transition(ctx, id, func(tx *sql.Tx, event *models.Event, phase models.Phase) error {
		var err error
		created, err = s.advanceToSwissTx(ctx, tx, event, phase)
		return err
	})
	if err != nil {
		return err
	}
	s.notifyPhase(id, models.EventSwiss)
	s.notifyMatches(id, created)
	return nil
}

// advanceToSwissTx freezes the queue and plans the first swiss round. Every
// open queue match must be finished first: a team still playing in the
// queue would otherwise be booked into two simultaneous matches.
func (s *lifecycleService) advanceToSwissTx(ctx context.Context, tx *sql.Tx, event *models.Event, phase models.Phase) ([]*models.Match, error) {
	if phase != models.EventQueueing {
		return nil, fmt.Errorf("%w: swiss requested in phase %s", ErrInvalidTransition, phase)
	}

	queuePhase := models.PhaseQueue
	openQueue, err := s.matchRepo.ListByEvent(ctx, tx, event.ID, repositories.MatchFilter{
		Phase: &queuePhase, OnlyOpen: true, Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(openQueue) > 0 {
		return nil, fmt.Errorf("%w: queue matches still open", ErrRoundNotComplete)
	}

	teams, err := s.teamRepo.ListByEvent(ctx, tx, event.ID, false)
	if err != nil {
		return nil, err
	}
	if len(teams) < s.minTeamsForSwiss {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientParticipants, len(teams), s.minTeamsForSwiss)
	}

	event.ProcessQueue = false
	if event.SwissRounds == 0 {
		event.SwissRounds = pairing.MaxSwissRounds(len(teams))
	}
	event.CurrentRound = 1

	plan, err := s.swiss.Plan(pairing.PlanParams{
		EventID: event.ID,
		Round:   1,
		Teams:   teams,
	})
	if err != nil {
		return nil, err
	}
	return s.persistPlan(ctx, tx, plan)
}

func (s *lifecycleService) AdvanceRound(ctx context.Context, id uuid.UUID) error {
	var created []*models.Match
	err := s.transition(ctx, id, func(tx *sql.Tx, event *models.Event, phase models.Phase) error {
		if phase != models.EventSwiss {
			return fmt.Errorf("%w: round advance requested in phase %s", ErrInvalidTransition, phase)
		}
		open, err := s.matchRepo.CountOpen(ctx, tx, id, models.PhaseSwiss, event.CurrentRound)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: %d matches open in round %d", ErrRoundNotComplete, open, event.CurrentRound)
		}
		if event.CurrentRound >= event.SwissRounds {
			return fmt.Errorf("%w: all %d swiss rounds are played, build the bracket", ErrInvalidTransition, event.SwissRounds)
		}

		teams, err := s.teamRepo.ListByEvent(ctx, tx, id, false)
		if err != nil {
			return err
		}
		finishedState := models.MatchFinished
		swissPhase := models.PhaseSwiss
		finished, err := s.matchRepo.ListByEvent(ctx, tx, id, repositories.MatchFilter{
			Phase: &swissPhase, State: &finishedState,
		})
		if err != nil {
			return err
		}

		event.CurrentRound++
		plan, err := s.swiss.Plan(pairing.PlanParams{
			EventID:  id,
			Round:    event.CurrentRound,
			Teams:    teams,
			Finished: finished,
		})
		if err != nil {
			return err
		}
		created, err = s.persistPlan(ctx, tx, plan)
		return err
	})
	if err != nil {
		return err
	}
	s.notifyMatches(id, created)
	return nil
}

func (s *lifecycleService) BuildBracket(ctx context.Context, id uuid.UUID) error {
	var created []*models.Match
	err := s.transition(ctx, id, func(tx *sql.Tx, event *models.Event, phase models.Phase) error {
		if phase != models.EventSwiss {
			return fmt.Errorf("%w: bracket requested in phase %s", ErrInvalidTransition, phase)
		}
		if event.CurrentRound < event.SwissRounds {
			return fmt.Errorf("%w: swiss round %d of %d", ErrInvalidTransition, event.CurrentRound, event.SwissRounds)
		}
		open, err := s.matchRepo.CountOpen(ctx, tx, id, models.PhaseSwiss, event.CurrentRound)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: %d matches open in round %d", ErrRoundNotComplete, open, event.CurrentRound)
		}

		seeds, err := s.seededTeams(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(seeds) < 2 {
			return fmt.Errorf("%w: bracket needs at least 2 teams", ErrInsufficientParticipants)
		}

		event.CurrentRound = 1
		plan, err := s.elim.Plan(pairing.PlanParams{
			EventID: id,
			Teams:   seeds,
		})
		if err != nil {
			return err
		}
		created, err = s.persistBracketPlan(ctx, tx, plan)
		return err
	})
	if err != nil {
		return err
	}
	s.notifyPhase(id, models.EventElimination)
	s.notifyMatches(id, created)
	return nil
}

func (s *lifecycleService) Finish(ctx context.Context, id uuid.UUID) error {
	err := s.transition(ctx, id, func(tx *sql.Tx, event *models.Event, phase models.Phase) error {
		return s.finishTx(ctx, tx, event, phase)
	})
	if err != nil {
		return err
	}
	s.notifyPhase(id, models.EventFinished)
	return nil
}

// finishTx closes the event once the final has a winner. The 3rd-place
// placement match does not hold the event open: the bracket is complete
// when the champion is determined.
func (s *lifecycleService) finishTx(ctx context.Context, tx *sql.Tx, event *models.Event, phase models.Phase) error {
	if phase != models.EventElimination {
		return fmt.Errorf("%w: finish requested in phase %s", ErrInvalidTransition, phase)
	}
	seeds, err := s.seededTeams(ctx, tx, event.ID)
	if err != nil {
		return err
	}
	elimPhase := models.PhaseElimination
	matches, err := s.matchRepo.ListByEvent(ctx, tx, event.ID, repositories.MatchFilter{Phase: &elimPhase})
	if err != nil {
		return err
	}
	champion := pairing.Champion(len(seeds), matches)
	if champion == nil {
		return fmt.Errorf("%w: the final has no winner yet", ErrRoundNotComplete)
	}
	for _, m := range matches {
		if m.Open() && !m.IsPlacementMatch {
			return fmt.Errorf("%w: bracket matches still open", ErrRoundNotComplete)
		}
	}

	now := time.Now()
	event.FinishedAt = &now
	event.ProcessQueue = false
	s.logger.Info("event finished",
		slog.String("event_id", event.ID.String()),
		slog.String("champion_id", champion.String()))
	return nil
}

func (s *lifecycleService) Standings(ctx context.Context, id uuid.UUID) ([]pairing.Standing, error) {
	teams, matches, err := loadStandingsInput(ctx, s.teamRepo, s.matchRepo, id)
	if err != nil {
		return nil, err
	}
	return pairing.ComputeStandings(teams, matches), nil
}

// seededTeams returns the event's teams in seed order and refreshes the
// cached Buchholz values from finished swiss history. Teams already placed
// in elimination matches stay seeded even if they withdrew later, so the
// bracket replay remains stable.
func (s *lifecycleService) seededTeams(ctx context.Context, tx *sql.Tx, id uuid.UUID) ([]*models.Team, error) {
	all, err := s.teamRepo.ListByEvent(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	elimPhase := models.PhaseElimination
	elimMatches, err := s.matchRepo.ListByEvent(ctx, tx, id, repositories.MatchFilter{Phase: &elimPhase})
	if err != nil {
		return nil, err
	}
	inBracket := make(map[uuid.UUID]bool)
	for _, m := range elimMatches {
		inBracket[m.Team1ID] = true
		inBracket[m.Team2ID] = true
	}

	eligible := make([]*models.Team, 0, len(all))
	for _, t := range all {
		if !t.Deleted() || inBracket[t.ID] {
			eligible = append(eligible, t)
		}
	}

	finishedState := models.MatchFinished
	swissPhase := models.PhaseSwiss
	finished, err := s.matchRepo.ListByEvent(ctx, tx, id, repositories.MatchFilter{
		Phase: &swissPhase, State: &finishedState,
	})
	if err != nil {
		return nil, err
	}

	standings := pairing.ComputeStandings(eligible, finished)
	byID := make(map[uuid.UUID]*models.Team, len(eligible))
	for _, t := range eligible {
		byID[t.ID] = t
	}
	seeds := make([]*models.Team, 0, len(standings))
	for _, row := range standings {
		t := byID[row.TeamID]
		if t.BuchholzPoints != row.Buchholz {
			if err := s.teamRepo.UpdateBuchholz(ctx, tx, t.ID, row.Buchholz); err != nil {
				return nil, err
			}
			t.BuchholzPoints = row.Buchholz
		}
		seeds = append(seeds, t)
	}
	return seeds, nil
}

func (s *lifecycleService) persistPlan(ctx context.Context, tx *sql.Tx, plan *pairing.Plan) ([]*models.Match, error) {
	for _, teamID := range plan.Byes {
		if err := s.teamRepo.GrantBye(ctx, tx, teamID); err != nil {
			return nil, err
		}
	}
	for _, m := range plan.Matches {
		if err := s.matchRepo.Create(ctx, tx, m); err != nil {
			return nil, err
		}
	}
	return plan.Matches, nil
}

// persistBracketPlan stores elimination matches. Bracket byes are positional
// only: they award no score and are replayed from seeding, so nothing is
// written for them.
func (s *lifecycleService) persistBracketPlan(ctx context.Context, tx *sql.Tx, plan *pairing.Plan) ([]*models.Match, error) {
	for _, m := range plan.Matches {
		if err := s.matchRepo.Create(ctx, tx, m); err != nil {
			return nil, err
		}
	}
	return plan.Matches, nil
}

func (s *lifecycleService) notifyPhase(id uuid.UUID, phase models.Phase) {
	s.hub.Publish(id.String(), notify.TypePhaseChanged, map[string]string{"phase": string(phase)})
}

func (s *lifecycleService) notifyMatches(id uuid.UUID, matches []*models.Match) {
	if len(matches) > 0 {
		s.hub.Publish(id.String(), notify.TypeMatchesCreated, matches)
	}
}

// loadStandingsInput fetches the teams and finished swiss matches used by
// the standings calculator.
func loadStandingsInput(ctx context.Context, teamRepo repositories.TeamRepository, matchRepo repositories.MatchRepository, id uuid.UUID) ([]*models.Team, []*models.Match, error) {
	teams, err := teamRepo.ListByEvent(ctx, nil, id, false)
	if err != nil {
		return nil, nil, err
	}
	finishedState := models.MatchFinished
	swissPhase := models.PhaseSwiss
	matches, err := matchRepo.ListByEvent(ctx, nil, id, repositories.MatchFilter{
		Phase: &swissPhase, State: &finishedState,
	})
	if err != nil {
		return nil, nil, err
	}
	return teams, matches, nil
}

func mapEventError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrEventVersionConflict):
		return ErrConflictingWrite
	}
	return err
}
