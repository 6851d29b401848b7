package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/arena-engine/models"
	"github.com/Dosada05/arena-engine/notify"
	"github.com/Dosada05/arena-engine/pairing"
	"github.com/Dosada05/arena-engine/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MatchService records outcomes reported by the external match executor,
// chains elimination rounds as they complete, and guards all public reads
// behind the reveal gate.
type MatchService interface {
	StartMatch(ctx context.Context, matchID uuid.UUID) error
	// ReportResult stores a finished match outcome. A nil winnerID records a
	// draw; draws are rejected for elimination matches.
	ReportResult(ctx context.Context, matchID uuid.UUID, winnerID *uuid.UUID) error

	Reveal(ctx context.Context, matchID uuid.UUID) error
	RevealAllInPhase(ctx context.Context, eventID uuid.UUID, phase models.MatchPhase) error

	GetMatch(ctx context.Context, matchID uuid.UUID, adminView bool) (*models.Match, error)
	ListPhaseMatches(ctx context.Context, eventID uuid.UUID, phase models.MatchPhase, adminView bool) ([]*models.Match, error)
	ListRecentQueueMatches(ctx context.Context, eventID uuid.UUID, limit int, adminView bool) ([]*models.Match, error)
	ListTeamMatches(ctx context.Context, teamID uuid.UUID, adminView bool) ([]*models.Match, error)
}

type matchService struct {
	db        *sql.DB
	eventRepo repositories.EventRepository
	teamRepo  repositories.TeamRepository
	matchRepo repositories.MatchRepository
	locker    *EventLocker
	elim      *pairing.EliminationPlanner
	hub       *notify.Hub
	logger    *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	locker *EventLocker,
	hub *notify.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:        db,
		eventRepo: eventRepo,
		teamRepo:  teamRepo,
		matchRepo: matchRepo,
		locker:    locker,
		elim:      pairing.NewEliminationPlanner(),
		hub:       hub,
		logger:    logger,
	}
}

func (s *matchService) StartMatch(ctx context.Context, matchID uuid.UUID) error {
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		return mapMatchError(err)
	}
	// The guarded update is the authority on the current state: a match
	// finished between the read and the write stays finished.
	err := s.matchRepo.UpdateState(ctx, nil, matchID, models.MatchPlanned, models.MatchInProgress)
	if errors.Is(err, repositories.ErrMatchStateConflict) {
		return fmt.Errorf("%w: match is not planned", ErrInvalidTransition)
	}
	return err
}

func (s *matchService) ReportResult(ctx context.Context, matchID uuid.UUID, winnerID *uuid.UUID) error {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return mapMatchError(err)
	}

	// Result writes serialize against phase transitions for the same event
	// so a round cannot advance while a result is mid-commit.
	release, err := s.locker.Acquire(ctx, match.EventID)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Reload inside the region; the first read may be stale.
	match, err = s.matchRepo.GetByID(ctx, tx, matchID)
	if err != nil {
		return mapMatchError(err)
	}
	if match.State == models.MatchFinished {
		return ErrMatchAlreadyFinished
	}
	if winnerID != nil && !match.Has(*winnerID) {
		return ErrWinnerNotInMatch
	}
	if winnerID == nil && match.Phase == models.PhaseElimination {
		return ErrDrawNotAllowed
	}

	team1, err := s.teamRepo.GetByID(ctx, tx, match.Team1ID)
	if err != nil {
		return mapMatchError(err)
	}
	team2, err := s.teamRepo.GetByID(ctx, tx, match.Team2ID)
	if err != nil {
		return mapMatchError(err)
	}

	score1, score2, err := s.applyResult(ctx, tx, match, team1, team2, winnerID)
	if err != nil {
		return err
	}
	if err := s.matchRepo.Finish(ctx, tx, matchID, winnerID, score1, score2, time.Now()); err != nil {
		return err
	}

	var created []*models.Match
	if match.Phase == models.PhaseElimination && !match.IsPlacementMatch {
		if created, err = s.advanceBracket(ctx, tx, match.EventID, match.Round); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("match result recorded",
		slog.String("match_id", matchID.String()),
		slog.String("phase", string(match.Phase)),
		slog.Int("round", match.Round),
		slog.Bool("draw", winnerID == nil))
	s.hub.Publish(match.EventID.String(), notify.TypeMatchFinished, map[string]interface{}{
		"match_id": matchID, "phase": match.Phase, "round": match.Round,
	})
	if match.Phase == models.PhaseSwiss {
		s.hub.Publish(match.EventID.String(), notify.TypeStandings, nil)
	}
	if len(created) > 0 {
		s.hub.Publish(match.EventID.String(), notify.TypeMatchesCreated, created)
	}
	return nil
}

// applyResult mutates team ratings/scores per phase and returns the per-team
// score snapshots stored on the match.
func (s *matchService) applyResult(ctx context.Context, tx *sql.Tx, match *models.Match, team1, team2 *models.Team, winnerID *uuid.UUID) (int, int, error) {
	switch match.Phase {
	case models.PhaseQueue:
		if winnerID == nil {
			// Draw: ratings stay put.
			return team1.QueueScore, team2.QueueScore, nil
		}
		winner, loser := team1, team2
		if *winnerID == team2.ID {
			winner, loser = team2, team1
		}
		newWinner, newLoser := pairing.EloUpdate(winner.QueueScore, loser.QueueScore)
		if err := s.teamRepo.SetQueueScore(ctx, tx, winner.ID, newWinner); err != nil {
			return 0, 0, err
		}
		if err := s.teamRepo.SetQueueScore(ctx, tx, loser.ID, newLoser); err != nil {
			return 0, 0, err
		}
		winner.QueueScore, loser.QueueScore = newWinner, newLoser
		return team1.QueueScore, team2.QueueScore, nil

	case models.PhaseSwiss:
		if winnerID != nil {
			if err := s.teamRepo.IncrementScore(ctx, tx, *winnerID, 1); err != nil {
				return 0, 0, err
			}
			if *winnerID == team1.ID {
				team1.Score++
			} else {
				team2.Score++
			}
		}
		return team1.Score, team2.Score, nil

	case models.PhaseElimination:
		// Bracket results never feed tournament points; the snapshot keeps
		// the seeding-era scores for display.
		return team1.Score, team2.Score, nil
	}
	return 0, 0, fmt.Errorf("unknown match phase %q", match.Phase)
}

// advanceBracket generates the next elimination round (and the placement
// match next to the final) once every match of the given round is finished.
// Runs inside the caller's transaction and event region.
func (s *matchService) advanceBracket(ctx context.Context, tx *sql.Tx, eventID uuid.UUID, round int) ([]*models.Match, error) {
	open, err := s.matchRepo.CountOpen(ctx, tx, eventID, models.PhaseElimination, round)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, nil
	}

	seeds, err := s.bracketSeeds(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	elimPhase := models.PhaseElimination
	finishedState := models.MatchFinished
	finished, err := s.matchRepo.ListByEvent(ctx, tx, eventID, repositories.MatchFilter{
		Phase: &elimPhase, State: &finishedState,
	})
	if err != nil {
		return nil, err
	}
	openMatches, err := s.matchRepo.ListByEvent(ctx, tx, eventID, repositories.MatchFilter{
		Phase: &elimPhase, OnlyOpen: true,
	})
	if err != nil {
		return nil, err
	}

	plan, err := s.elim.Plan(pairing.PlanParams{
		EventID:  eventID,
		Teams:    seeds,
		Finished: finished,
		Open:     openMatches,
	})
	if err != nil {
		if errors.Is(err, pairing.ErrBracketDone) || errors.Is(err, pairing.ErrRoundIncomplete) {
			return nil, nil
		}
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	nextRound := 0
	for _, m := range plan.Matches {
		if err := s.matchRepo.Create(ctx, tx, m); err != nil {
			return nil, err
		}
		if m.Round > nextRound {
			nextRound = m.Round
		}
	}
	if nextRound > event.CurrentRound {
		event.CurrentRound = nextRound
		if err := s.eventRepo.UpdateProgress(ctx, tx, event); err != nil {
			return nil, mapEventError(err)
		}
	}
	return plan.Matches, nil
}

// bracketSeeds mirrors the seeding used when the bracket was built: teams
// ranked by frozen swiss standings, withdrawn teams kept when they already
// occupy a bracket slot.
func (s *matchService) bracketSeeds(ctx context.Context, tx *sql.Tx, eventID uuid.UUID) ([]*models.Team, error) {
	all, err := s.teamRepo.ListByEvent(ctx, tx, eventID, true)
	if err != nil {
		return nil, err
	}
	elimPhase := models.PhaseElimination
	elimMatches, err := s.matchRepo.ListByEvent(ctx, tx, eventID, repositories.MatchFilter{Phase: &elimPhase})
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

	swissPhase := models.PhaseSwiss
	finishedState := models.MatchFinished
	finished, err := s.matchRepo.ListByEvent(ctx, tx, eventID, repositories.MatchFilter{
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
		seeds = append(seeds, byID[row.TeamID])
	}
	return seeds, nil
}

func (s *matchService) Reveal(ctx context.Context, matchID uuid.UUID) error {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return mapMatchError(err)
	}

	release, err := s.locker.Acquire(ctx, match.EventID)
	if err != nil {
		return err
	}
	defer release()

	match, err = s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return mapMatchError(err)
	}
	if match.State != models.MatchFinished {
		return fmt.Errorf("%w: match is %s", ErrNotYetPlayed, match.State)
	}
	if match.IsRevealed {
		// Reveal is monotonic; repeating it is a no-op.
		return nil
	}

	if err := s.matchRepo.Reveal(ctx, nil, matchID); err != nil {
		return err
	}
	s.hub.Publish(match.EventID.String(), notify.TypeMatchRevealed, map[string]interface{}{
		"match_id": matchID,
	})
	return nil
}

func (s *matchService) RevealAllInPhase(ctx context.Context, eventID uuid.UUID, phase models.MatchPhase) error {
	release, err := s.locker.Acquire(ctx, eventID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.matchRepo.RevealAllInPhase(ctx, nil, eventID, phase); err != nil {
		return err
	}
	s.hub.Publish(eventID.String(), notify.TypeMatchRevealed, map[string]interface{}{
		"phase": phase,
	})
	return nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID uuid.UUID, adminView bool) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchError(err)
	}
	if err := s.attachTeams(ctx, []*models.Match{match}); err != nil {
		return nil, err
	}
	if adminView {
		return match, nil
	}
	return match.Censored(), nil
}

func (s *matchService) ListPhaseMatches(ctx context.Context, eventID uuid.UUID, phase models.MatchPhase, adminView bool) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByEvent(ctx, nil, eventID, repositories.MatchFilter{Phase: &phase})
	if err != nil {
		return nil, err
	}
	if err := s.attachTeams(ctx, matches); err != nil {
		return nil, err
	}
	if adminView {
		return matches, nil
	}
	censored := make([]*models.Match, len(matches))
	for i, m := range matches {
		censored[i] = m.Censored()
	}
	return censored, nil
}

func (s *matchService) ListRecentQueueMatches(ctx context.Context, eventID uuid.UUID, limit int, adminView bool) ([]*models.Match, error) {
	queuePhase := models.PhaseQueue
	finishedState := models.MatchFinished
	matches, err := s.matchRepo.ListByEvent(ctx, nil, eventID, repositories.MatchFilter{
		Phase: &queuePhase, State: &finishedState, Desc: true, Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	if err := s.attachTeams(ctx, matches); err != nil {
		return nil, err
	}
	if adminView {
		return matches, nil
	}
	censored := make([]*models.Match, len(matches))
	for i, m := range matches {
		censored[i] = m.Censored()
	}
	return censored, nil
}

func (s *matchService) ListTeamMatches(ctx context.Context, teamID uuid.UUID, adminView bool) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListForTeam(ctx, nil, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.attachTeams(ctx, matches); err != nil {
		return nil, err
	}
	if adminView {
		return matches, nil
	}
	censored := make([]*models.Match, len(matches))
	for i, m := range matches {
		censored[i] = m.Censored()
	}
	return censored, nil
}

// attachTeams loads the participating (possibly soft-deleted) teams for a
// batch of matches, fanning the lookups out in parallel.
func (s *matchService) attachTeams(ctx context.Context, matches []*models.Match) error {
	ids := make(map[uuid.UUID]bool)
	for _, m := range matches {
		ids[m.Team1ID] = true
		ids[m.Team2ID] = true
	}

	var mu sync.Mutex
	teams := make(map[uuid.UUID]*models.Team, len(ids))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for id := range ids {
		id := id
		g.Go(func() error {
			t, err := s.teamRepo.GetByID(gCtx, nil, id)
			if err != nil {
				return err
			}
			mu.Lock()
			teams[id] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, m := range matches {
		m.Team1 = teams[m.Team1ID]
		m.Team2 = teams[m.Team2ID]
		if m.WinnerID != nil {
			m.Winner = teams[*m.WinnerID]
		}
	}
	return nil
}

func mapMatchError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound),
		errors.Is(err, repositories.ErrTeamNotFound):
		return ErrNotFound
	}
	return err
}
