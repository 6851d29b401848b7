package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchInvalidTeam   = errors.New("invalid team reference")
	ErrMatchStateConflict = errors.New("match is not in the expected state")
)

// MatchFilter narrows ListByEvent. Nil fields match everything.
type MatchFilter struct {
	Phase    *models.MatchPhase
	Round    *int
	State    *models.MatchState
	OnlyOpen bool
	// Desc returns newest matches first; combine with Limit for recent
	// history reads.
	Desc  bool
	Limit int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, filter MatchFilter) ([]*models.Match, error)
	ListForTeam(ctx context.Context, exec SQLExecutor, teamID uuid.UUID) ([]*models.Match, error)
	// UpdateState moves a match from one state to the next. The update is
	// guarded on the current state so concurrent writers cannot move a
	// match backwards; a guard miss returns ErrMatchStateConflict.
	UpdateState(ctx context.Context, exec SQLExecutor, id uuid.UUID, from, to models.MatchState) error
	// Finish records the outcome; a nil winner is a draw.
	Finish(ctx context.Context, exec SQLExecutor, id uuid.UUID, winnerID *uuid.UUID, team1Score, team2Score int, at time.Time) error
	Reveal(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	RevealAllInPhase(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) error
	CountOpen(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, phase models.MatchPhase, round int) (int, error)
	MaxRound(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) (int, error)
	HasAnyInPhase(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) (bool, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, event_id, phase, round, order_in_round, state, is_revealed, is_placement_match,
	team1_id, team2_id, winner_id, team1_score, team2_score, created_at, finished_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	query := `
		INSERT INTO matches (
			id, event_id, phase, round, order_in_round, state,
			is_revealed, is_placement_match, team1_id, team2_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		m.ID, m.EventID, m.Phase, m.Round, m.OrderInRound, m.State,
		m.IsRevealed, m.IsPlacementMatch, m.Team1ID, m.Team2ID,
	).Scan(&m.CreatedAt)
	return handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.EventID, &m.Phase, &m.Round, &m.OrderInRound, &m.State, &m.IsRevealed, &m.IsPlacementMatch,
		&m.Team1ID, &m.Team2ID, &m.WinnerID, &m.Team1Score, &m.Team2Score, &m.CreatedAt, &m.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, filter MatchFilter) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE event_id = $1`

	args := []interface{}{eventID}
	argID := 2

	if filter.Phase != nil {
		query += fmt.Sprintf(" AND phase = $%d", argID)
		args = append(args, *filter.Phase)
		argID++
	}
	if filter.Round != nil {
		query += fmt.Sprintf(" AND round = $%d", argID)
		args = append(args, *filter.Round)
		argID++
	}
	if filter.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argID)
		args = append(args, *filter.State)
		argID++
	}
	if filter.OnlyOpen {
		query += fmt.Sprintf(" AND state != $%d", argID)
		args = append(args, models.MatchFinished)
		argID++
	}

	if filter.Desc {
		query += " ORDER BY created_at DESC, order_in_round DESC"
	} else {
		query += " ORDER BY created_at ASC, order_in_round ASC"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (r *postgresMatchRepository) ListForTeam(ctx context.Context, exec SQLExecutor, teamID uuid.UUID) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE team1_id = $1 OR team2_id = $1
		ORDER BY created_at DESC`

	rows, err := executor.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (r *postgresMatchRepository) UpdateState(ctx context.Context, exec SQLExecutor, id uuid.UUID, from, to models.MatchState) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET state = $1 WHERE id = $2 AND state = $3`, to, id, from)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) Finish(ctx context.Context, exec SQLExecutor, id uuid.UUID, winnerID *uuid.UUID, team1Score, team2Score int, at time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET
			state = $1, winner_id = $2, team1_score = $3, team2_score = $4, finished_at = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		models.MatchFinished, winnerID, team1Score, team2Score, at, id)
	if err != nil {
		return handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Reveal(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET is_revealed = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) RevealAllInPhase(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`UPDATE matches SET is_revealed = true
		 WHERE event_id = $1 AND phase = $2 AND state = $3`,
		eventID, phase, models.MatchFinished)
	return err
}

func (r *postgresMatchRepository) CountOpen(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, phase models.MatchPhase, round int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches
		 WHERE event_id = $1 AND phase = $2 AND round = $3 AND state != $4`,
		eventID, phase, round, models.MatchFinished,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) MaxRound(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) (int, error) {
	executor := r.getExecutor(exec)
	var round int
	err := executor.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(round), 0) FROM matches WHERE event_id = $1 AND phase = $2`,
		eventID, phase,
	).Scan(&round)
	return round, err
}

func (r *postgresMatchRepository) HasAnyInPhase(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM matches WHERE event_id = $1 AND phase = $2)`,
		eventID, phase,
	).Scan(&exists)
	return exists, err
}

func scanMatches(rows *sql.Rows) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := rows.Scan(
			&m.ID, &m.EventID, &m.Phase, &m.Round, &m.OrderInRound, &m.State, &m.IsRevealed, &m.IsPlacementMatch,
			&m.Team1ID, &m.Team2ID, &m.WinnerID, &m.Team1Score, &m.Team2Score, &m.CreatedAt, &m.FinishedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		return ErrMatchInvalidTeam
	}
	return err
}
