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
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name is already in use for this event")
	ErrTeamInvalidEvent = errors.New("invalid event reference")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Team, error)
	// ListByEvent returns the event's live teams; withDeleted additionally
	// includes soft-deleted ones for historical reads.
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, withDeleted bool) ([]*models.Team, error)
	CountByEvent(ctx context.Context, exec SQLExecutor, eventID uuid.UUID) (int, error)
	SetQueueScore(ctx context.Context, exec SQLExecutor, id uuid.UUID, score int) error
	IncrementScore(ctx context.Context, exec SQLExecutor, id uuid.UUID, delta int) error
	UpdateBuchholz(ctx context.Context, exec SQLExecutor, id uuid.UUID, points int) error
	// GrantBye marks the team's bye for fairness and credits the walkover.
	GrantBye(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	MarkRepoCreationStarted(ctx context.Context, exec SQLExecutor, id uuid.UUID, at time.Time) error
	UpdateLogoKey(ctx context.Context, id uuid.UUID, logoKey *string) error
	SoftDelete(ctx context.Context, exec SQLExecutor, id uuid.UUID, at time.Time) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `
	id, event_id, name, queue_score, score, buchholz_points,
	started_repo_creation_at, had_bye, bye_rounds, logo_key, created_at, deleted_at`

func (r *postgresTeamRepository) Create(ctx context.Context, t *models.Team) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := `
		INSERT INTO teams (id, event_id, name, queue_score)
		VALUES ($1, $2, $3, $4)
		RETURNING queue_score, created_at`

	err := r.db.QueryRowContext(ctx, query, t.ID, t.EventID, t.Name, t.QueueScore).
		Scan(&t.QueueScore, &t.CreatedAt)
	return handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	t := &models.Team{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.EventID, &t.Name, &t.QueueScore, &t.Score, &t.BuchholzPoints,
		&t.StartedRepoCreationAt, &t.HadBye, &t.ByeRounds, &t.LogoKey, &t.CreatedAt, &t.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID uuid.UUID, withDeleted bool) ([]*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + teamColumns + ` FROM teams WHERE event_id = $1`
	if !withDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY name ASC`

	rows, err := executor.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t := &models.Team{}
		if scanErr := rows.Scan(
			&t.ID, &t.EventID, &t.Name, &t.QueueScore, &t.Score, &t.BuchholzPoints,
			&t.StartedRepoCreationAt, &t.HadBye, &t.ByeRounds, &t.LogoKey, &t.CreatedAt, &t.DeletedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) CountByEvent(ctx context.Context, exec SQLExecutor, eventID uuid.UUID) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teams WHERE event_id = $1 AND deleted_at IS NULL`, eventID,
	).Scan(&count)
	return count, err
}

func (r *postgresTeamRepository) SetQueueScore(ctx context.Context, exec SQLExecutor, id uuid.UUID, score int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET queue_score = $1 WHERE id = $2`, score, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) IncrementScore(ctx context.Context, exec SQLExecutor, id uuid.UUID, delta int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET score = score + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateBuchholz(ctx context.Context, exec SQLExecutor, id uuid.UUID, points int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET buchholz_points = $1 WHERE id = $2`, points, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) GrantBye(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET had_bye = true, bye_rounds = bye_rounds + 1, score = score + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) MarkRepoCreationStarted(ctx context.Context, exec SQLExecutor, id uuid.UUID, at time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET started_repo_creation_at = $1 WHERE id = $2 AND started_repo_creation_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, id uuid.UUID, logoKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update team logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) SoftDelete(ctx context.Context, exec SQLExecutor, id uuid.UUID, at time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE teams SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrTeamNameConflict
		case "23503":
			return ErrTeamInvalidEvent
		}
	}
	return err
}
