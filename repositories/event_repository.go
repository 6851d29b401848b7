package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventNameConflict = errors.New("event name is already in use")
	// ErrEventVersionConflict signals a stale read: another writer committed
	// a newer version of the event since it was loaded.
	ErrEventVersionConflict = errors.New("event was modified concurrently")
)

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
	// UpdateProgress writes the lifecycle facts (flags, timestamps, round
	// cursor) guarded by the version the event was read at. On success the
	// in-memory version is bumped; a stale version yields
	// ErrEventVersionConflict and nothing is written.
	UpdateProgress(ctx context.Context, exec SQLExecutor, event *models.Event) error
	// ListQueueProcessing returns events whose queue scheduling is active.
	ListQueueProcessing(ctx context.Context, exec SQLExecutor) ([]*models.Event, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const eventColumns = `
	id, name, description, can_create_team, process_queue,
	locked_at, finished_at, current_round, swiss_rounds, version, created_at`

func (r *postgresEventRepository) Create(ctx context.Context, e *models.Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `
		INSERT INTO events (id, name, description, can_create_team, process_queue, swiss_rounds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING version, created_at`

	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.Name, e.Description, e.CanCreateTeam, e.ProcessQueue, e.SwissRounds,
	).Scan(&e.Version, &e.CreatedAt)
	return handleEventError(err)
}

func (r *postgresEventRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Event, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e := &models.Event{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.Description, &e.CanCreateTeam, &e.ProcessQueue,
		&e.LockedAt, &e.FinishedAt, &e.CurrentRound, &e.SwissRounds, &e.Version, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresEventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		if scanErr := rows.Scan(
			&e.ID, &e.Name, &e.Description, &e.CanCreateTeam, &e.ProcessQueue,
			&e.LockedAt, &e.FinishedAt, &e.CurrentRound, &e.SwissRounds, &e.Version, &e.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) UpdateProgress(ctx context.Context, exec SQLExecutor, e *models.Event) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE events SET
			can_create_team = $1,
			process_queue = $2,
			locked_at = $3,
			finished_at = $4,
			current_round = $5,
			swiss_rounds = $6,
			version = version + 1
		WHERE id = $7 AND version = $8`

	result, err := executor.ExecContext(ctx, query,
		e.CanCreateTeam, e.ProcessQueue, e.LockedAt, e.FinishedAt,
		e.CurrentRound, e.SwissRounds, e.ID, e.Version,
	)
	if err != nil {
		return handleEventError(err)
	}
	if err := checkAffectedRows(result, ErrEventVersionConflict); err != nil {
		return err
	}
	e.Version++
	return nil
}

func (r *postgresEventRepository) ListQueueProcessing(ctx context.Context, exec SQLExecutor) ([]*models.Event, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE process_queue = true AND locked_at IS NOT NULL AND finished_at IS NULL`

	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e := &models.Event{}
		if scanErr := rows.Scan(
			&e.ID, &e.Name, &e.Description, &e.CanCreateTeam, &e.ProcessQueue,
			&e.LockedAt, &e.FinishedAt, &e.CurrentRound, &e.SwissRounds, &e.Version, &e.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func handleEventError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "events_name_key" {
			return ErrEventNameConflict
		}
	}
	return err
}
