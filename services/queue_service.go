package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/arena-engine/models"
	"github.com/Dosada05/arena-engine/notify"
	"github.com/Dosada05/arena-engine/pairing"
	"github.com/Dosada05/arena-engine/repositories"
	"github.com/google/uuid"
)

// QueueService is the recurring ladder matchmaker. RunOnce is invoked from a
// timer in cmd; it pairs available teams for every event whose queue
// scheduling is active. Each event is processed inside its own region, so a
// run can never overlap a lifecycle transition or another run on the same
// event.
type QueueService interface {
	RunOnce(ctx context.Context) error
	RunEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Match, error)
}

type queueService struct {
	db        *sql.DB
	eventRepo repositories.EventRepository
	teamRepo  repositories.TeamRepository
	matchRepo repositories.MatchRepository
	locker    *EventLocker
	planner   *pairing.QueuePlanner
	hub       *notify.Hub
	logger    *slog.Logger
}

func NewQueueService(
	db *sql.DB,
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	locker *EventLocker,
	hub *notify.Hub,
	logger *slog.Logger,
) QueueService {
	return &queueService{
		db:        db,
		eventRepo: eventRepo,
		teamRepo:  teamRepo,
		matchRepo: matchRepo,
		locker:    locker,
		planner:   pairing.NewQueuePlanner(),
		hub:       hub,
		logger:    logger,
	}
}

func (s *queueService) RunOnce(ctx context.Context) error {
	events, err := s.eventRepo.ListQueueProcessing(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list queueing events: %w", err)
	}

	for _, event := range events {
		created, err := s.RunEvent(ctx, event.ID)
		switch {
		case errors.Is(err, ErrBusy):
			// Another operation holds the event; the next tick retries.
			continue
		case err != nil:
			s.logger.Error("queue matchmaking failed",
				slog.String("event_id", event.ID.String()), slog.Any("error", err))
		case len(created) > 0:
			s.logger.Info("queue matches created",
				slog.String("event_id", event.ID.String()), slog.Int("count", len(created)))
		}
	}
	return nil
}

// RunEvent pairs available teams of one event. A team is available when it
// has started repo creation, has not withdrawn, and is not already booked
// into an unfinished queue match.
func (s *queueService) RunEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Match, error) {
	release, err := s.locker.Acquire(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	event, err := s.eventRepo.GetByID(ctx, tx, eventID)
	if err != nil {
		return nil, mapEventError(err)
	}
	if !event.ProcessQueue || event.LockedAt == nil || event.FinishedAt != nil {
		return nil, nil
	}

	teams, err := s.teamRepo.ListByEvent(ctx, tx, eventID, false)
	if err != nil {
		return nil, err
	}
	queuePhase := models.PhaseQueue
	open, err := s.matchRepo.ListByEvent(ctx, tx, eventID, repositories.MatchFilter{
		Phase: &queuePhase, OnlyOpen: true,
	})
	if err != nil {
		return nil, err
	}
	tick, err := s.matchRepo.MaxRound(ctx, tx, eventID, models.PhaseQueue)
	if err != nil {
		return nil, err
	}

	plan, err := s.planner.Plan(pairing.PlanParams{
		EventID: eventID,
		Round:   tick + 1,
		Teams:   teams,
		Open:    open,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range plan.Matches {
		if err := s.matchRepo.Create(ctx, tx, m); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if len(plan.Matches) > 0 {
		s.hub.Publish(eventID.String(), notify.TypeMatchesCreated, plan.Matches)
	}
	return plan.Matches, nil
}
