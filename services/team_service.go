package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/arena-engine/models"
	"github.com/Dosada05/arena-engine/repositories"
	"github.com/Dosada05/arena-engine/storage"
	"github.com/google/uuid"
)

const defaultQueueScore = 1000

// TeamService manages registration and team state within an event.
type TeamService interface {
	CreateTeam(ctx context.Context, eventID uuid.UUID, name string) (*models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListTeams(ctx context.Context, eventID uuid.UUID, withDeleted bool) ([]*models.Team, error)
	// MarkReady records that the team started preparing its repository.
	// Repeated calls are no-ops; only ready teams enter queue matchmaking.
	MarkReady(ctx context.Context, id uuid.UUID) error
	Withdraw(ctx context.Context, id uuid.UUID) error
	UploadLogo(ctx context.Context, id uuid.UUID, filename, contentType string, reader io.Reader) (*models.Team, error)
}

type teamService struct {
	eventRepo repositories.EventRepository
	teamRepo  repositories.TeamRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewTeamService(
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		eventRepo: eventRepo,
		teamRepo:  teamRepo,
		uploader:  uploader,
		logger:    logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, eventID uuid.UUID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	event, err := s.eventRepo.GetByID(ctx, nil, eventID)
	if err != nil {
		return nil, mapEventError(err)
	}
	if !event.CanCreateTeam || event.LockedAt != nil {
		return nil, ErrRegistrationClosed
	}

	team := &models.Team{
		EventID:    eventID,
		Name:       name,
		QueueScore: defaultQueueScore,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Info("team registered",
		slog.String("event_id", eventID.String()),
		slog.String("team_id", team.ID.String()),
		slog.String("name", team.Name))
	s.populateLogoURL(team)
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTeamError(err)
	}
	s.populateLogoURL(team)
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, eventID uuid.UUID, withDeleted bool) ([]*models.Team, error) {
	teams, err := s.teamRepo.ListByEvent(ctx, nil, eventID, withDeleted)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		s.populateLogoURL(t)
	}
	return teams, nil
}

func (s *teamService) MarkReady(ctx context.Context, id uuid.UUID) error {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapTeamError(err)
	}
	if team.Deleted() {
		return ErrTeamDeleted
	}
	if team.StartedRepoCreationAt != nil {
		return nil
	}
	err = s.teamRepo.MarkRepoCreationStarted(ctx, nil, id, time.Now())
	if errors.Is(err, repositories.ErrTeamNotFound) {
		// Lost the race to a concurrent MarkReady; the mark is in place.
		return nil
	}
	return err
}

func (s *teamService) Withdraw(ctx context.Context, id uuid.UUID) error {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapTeamError(err)
	}
	if team.Deleted() {
		return nil
	}
	if err := s.teamRepo.SoftDelete(ctx, nil, id, time.Now()); err != nil {
		return mapTeamError(err)
	}
	s.logger.Info("team withdrew",
		slog.String("event_id", team.EventID.String()),
		slog.String("team_id", id.String()))
	return nil
}

func (s *teamService) UploadLogo(ctx context.Context, id uuid.UUID, filename, contentType string, reader io.Reader) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTeamError(err)
	}
	if team.Deleted() {
		return nil, ErrTeamDeleted
	}

	ext := ""
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		ext = strings.ToLower(filename[idx:])
	}
	key := fmt.Sprintf("team-logos/%s/%s%s", team.EventID, team.ID, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}

	oldKey := team.LogoKey
	if err := s.teamRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}
	if oldKey != nil && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous logo",
				slog.String("team_id", id.String()),
				slog.String("key", *oldKey),
				slog.Any("error", delErr))
		}
	}

	team.LogoKey = &result.Key
	s.populateLogoURL(team)
	return team, nil
}

func (s *teamService) populateLogoURL(team *models.Team) {
	if s.uploader == nil || team.LogoKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*team.LogoKey)
	team.LogoURL = &url
}

func mapTeamError(err error) error {
	if errors.Is(err, repositories.ErrTeamNotFound) {
		return ErrNotFound
	}
	return err
}
