package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/arena-engine/models"
	"github.com/Dosada05/arena-engine/notify"
	"github.com/Dosada05/arena-engine/repositories"
	"github.com/google/uuid"
)

// In-memory repository fakes. They ignore the SQLExecutor argument: the
// tests built on them exercise service logic, not transaction plumbing.

type memEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{events: make(map[uuid.UUID]*models.Event)}
}

func (r *memEventRepo) Create(_ context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *memEventRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	clone := *event
	return &clone, nil
}

func (r *memEventRepo) List(_ context.Context) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memEventRepo) UpdateProgress(_ context.Context, _ repositories.SQLExecutor, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[event.ID]
	if !ok {
		return repositories.ErrEventNotFound
	}
	if stored.Version != event.Version {
		return repositories.ErrEventVersionConflict
	}
	clone := *event
	clone.Version++
	r.events[event.ID] = &clone
	event.Version = clone.Version
	return nil
}

func (r *memEventRepo) ListQueueProcessing(_ context.Context, _ repositories.SQLExecutor) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Event, 0)
	for _, e := range r.events {
		if e.ProcessQueue && e.LockedAt != nil && e.FinishedAt == nil {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

type memTeamRepo struct {
	mu    sync.Mutex
	teams map[uuid.UUID]*models.Team
}

func newMemTeamRepo() *memTeamRepo {
	return &memTeamRepo{teams: make(map[uuid.UUID]*models.Team)}
}

func (r *memTeamRepo) put(t *models.Team) {
	clone := *t
	r.teams[t.ID] = &clone
}

func (r *memTeamRepo) Create(_ context.Context, t *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	for _, existing := range r.teams {
		if existing.EventID == t.EventID && existing.Name == t.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	t.CreatedAt = time.Now()
	r.put(t)
	return nil
}

func (r *memTeamRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memTeamRepo) ListByEvent(_ context.Context, _ repositories.SQLExecutor, eventID uuid.UUID, withDeleted bool) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Team, 0)
	for _, t := range r.teams {
		if t.EventID != eventID {
			continue
		}
		if t.DeletedAt != nil && !withDeleted {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memTeamRepo) CountByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID uuid.UUID) (int, error) {
	teams, err := r.ListByEvent(ctx, exec, eventID, false)
	return len(teams), err
}

func (r *memTeamRepo) update(id uuid.UUID, fn func(t *models.Team) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok || !fn(t) {
		return repositories.ErrTeamNotFound
	}
	return nil
}

func (r *memTeamRepo) SetQueueScore(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, score int) error {
	return r.update(id, func(t *models.Team) bool { t.QueueScore = score; return true })
}

func (r *memTeamRepo) IncrementScore(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, delta int) error {
	return r.update(id, func(t *models.Team) bool { t.Score += delta; return true })
}

func (r *memTeamRepo) UpdateBuchholz(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, points int) error {
	return r.update(id, func(t *models.Team) bool { t.BuchholzPoints = points; return true })
}

func (r *memTeamRepo) GrantBye(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID) error {
	return r.update(id, func(t *models.Team) bool {
		t.HadBye = true
		t.ByeRounds++
		t.Score++
		return true
	})
}

func (r *memTeamRepo) MarkRepoCreationStarted(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, at time.Time) error {
	return r.update(id, func(t *models.Team) bool {
		if t.StartedRepoCreationAt != nil {
			return false
		}
		t.StartedRepoCreationAt = &at
		return true
	})
}

func (r *memTeamRepo) UpdateLogoKey(_ context.Context, id uuid.UUID, logoKey *string) error {
	return r.update(id, func(t *models.Team) bool { t.LogoKey = logoKey; return true })
}

func (r *memTeamRepo) SoftDelete(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, at time.Time) error {
	return r.update(id, func(t *models.Team) bool {
		if t.DeletedAt != nil {
			return false
		}
		t.DeletedAt = &at
		return true
	})
}

type memMatchRepo struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*models.Match
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{matches: make(map[uuid.UUID]*models.Match)}
}

func (r *memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	clone := *m
	r.matches[m.ID] = &clone
	return nil
}

func (r *memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *memMatchRepo) ListByEvent(_ context.Context, _ repositories.SQLExecutor, eventID uuid.UUID, filter repositories.MatchFilter) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.EventID != eventID {
			continue
		}
		if filter.Phase != nil && m.Phase != *filter.Phase {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.State != nil && m.State != *filter.State {
			continue
		}
		if filter.OnlyOpen && !m.Open() {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			if filter.Desc {
				return out[i].Round > out[j].Round
			}
			return out[i].Round < out[j].Round
		}
		if filter.Desc {
			return out[i].OrderInRound > out[j].OrderInRound
		}
		return out[i].OrderInRound < out[j].OrderInRound
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memMatchRepo) ListForTeam(_ context.Context, _ repositories.SQLExecutor, teamID uuid.UUID) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.Has(teamID) {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memMatchRepo) mutate(id uuid.UUID, fn func(m *models.Match)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	fn(m)
	return nil
}

func (r *memMatchRepo) UpdateState(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, from, to models.MatchState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if m.State != from {
		return repositories.ErrMatchStateConflict
	}
	m.State = to
	return nil
}

func (r *memMatchRepo) Finish(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, winnerID *uuid.UUID, team1Score, team2Score int, at time.Time) error {
	return r.mutate(id, func(m *models.Match) {
		m.State = models.MatchFinished
		m.WinnerID = winnerID
		m.Team1Score = &team1Score
		m.Team2Score = &team2Score
		m.FinishedAt = &at
	})
}

func (r *memMatchRepo) Reveal(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID) error {
	return r.mutate(id, func(m *models.Match) { m.IsRevealed = true })
}

func (r *memMatchRepo) RevealAllInPhase(_ context.Context, _ repositories.SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.EventID == eventID && m.Phase == phase && m.State == models.MatchFinished {
			m.IsRevealed = true
		}
	}
	return nil
}

func (r *memMatchRepo) CountOpen(_ context.Context, _ repositories.SQLExecutor, eventID uuid.UUID, phase models.MatchPhase, round int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.matches {
		if m.EventID == eventID && m.Phase == phase && m.Round == round && m.Open() {
			count++
		}
	}
	return count, nil
}

func (r *memMatchRepo) MaxRound(_ context.Context, _ repositories.SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, m := range r.matches {
		if m.EventID == eventID && m.Phase == phase && m.Round > max {
			max = m.Round
		}
	}
	return max, nil
}

func (r *memMatchRepo) HasAnyInPhase(_ context.Context, _ repositories.SQLExecutor, eventID uuid.UUID, phase models.MatchPhase) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.EventID == eventID && m.Phase == phase {
			return true, nil
		}
	}
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHub() *notify.Hub {
	return notify.NewHub(testLogger())
}
