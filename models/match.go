package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchPhase string

const (
	PhaseQueue       MatchPhase = "QUEUE"
	PhaseSwiss       MatchPhase = "SWISS"
	PhaseElimination MatchPhase = "ELIMINATION"
)

type MatchState string

const (
	MatchPlanned    MatchState = "PLANNED"
	MatchInProgress MatchState = "IN_PROGRESS"
	MatchFinished   MatchState = "FINISHED"
)

type Match struct {
	ID      uuid.UUID  `json:"id" db:"id"`
	EventID uuid.UUID  `json:"event_id" db:"event_id"`
	Phase   MatchPhase `json:"phase" db:"phase"`

	// Round is the ladder tick for queue matches, the swiss round number, or
	// the bracket depth for elimination matches.
	Round int `json:"round" db:"round"`

	// OrderInRound places an elimination match inside its round; the winner
	// of order k advances to slot (k-1)%2+1 of order ceil(k/2) next round.
	OrderInRound int `json:"order_in_round" db:"order_in_round"`

	State MatchState `json:"state" db:"state"`

	IsRevealed       bool `json:"is_revealed" db:"is_revealed"`
	IsPlacementMatch bool `json:"is_placement_match" db:"is_placement_match"`

	Team1ID uuid.UUID `json:"team1_id" db:"team1_id"`
	Team2ID uuid.UUID `json:"team2_id" db:"team2_id"`

	// WinnerID is set only on FINISHED matches; nil on a finished match
	// means a draw.
	WinnerID *uuid.UUID `json:"winner_id,omitempty" db:"winner_id"`

	// Team1Score/Team2Score snapshot each side's score (queue rating or
	// tournament points, per phase) as of the result.
	Team1Score *int `json:"team1_score,omitempty" db:"team1_score"`
	Team2Score *int `json:"team2_score,omitempty" db:"team2_score"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`

	Team1  *Team `json:"team1,omitempty" db:"-"`
	Team2  *Team `json:"team2,omitempty" db:"-"`
	Winner *Team `json:"winner,omitempty" db:"-"`
}

// Teams returns both participant IDs.
func (m *Match) Teams() [2]uuid.UUID {
	return [2]uuid.UUID{m.Team1ID, m.Team2ID}
}

// Has reports whether the team participates in the match.
func (m *Match) Has(teamID uuid.UUID) bool {
	return m.Team1ID == teamID || m.Team2ID == teamID
}

// Opponent returns the other participant, or uuid.Nil if teamID does not play.
func (m *Match) Opponent(teamID uuid.UUID) uuid.UUID {
	switch teamID {
	case m.Team1ID:
		return m.Team2ID
	case m.Team2ID:
		return m.Team1ID
	}
	return uuid.Nil
}

// Open reports whether the match is still PLANNED or IN_PROGRESS.
func (m *Match) Open() bool {
	return m.State != MatchFinished
}

// Censored returns a copy safe for non-privileged viewers. Queue match
// results bypass the reveal gate but the match ID is still withheld. An
// unrevealed swiss or elimination match is shown as PLANNED with its ID,
// winner, results and participant identities stripped. Revealed matches
// pass through unchanged.
func (m *Match) Censored() *Match {
	if m.Phase == PhaseQueue {
		c := *m
		c.ID = uuid.Nil
		return &c
	}
	if m.IsRevealed {
		return m
	}
	c := *m
	c.ID = uuid.Nil
	c.State = MatchPlanned
	c.Team1ID = uuid.Nil
	c.Team2ID = uuid.Nil
	c.Team1 = nil
	c.Team2 = nil
	c.WinnerID = nil
	c.Winner = nil
	c.Team1Score = nil
	c.Team2Score = nil
	c.FinishedAt = nil
	return &c
}
