package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is the root aggregate of a competition. The coarse phase is not
// stored; it is derived from the persisted facts below, see phase.go.
type Event struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	CanCreateTeam bool       `json:"can_create_team" db:"can_create_team"`
	ProcessQueue  bool       `json:"process_queue" db:"process_queue"`
	LockedAt      *time.Time `json:"locked_at,omitempty" db:"locked_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty" db:"finished_at"`

	// CurrentRound is the round cursor for the active phase: the swiss round
	// being played, then the elimination round once the bracket is built.
	CurrentRound int `json:"current_round" db:"current_round"`

	// SwissRounds is how many swiss rounds the event plays. Zero means
	// "decide at queue freeze": ceil(log2(teamCount)).
	SwissRounds int `json:"swiss_rounds" db:"swiss_rounds"`

	// Version guards against stale writes; every committed mutation
	// increments it.
	Version int `json:"-" db:"version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Teams []Team `json:"teams,omitempty" db:"-"`
}
