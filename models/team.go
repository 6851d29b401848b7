package models

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID      uuid.UUID `json:"id" db:"id"`
	EventID uuid.UUID `json:"event_id" db:"event_id"`
	Name    string    `json:"name" db:"name"`

	// QueueScore is the ladder rating used only during the queue phase.
	QueueScore int `json:"queue_score" db:"queue_score"`

	// Score is tournament points earned in swiss rounds and byes.
	Score int `json:"score" db:"score"`

	// BuchholzPoints is the cached tie-break metric, recomputed from match
	// history when swiss play closes.
	BuchholzPoints int `json:"buchholz_points" db:"buchholz_points"`

	// StartedRepoCreationAt marks readiness; a team without it is never
	// scheduled by the queue matchmaker.
	StartedRepoCreationAt *time.Time `json:"started_repo_creation_at,omitempty" db:"started_repo_creation_at"`

	HadBye    bool `json:"had_bye" db:"had_bye"`
	ByeRounds int  `json:"bye_rounds" db:"bye_rounds"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Deleted reports whether the team has withdrawn. Deleted teams stay in
// historical match records but are excluded from pairing and standings.
func (t *Team) Deleted() bool {
	return t.DeletedAt != nil
}

// Ready reports whether the team may be scheduled by the queue matchmaker.
func (t *Team) Ready() bool {
	return !t.Deleted() && t.StartedRepoCreationAt != nil
}
