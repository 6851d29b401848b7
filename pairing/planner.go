package pairing

import (
	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
)

// PlanParams is the input shared by all match planners. Teams holds the
// eligible (non-deleted) teams of the event, Finished the completed matches
// of the planner's phase, Open the matches of that phase still in flight.
type PlanParams struct {
	EventID  uuid.UUID
	Round    int
	Teams    []*models.Team
	Finished []*models.Match
	Open     []*models.Match
}

// Plan is one batch of generated matches. Byes lists teams that advance by
// walkover: no match row is recorded for them.
type Plan struct {
	Matches []*models.Match
	Byes    []uuid.UUID
}

// Planner produces the next batch of matches for one phase of an event.
// Implementations never touch storage; the same input yields the same
// pairings (match IDs aside).
type Planner interface {
	Name() string
	Plan(params PlanParams) (*Plan, error)
}
