package pairing

import (
	"sort"

	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
)

// QueuePlanner pairs available teams during the queue phase, minimizing the
// rating gap inside each pair.
type QueuePlanner struct{}

func NewQueuePlanner() *QueuePlanner {
	return &QueuePlanner{}
}

func (p *QueuePlanner) Name() string {
	return "Queue"
}

// Plan selects teams that are ready and not already booked into an open
// queue match, sorts them by queue rating, and greedily pairs the closest
// rated neighbours first. With an odd count the leftover team waits for the
// next invocation; producing no matches is not an error.
func (p *QueuePlanner) Plan(params PlanParams) (*Plan, error) {
	booked := make(map[uuid.UUID]bool)
	for _, m := range params.Open {
		if m.Open() {
			booked[m.Team1ID] = true
			booked[m.Team2ID] = true
		}
	}

	available := make([]*models.Team, 0, len(params.Teams))
	for _, t := range params.Teams {
		if t.Ready() && !booked[t.ID] {
			available = append(available, t)
		}
	}

	sort.Slice(available, func(i, j int) bool {
		if available[i].QueueScore != available[j].QueueScore {
			return available[i].QueueScore < available[j].QueueScore
		}
		return available[i].ID.String() < available[j].ID.String()
	})

	plan := &Plan{}
	for len(available) >= 2 {
		// Closest adjacent pair in the remaining sorted list.
		best := 0
		bestGap := available[1].QueueScore - available[0].QueueScore
		for i := 1; i+1 < len(available); i++ {
			gap := available[i+1].QueueScore - available[i].QueueScore
			if gap < bestGap {
				best, bestGap = i, gap
			}
		}
		t1, t2 := available[best], available[best+1]
		plan.Matches = append(plan.Matches, &models.Match{
			ID:      uuid.New(),
			EventID: params.EventID,
			Phase:   models.PhaseQueue,
			Round:   params.Round,
			State:   models.MatchPlanned,
			Team1ID: t1.ID,
			Team2ID: t2.ID,
		})
		available = append(available[:best], available[best+2:]...)
	}
	return plan, nil
}
