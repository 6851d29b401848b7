package pairing

import (
	"errors"
	"fmt"

	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
)

var ErrNotEnoughTeams = errors.New("not enough teams to pair a round")

// MaxSwissRounds is the default number of swiss rounds for n teams: enough
// rounds for an undefeated leader to emerge, ceil(log2(n)).
func MaxSwissRounds(n int) int {
	rounds := 0
	for size := 1; size < n; size <<= 1 {
		rounds++
	}
	return rounds
}

// SwissPlanner produces exactly one swiss round per invocation. Teams are
// ranked by the standings rule (score, Buchholz, ID) and paired top-down,
// each team against the nearest-ranked opponent it has not already played.
type SwissPlanner struct{}

func NewSwissPlanner() *SwissPlanner {
	return &SwissPlanner{}
}

func (p *SwissPlanner) Name() string {
	return "Swiss"
}

// Plan pairs the round given the finished swiss history in params.Finished.
// Rematch avoidance swaps a candidate further down the list; when no
// unplayed candidate exists for a pair, the constraint is relaxed for that
// pair alone rather than dropping a team. With an odd team count the lowest
// ranked team without a prior bye is given a walkover.
func (p *SwissPlanner) Plan(params PlanParams) (*Plan, error) {
	if len(params.Teams) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrNotEnoughTeams, len(params.Teams))
	}

	played := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, m := range params.Finished {
		if m.State != models.MatchFinished {
			continue
		}
		addOpponent(played, m.Team1ID, m.Team2ID)
		addOpponent(played, m.Team2ID, m.Team1ID)
	}

	standings := ComputeStandings(params.Teams, params.Finished)
	byID := make(map[uuid.UUID]*models.Team, len(params.Teams))
	for _, t := range params.Teams {
		byID[t.ID] = t
	}
	ranked := make([]*models.Team, len(standings))
	for i, s := range standings {
		ranked[i] = byID[s.TeamID]
	}

	plan := &Plan{}
	if len(ranked)%2 != 0 {
		bye := pickBye(ranked)
		plan.Byes = append(plan.Byes, bye.ID)
		ranked = remove(ranked, bye)
	}

	order := 0
	for len(ranked) > 0 {
		top := ranked[0]
		ranked = ranked[1:]

		pick := -1
		for i := range ranked {
			if !played[top.ID][ranked[i].ID] {
				pick = i
				break
			}
		}
		if pick == -1 {
			// Every remaining candidate is a rematch; relax for this pair
			// only and take the nearest one.
			pick = 0
		}
		opp := ranked[pick]
		ranked = append(ranked[:pick], ranked[pick+1:]...)

		order++
		plan.Matches = append(plan.Matches, &models.Match{
			ID:           uuid.New(),
			EventID:      params.EventID,
			Phase:        models.PhaseSwiss,
			Round:        params.Round,
			OrderInRound: order,
			State:        models.MatchPlanned,
			Team1ID:      top.ID,
			Team2ID:      opp.ID,
		})
	}
	return plan, nil
}

// pickBye returns the lowest-ranked team that has not had a bye yet, or the
// lowest-ranked team outright when everyone already had one.
func pickBye(ranked []*models.Team) *models.Team {
	for i := len(ranked) - 1; i >= 0; i-- {
		if !ranked[i].HadBye {
			return ranked[i]
		}
	}
	return ranked[len(ranked)-1]
}

func addOpponent(played map[uuid.UUID]map[uuid.UUID]bool, a, b uuid.UUID) {
	if played[a] == nil {
		played[a] = make(map[uuid.UUID]bool)
	}
	played[a][b] = true
}

func remove(teams []*models.Team, t *models.Team) []*models.Team {
	out := teams[:0]
	for _, x := range teams {
		if x.ID != t.ID {
			out = append(out, x)
		}
	}
	return out
}
