package pairing

import (
	"errors"
	"fmt"

	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
)

var (
	ErrRoundIncomplete = errors.New("previous bracket round is not finished")
	ErrBracketDone     = errors.New("bracket is complete")
)

// EliminationPlanner seeds and advances a single-elimination bracket.
//
// params.Teams must be in seed order, best first. The bracket is never
// stored as a structure of its own: every invocation replays the seeding and
// the finished elimination matches in params.Finished, so the same history
// always yields the same bracket. Placement matches are ignored by the
// replay; they never advance anyone.
type EliminationPlanner struct{}

func NewEliminationPlanner() *EliminationPlanner {
	return &EliminationPlanner{}
}

func (p *EliminationPlanner) Name() string {
	return "SingleElimination"
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// BracketRounds returns the number of rounds in a bracket of the given size.
func BracketRounds(size int) int {
	rounds := 0
	for size > 1 {
		size >>= 1
		rounds++
	}
	return rounds
}

// seedOrder lays seeds into bracket slots so that seed 1 meets the lowest
// seed first and seeds 1 and 2 can only meet in the final.
func seedOrder(size int) []int {
	order := make([]int, size)
	for i := 0; i < size; i += 2 {
		order[i] = i
	}
	for i := 1; i < size; i += 2 {
		order[i] = size - i
	}
	return order
}

// Plan generates the next batch of bracket matches: round 1 on the first
// call (byes go to the top seeds when the team count is short of the bracket
// size), each later round once every match of the previous round is
// finished. Alongside the final it emits the third-place placement match
// from the semifinal losers. Returns ErrBracketDone once the final is over.
func (p *EliminationPlanner) Plan(params PlanParams) (*Plan, error) {
	n := len(params.Teams)
	if n < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrNotEnoughTeams, n)
	}

	size := NextPowerOfTwo(n)
	totalRounds := BracketRounds(size)

	finished := make(map[[2]int]*models.Match)
	for _, m := range params.Finished {
		if m.IsPlacementMatch || m.State != models.MatchFinished {
			continue
		}
		finished[[2]int{m.Round, m.OrderInRound}] = m
	}
	existing := make(map[[2]int]bool)
	for _, m := range append(params.Open, params.Finished...) {
		if m.IsPlacementMatch {
			continue
		}
		existing[[2]int{m.Round, m.OrderInRound}] = true
	}

	current := make([]*uuid.UUID, size)
	for slot, seed := range seedOrder(size) {
		if seed < n {
			id := params.Teams[seed].ID
			current[slot] = &id
		}
	}

	for round := 1; round <= totalRounds; round++ {
		next := make([]*uuid.UUID, 0, len(current)/2)
		plan := &Plan{}
		complete := true

		for i := 0; i+1 < len(current); i += 2 {
			order := i/2 + 1
			a, b := current[i], current[i+1]
			switch {
			case a != nil && b == nil:
				next = append(next, a)
				if round == 1 {
					plan.Byes = append(plan.Byes, *a)
				}
			case a == nil && b != nil:
				next = append(next, b)
				if round == 1 {
					plan.Byes = append(plan.Byes, *b)
				}
			case a == nil && b == nil:
				return nil, fmt.Errorf("empty bracket pair at round %d order %d", round, order)
			default:
				if m, ok := finished[[2]int{round, order}]; ok && m.WinnerID != nil {
					next = append(next, m.WinnerID)
					continue
				}
				complete = false
				next = append(next, nil)
				if !existing[[2]int{round, order}] {
					plan.Matches = append(plan.Matches, &models.Match{
						ID:           uuid.New(),
						EventID:      params.EventID,
						Phase:        models.PhaseElimination,
						Round:        round,
						OrderInRound: order,
						State:        models.MatchPlanned,
						Team1ID:      *a,
						Team2ID:      *b,
					})
				}
			}
		}

		if len(plan.Matches) > 0 {
			if round == totalRounds && totalRounds >= 2 {
				if placement := p.placementMatch(params, finished, totalRounds); placement != nil {
					plan.Matches = append(plan.Matches, placement)
				}
			}
			return plan, nil
		}
		if !complete {
			// Matches for this round exist but are not all finished.
			return nil, ErrRoundIncomplete
		}
		current = next
	}

	return nil, ErrBracketDone
}

// placementMatch builds the third-place match from the semifinal losers,
// unless one already exists.
func (p *EliminationPlanner) placementMatch(params PlanParams, finished map[[2]int]*models.Match, totalRounds int) *models.Match {
	for _, m := range append(params.Open, params.Finished...) {
		if m.IsPlacementMatch {
			return nil
		}
	}

	losers := make([]uuid.UUID, 0, 2)
	for order := 1; order <= 2; order++ {
		m, ok := finished[[2]int{totalRounds - 1, order}]
		if !ok || m.WinnerID == nil {
			return nil
		}
		losers = append(losers, m.Opponent(*m.WinnerID))
	}

	return &models.Match{
		ID:               uuid.New(),
		EventID:          params.EventID,
		Phase:            models.PhaseElimination,
		Round:            totalRounds,
		OrderInRound:     2,
		State:            models.MatchPlanned,
		IsPlacementMatch: true,
		Team1ID:          losers[0],
		Team2ID:          losers[1],
	}
}

// Champion returns the winner of the final, or nil while the bracket is
// still running.
func Champion(teamCount int, matches []*models.Match) *uuid.UUID {
	if teamCount < 2 {
		return nil
	}
	totalRounds := BracketRounds(NextPowerOfTwo(teamCount))
	for _, m := range matches {
		if m.Phase != models.PhaseElimination || m.IsPlacementMatch {
			continue
		}
		if m.Round == totalRounds && m.OrderInRound == 1 && m.State == models.MatchFinished {
			return m.WinnerID
		}
	}
	return nil
}
