package pairing

import (
	"sort"

	"github.com/Dosada05/arena-engine/models"
	"github.com/google/uuid"
)

// Standing is one team's position derived from finished match history.
type Standing struct {
	TeamID   uuid.UUID `json:"team_id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Buchholz int       `json:"buchholz"`
	Wins     int       `json:"wins"`
	Losses   int       `json:"losses"`
	Draws    int       `json:"draws"`
	Played   int       `json:"played"`
	Rank     int       `json:"rank"`
}

// ComputeStandings recomputes standings from scratch: one point per win plus
// one per bye round, tie-broken by Buchholz (sum of all faced opponents'
// scores, byes excluded) and then by team ID so the order is total.
//
// Deleted teams are excluded from the result but their finished matches still
// feed their former opponents' Buchholz. Reveal state is never consulted;
// standings drive pairing regardless of public visibility.
func ComputeStandings(teams []*models.Team, finished []*models.Match) []Standing {
	byID := make(map[uuid.UUID]*models.Team, len(teams))
	rows := make(map[uuid.UUID]*Standing, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
		rows[t.ID] = &Standing{
			TeamID: t.ID,
			Name:   t.Name,
			Score:  t.ByeRounds,
		}
	}

	score := make(map[uuid.UUID]int, len(teams))
	for _, t := range teams {
		score[t.ID] = t.ByeRounds
	}
	opponents := make(map[uuid.UUID][]uuid.UUID)

	for _, m := range finished {
		if m.State != models.MatchFinished {
			continue
		}
		for _, id := range m.Teams() {
			opp := m.Opponent(id)
			opponents[id] = append(opponents[id], opp)
			row := rows[id]
			if row == nil {
				// Deleted team: track score for opponents' Buchholz only.
				continue
			}
			row.Played++
			switch {
			case m.WinnerID == nil:
				row.Draws++
			case *m.WinnerID == id:
				row.Wins++
			default:
				row.Losses++
			}
		}
		if m.WinnerID != nil {
			score[*m.WinnerID]++
		}
	}

	result := make([]Standing, 0, len(rows))
	for id, row := range rows {
		row.Score = score[id]
		for _, opp := range opponents[id] {
			row.Buchholz += score[opp]
		}
		result = append(result, *row)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Buchholz != b.Buchholz {
			return a.Buchholz > b.Buchholz
		}
		return a.TeamID.String() < b.TeamID.String()
	})
	for i := range result {
		result[i].Rank = i + 1
	}
	return result
}
