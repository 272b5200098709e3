package stats

import (
	"strings"

	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
)

// AllTeams is the team filter that matches every entry.
const AllTeams = "all"

// Filter keeps entries whose name or team contains query (case-insensitive)
// and whose team equals team, unless team is AllTeams. Order is preserved.
func Filter(entries []models.Entry, query, team string) []models.Entry {
	q := strings.ToLower(query)

	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if !strings.Contains(strings.ToLower(e.Name), q) && !strings.Contains(strings.ToLower(e.Team), q) {
			continue
		}
		if team != AllTeams && e.Team != team {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Teams lists distinct non-empty team names in order of first appearance.
func Teams(entries []models.Entry) []string {
	seen := make(map[string]struct{})
	teams := make([]string, 0)
	for _, e := range entries {
		if e.Team == "" {
			continue
		}
		if _, ok := seen[e.Team]; ok {
			continue
		}
		seen[e.Team] = struct{}{}
		teams = append(teams, e.Team)
	}
	return teams
}
