// Package stats derives aggregate mood metrics from a store snapshot and
// implements the list filter. Only verified entries ever contribute to an
// aggregate.
package stats

import (
	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
)

// Bucket thresholds over the 0-10 mood scale.
const (
	PositiveFrom = 7
	NeutralFrom  = 4
)

// TeamTrend is the mean verified mood of one team.
type TeamTrend struct {
	Team    string  `json:"team"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Stats is the aggregate view of a snapshot.
type Stats struct {
	TotalEntries  int         `json:"total_entries"`
	VerifiedCount int         `json:"verified_count"`
	AverageMood   float64     `json:"average_mood"`
	PositiveCount int         `json:"positive_count"`
	NeutralCount  int         `json:"neutral_count"`
	NegativeCount int         `json:"negative_count"`
	TeamTrends    []TeamTrend `json:"team_trends"`
}

// Compute aggregates entries. It never reads DecryptedValue of an
// unverified entry.
func Compute(entries []models.Entry) Stats {
	s := Stats{TotalEntries: len(entries), TeamTrends: []TeamTrend{}}

	sum := 0
	index := make(map[string]int)
	sums := make([]int, 0)

	for _, e := range entries {
		if !e.IsVerified {
			continue
		}
		v := e.DecryptedValue
		s.VerifiedCount++
		sum += v

		switch {
		case v >= PositiveFrom:
			s.PositiveCount++
		case v >= NeutralFrom:
			s.NeutralCount++
		default:
			s.NegativeCount++
		}

		if !e.HasTeam() {
			continue
		}
		i, ok := index[e.Team]
		if !ok {
			i = len(s.TeamTrends)
			index[e.Team] = i
			s.TeamTrends = append(s.TeamTrends, TeamTrend{Team: e.Team})
			sums = append(sums, 0)
		}
		sums[i] += v
		s.TeamTrends[i].Count++
	}

	if s.VerifiedCount > 0 {
		s.AverageMood = float64(sum) / float64(s.VerifiedCount)
	}
	for i := range s.TeamTrends {
		s.TeamTrends[i].Average = float64(sums[i]) / float64(s.TeamTrends[i].Count)
	}

	return s
}

// TeamTrendMap returns team averages keyed by team name.
func (s Stats) TeamTrendMap() map[string]float64 {
	m := make(map[string]float64, len(s.TeamTrends))
	for _, t := range s.TeamTrends {
		m[t.Team] = t.Average
	}
	return m
}
