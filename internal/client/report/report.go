// Package report builds and exports aggregate mood reports. A report only
// carries aggregates over verified entries, never individual values.
package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/client/stats"
)

const ContentType = "application/json"

type Report struct {
	GeneratedAt  time.Time   `json:"generated_at"`
	Contract     string      `json:"contract"`
	PendingCount int         `json:"pending_count"`
	Teams        []string    `json:"teams"`
	Stats        stats.Stats `json:"stats"`
}

// Exporter stores a report and returns where it went.
type Exporter interface {
	Export(ctx context.Context, r Report) (string, error)
}

func Build(entries []models.Entry, contract string, now time.Time) Report {
	s := stats.Compute(entries)
	return Report{
		GeneratedAt:  now.UTC(),
		Contract:     contract,
		PendingCount: s.TotalEntries - s.VerifiedCount,
		Teams:        stats.Teams(entries),
		Stats:        s,
	}
}

func (r Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
