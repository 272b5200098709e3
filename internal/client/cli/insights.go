package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/report"
	"github.com/dmitrijs2005/moodkeeper/internal/client/stats"
)

// DefaultExporter is used by "export" without a target.
const DefaultExporter = "file"

// Stats prints aggregates over verified entries only.
func (a *App) Stats(context.Context) error {
	s := stats.Compute(a.Store.Snapshot())

	printlnFn(fmt.Sprintf("Entries: %d (verified %d)", s.TotalEntries, s.VerifiedCount))
	if s.VerifiedCount == 0 {
		printlnFn("No verified moods yet")
		return nil
	}
	printlnFn(fmt.Sprintf("Average mood: %.1f", s.AverageMood))
	printlnFn(fmt.Sprintf("Positive: %d  Neutral: %d  Negative: %d", s.PositiveCount, s.NeutralCount, s.NegativeCount))
	for _, t := range s.TeamTrends {
		printlnFn(fmt.Sprintf("  %-20s %.1f (%d)", t.Team, t.Average, t.Count))
	}
	return nil
}

// History prints the recent activity window, or the durable history when
// all is set and a history store is configured.
func (a *App) History(ctx context.Context, all bool) error {
	if all && a.Archive != nil {
		items, err := a.Archive.List(ctx, 0)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		if len(items) == 0 {
			printlnFn("No activity")
			return nil
		}
		for _, it := range items {
			printlnFn(fmt.Sprintf("%s  %s  %s", it.At.Local().Format(time.DateTime), shortAddress(it.Account), it.Message))
		}
		return nil
	}

	recent := a.Activity.Recent()
	if len(recent) == 0 {
		printlnFn("No activity")
		return nil
	}
	printlnFn(strings.Join(recent, "\n"))
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.Service.Reload(ctx); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Loaded %d entries", a.Store.Len()))
	return nil
}

func (a *App) Check(ctx context.Context) error {
	_, err := a.Service.CheckAvailability(ctx)
	return err
}

// Export writes the aggregate report with the named exporter.
func (a *App) Export(ctx context.Context, target string) error {
	if target == "" {
		target = DefaultExporter
	}
	exp, ok := a.Exporters[target]
	if !ok {
		return fmt.Errorf("unknown export target %q (available: %s)", target, strings.Join(a.exporterNames(), ", "))
	}

	r := report.Build(a.Store.Snapshot(), a.Service.Contract(), a.now())
	loc, err := exp.Export(ctx, r)
	if err != nil {
		return fmt.Errorf("export %s: %w", target, err)
	}
	printlnFn("Report written to", loc)
	return nil
}

func (a *App) exporterNames() []string {
	names := make([]string, 0, len(a.Exporters))
	for n := range a.Exporters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
