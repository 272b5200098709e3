package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/client/stats"
	"github.com/dmitrijs2005/moodkeeper/internal/common"
)

var errNoEntry = errors.New("no such entry")

// Submit opens the creation form, fills it from the prompts and submits it.
// Empty answers keep the values of a previously failed attempt.
func (a *App) Submit(ctx context.Context) error {
	if !a.isConnected() {
		return a.Service.Submit(ctx, &a.form)
	}

	a.form.Open = true
	d := &a.form.Draft

	var err error
	if d.Name, err = GetTextWithDefault(a.Reader, "Name", d.Name, a.Out); err != nil {
		return err
	}
	if d.MoodScore, err = GetTextWithDefault(a.Reader, "Mood score (0-10)", d.MoodScore, a.Out); err != nil {
		return err
	}
	if d.Team, err = GetTextWithDefault(a.Reader, "Team (optional)", d.Team, a.Out); err != nil {
		return err
	}

	return a.Service.Submit(ctx, &a.form)
}

// Discard closes the creation form and drops its draft.
func (a *App) Discard(context.Context) error {
	a.form.Close()
	printlnFn("Draft discarded")
	return nil
}

// List prints the entries that pass the current search and team filter.
func (a *App) List(context.Context) error {
	entries := stats.Filter(a.Store.Snapshot(), a.query, a.team)
	if len(entries) == 0 {
		printlnFn("No entries")
		return nil
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTEAM\tCREATED\tMOOD")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Team, formatTime(e.Timestamp), moodText(e))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printlnFn(strings.TrimRight(sb.String(), "\n"))

	if a.query != "" || a.team != stats.AllTeams {
		printlnFn(fmt.Sprintf("(filter: search=%q team=%s)", a.query, a.team))
	}
	return nil
}

// Search sets the name/team search text and lists. An empty query clears it.
func (a *App) Search(ctx context.Context, query string) error {
	a.query = query
	return a.List(ctx)
}

// Team sets the team filter and lists. "all" clears it.
func (a *App) Team(ctx context.Context, team string) error {
	a.team = team
	return a.List(ctx)
}

func (a *App) Teams(context.Context) error {
	teams := stats.Teams(a.Store.Snapshot())
	if len(teams) == 0 {
		printlnFn("No teams")
		return nil
	}
	printlnFn(strings.Join(teams, "\n"))
	return nil
}

func (a *App) Show(_ context.Context, key string) error {
	e, err := a.findEntry(key)
	if err != nil {
		return err
	}

	printlnFn("ID:      ", e.ID)
	printlnFn("Key:     ", e.EntryKey)
	printlnFn("Name:    ", e.Name)
	printlnFn("Team:    ", e.Team)
	printlnFn("Created: ", formatTime(e.Timestamp))
	printlnFn("Creator: ", e.Creator)
	printlnFn("Mood:    ", moodText(e))
	return nil
}

// Decrypt reveals one entry. The outcome is also reported on the status
// line.
func (a *App) Decrypt(ctx context.Context, key string) error {
	entryKey := a.resolveKey(key)

	v, err := a.Service.Decrypt(ctx, entryKey)
	if err != nil {
		return err
	}
	if v == nil {
		printlnFn("Entry was verified by someone else; list shows its value")
		return nil
	}
	printlnFn("Decrypted mood:", *v)
	return nil
}

// findEntry looks key up in the snapshot by entry key or numeric id.
func (a *App) findEntry(key string) (models.Entry, error) {
	if e, ok := a.Store.Get(key); ok {
		return e, nil
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		for _, e := range a.Store.Snapshot() {
			if e.ID == id {
				return e, nil
			}
		}
	}
	return models.Entry{}, fmt.Errorf("%w: %s", errNoEntry, key)
}

// resolveKey maps an id or key to an entry key. Unknown numeric ids are
// assumed to be keys the snapshot has not seen yet.
func (a *App) resolveKey(key string) string {
	if e, err := a.findEntry(key); err == nil {
		return e.EntryKey
	}
	if _, err := strconv.ParseInt(key, 10, 64); err == nil {
		return common.EntryKeyPrefix + key
	}
	return key
}

func moodText(e models.Entry) string {
	if !e.IsVerified {
		return "encrypted"
	}
	return strconv.Itoa(e.DecryptedValue)
}

func formatTime(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format(time.DateTime)
}
