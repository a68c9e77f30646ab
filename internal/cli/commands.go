package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/margin-app/margin/internal/daily"
	"github.com/margin-app/margin/internal/models"
	"github.com/margin-app/margin/internal/sync"
)

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.SignIn(ctx, email, string(password)); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}
	a.userEmail = email
	fmt.Println("Logged in as", email)
	return nil
}

func (a *App) Logout(context.Context) error {
	a.client.SignOut()
	a.userEmail = ""
	fmt.Println("Logged out")
	return nil
}

func (a *App) LogEntry(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: log <meaningful|joyful|painful_significant|empty_numb>")
		return nil
	}
	category := models.Category(args[0])

	text, err := GetSimpleText(a.reader, "What happened?", os.Stdout)
	if err != nil {
		return err
	}
	rawTags, err := GetSimpleText(a.reader, "Tags (comma separated, optional)", os.Stdout)
	if err != nil {
		return err
	}

	e, err := a.entrySvc.Log(ctx, category, text, splitTags(rawTags))
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Printf("Logged %s entry %s\n", e.Category, e.ID)
	return nil
}

func (a *App) ListEntries(ctx context.Context) error {
	all, err := a.entrySvc.List(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	if len(all) == 0 {
		fmt.Println("No entries yet")
		return nil
	}
	for _, e := range all {
		tags := ""
		if len(e.Tags) > 0 {
			tags = " [" + strings.Join(e.Tags, ", ") + "]"
		}
		fmt.Printf("%s  %-19s  %s%s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Category, e.Text, tags)
	}
	return nil
}

func (a *App) DeleteEntry(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: delete <entry-id>")
		return nil
	}
	if err := a.entrySvc.Delete(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Deleted", args[0])
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	stats, err := a.entrySvc.Stats(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}

	fmt.Printf("Entries: %d\n", stats.TotalEntries)
	for _, c := range models.Categories {
		fmt.Printf("  %-19s %d\n", c, stats.CountByCategory[c])
	}
	if len(stats.TopTags) > 0 {
		fmt.Println("Top tags:")
		for _, tc := range stats.TopTags {
			fmt.Printf("  %-15s %d\n", tc.Tag, tc.Count)
		}
	}
	if len(stats.TagMeanings) > 0 {
		fmt.Println("Net meaning:")
		for _, tm := range stats.TagMeanings {
			fmt.Printf("  %-15s %+d (of %d)\n", tm.Tag, tm.Net, tm.Total)
		}
	}
	return nil
}

func (a *App) Clusters(ctx context.Context) error {
	clusters, err := a.entrySvc.Clusters(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	if len(clusters) == 0 {
		fmt.Println("No tag clusters yet")
		return nil
	}
	for _, c := range clusters {
		fmt.Printf("#%d  %s  (%d entries)\n", c.ID, strings.Join(c.Tags, " + "), c.EntryCount)
	}
	return nil
}

func (a *App) Today(ctx context.Context) error {
	p, err := a.sessionSvc.Today(ctx, daily.DateString(time.Now()))
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Printf("Today's practice: %s (%s, %s)\n%s\n", p.Title, p.ID, p.Mode, p.Instruction)
	return nil
}

func (a *App) SwapToday(ctx context.Context) error {
	p, err := a.sessionSvc.SwapToday(ctx, daily.DateString(time.Now()))
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Printf("Swapped to: %s (%s)\n%s\n", p.Title, p.ID, p.Instruction)
	return nil
}

func (a *App) StartSession(ctx context.Context) error {
	p, err := a.sessionSvc.Today(ctx, daily.DateString(time.Now()))
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	s, err := a.sessionSvc.Start(ctx, p.ID)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Printf("Started session %s for %s\n", s.ID, p.Title)
	return nil
}

func (a *App) CompleteSession(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: complete <session-id>")
		return nil
	}

	rating, err := GetSimpleText(a.reader, "Rating (easy/neutral/hard)", os.Stdout)
	if err != nil {
		return err
	}
	notes, err := GetSimpleText(a.reader, "Notes (optional)", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.sessionSvc.Complete(ctx, args[0], models.Rating(rating), notes); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Session completed")
	return nil
}

func (a *App) AbandonSession(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: abandon <session-id>")
		return nil
	}
	if err := a.sessionSvc.Abandon(ctx, args[0]); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Session abandoned")
	return nil
}

func (a *App) Fragment(ctx context.Context) error {
	out, err := a.fragmentSvc.CheckRelease(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	if out.Fragment == nil {
		fmt.Println("Nothing surfaced this time:", out.Reason)
		return nil
	}
	fmt.Printf("A fragment surfaced:\n\n  %s\n", out.Fragment.Text)
	return nil
}

func (a *App) FragmentHistory(ctx context.Context) error {
	history, err := a.fragmentSvc.History(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	if len(history) == 0 {
		fmt.Println("No fragments found yet")
		return nil
	}
	for _, h := range history {
		text := "(no longer in catalogue)"
		if h.Fragment != nil {
			text = h.Fragment.Text
		}
		fmt.Printf("%s  %s\n", h.Reveal.RevealedAt.Format("2006-01-02"), text)
	}
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	res, err := a.orchestrator.RunFullSync(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	if !res.Success {
		fmt.Println("Sync finished with errors:")
		for _, e := range res.Errors {
			fmt.Println("  -", e)
		}
	} else {
		fmt.Printf("Sync ok: pulled %d, pushed %d, conflicts resolved %d\n",
			res.TotalPulled, res.TotalPushed, res.TotalConflicts)
	}
	return nil
}

func (a *App) SyncStatus(ctx context.Context) error {
	for _, table := range []string{sync.TableEntries, sync.TableSessions, sync.TableReveals} {
		cursor, err := a.state.GetSyncTime(ctx, table)
		if err != nil {
			fmt.Println("Error:", err)
			return err
		}
		if cursor == nil {
			fmt.Printf("%-20s never synced\n", table)
		} else {
			fmt.Printf("%-20s %s\n", table, cursor.Format(time.RFC3339))
		}
	}
	v, err := a.state.GetCatalogVersion(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Printf("%-20s v%d (reference v%d)\n", "catalogue", v, a.config.CatalogVersion)
	return nil
}

func (a *App) RefreshCatalogue(ctx context.Context) error {
	if err := a.catalog.ForceRefresh(ctx); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	res := a.catalog.Sync(ctx)
	if len(res.Errors) > 0 {
		fmt.Println("Refresh failed:", strings.Join(res.Errors, "; "))
		return nil
	}
	fmt.Printf("Catalogue refreshed: %d fragments\n", res.Pulled)
	return nil
}
