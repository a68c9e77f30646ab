package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if a.userEmail != "" {
		return fmt.Sprintf("(%s)", a.userEmail)
	}
	if a.isLoggedIn() {
		return "(signed in)"
	}
	return ""
}

const helpText = `Commands:
  login / logout
  log <category>     record a meaning entry
  entries            list entries
  delete <id>        soft-delete an entry
  stats              category counts, top tags, net meaning
  clusters           co-occurring tag clusters
  today              show today's practice
  swap               swap today's practice
  start              start a session for today's practice
  complete <id>      complete a session
  abandon <id>       abandon a session
  fragment           check whether a fragment surfaces
  history            list found fragments
  sync               full sync with the backend
  sync-status        per-table sync cursors
  refresh            force a catalogue refresh
  exit | quit`

// Run is the interactive loop: read a line, dispatch the first token,
// repeat. Handlers print their own errors so the loop never dies on one.
func (a *App) Run(ctx context.Context) {
	fmt.Println("margin (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("margin %s> ", a.getStatus())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Println(helpText)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "log":
			_ = a.LogEntry(ctx, args)
		case "entries", "list":
			_ = a.ListEntries(ctx)
		case "delete":
			_ = a.DeleteEntry(ctx, args)
		case "stats":
			_ = a.Stats(ctx)
		case "clusters":
			_ = a.Clusters(ctx)
		case "today":
			_ = a.Today(ctx)
		case "swap":
			_ = a.SwapToday(ctx)
		case "start":
			_ = a.StartSession(ctx)
		case "complete":
			_ = a.CompleteSession(ctx, args)
		case "abandon":
			_ = a.AbandonSession(ctx, args)
		case "fragment":
			_ = a.Fragment(ctx)
		case "history":
			_ = a.FragmentHistory(ctx)
		case "sync":
			_ = a.Sync(ctx)
		case "sync-status":
			_ = a.SyncStatus(ctx)
		case "refresh":
			_ = a.RefreshCatalogue(ctx)
		case "exit", "quit":
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
