package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"testdeck/internal/datatable"
	"testdeck/internal/logger"
	"testdeck/internal/model"
	"testdeck/internal/query"
	"testdeck/internal/util"
)

// Backend serves lists, records and mutations. *db.Store and *api.Client implement it.
type Backend interface {
	Fetch(ctx context.Context, d query.Descriptor) (any, error)
	Get(ctx context.Context, resource string, id int64) (map[string]any, error)
	Delete(ctx context.Context, resource string, id int64) error
	SetStatus(ctx context.Context, resource string, id int64, status string) error
}

const mutationTimeout = 10 * time.Second

// writeClipboard is swapped in tests; CI machines have no clipboard.
var writeClipboard = clipboard.WriteAll

func recordID(row datatable.Row) (int64, bool) {
	id, ok := util.ToInt(row["id"])
	if !ok || id <= 0 {
		return 0, false
	}
	return int64(id), true
}

func loadDetailCmd(b Backend, route model.Route) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()

		record, err := b.Get(ctx, route.Screen.Resource(), route.ID)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to load %s: %w", route.Screen.Title(), err)}
		}
		return model.DetailLoadedMsg{Screen: route.Screen, ID: route.ID, Record: record}
	}
}

func setStatusCmd(b Backend, screen model.Screen, id int64, status, previous, verb string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()

		if err := b.SetStatus(ctx, screen.Resource(), id, status); err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to update %s %d: %w", screen.Resource(), id, err)}
		}
		return model.MutatedMsg{Screen: screen, ID: id, Verb: verb, Previous: previous}
	}
}

// deleteCmd removes a record. previous is the status to restore on undo,
// empty for hard deletes.
func deleteCmd(b Backend, screen model.Screen, id int64, previous string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()

		if err := b.Delete(ctx, screen.Resource(), id); err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to delete %s %d: %w", screen.Resource(), id, err)}
		}
		return model.MutatedMsg{Screen: screen, ID: id, Verb: "deleted", Previous: previous}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if text == "" {
			return model.ErrorMsg{Err: fmt.Errorf("nothing to copy")}
		}
		if err := writeClipboard(text); err != nil {
			logger.Warn().Err(err).Msg("clipboard unavailable")
			return model.ErrorMsg{Err: fmt.Errorf("failed to copy to clipboard: %w", err)}
		}
		return model.InfoMsg{Text: fmt.Sprintf("Copied %s", text)}
	}
}

func navigate(target string) tea.Cmd {
	return func() tea.Msg {
		return model.NavigateMsg{Target: target}
	}
}
