package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"testdeck/internal/model"
)

const maxUndo = 20

// undoAction restores the status a record had before a mutation.
type undoAction struct {
	label  string
	screen model.Screen
	id     int64
	status string
}

func (m *Model) pushUndoAction(msg model.MutatedMsg) {
	if msg.Undo || msg.Previous == "" {
		return
	}
	m.undoStack = append(m.undoStack, undoAction{
		label:  fmt.Sprintf("%s #%d %s", msg.Screen.Resource(), msg.ID, msg.Verb),
		screen: msg.Screen,
		id:     msg.ID,
		status: msg.Previous,
	})
	if len(m.undoStack) > maxUndo {
		m.undoStack = m.undoStack[len(m.undoStack)-maxUndo:]
	}
}

func (m *Model) undoCmd() tea.Cmd {
	if len(m.undoStack) == 0 {
		m.info = "Nothing to undo"
		return nil
	}
	action := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.info = "Undoing " + action.label

	cmd := setStatusCmd(m.backend, action.screen, action.id, action.status, "", "restored to "+action.status)
	return func() tea.Msg {
		msg := cmd()
		if mutated, ok := msg.(model.MutatedMsg); ok {
			mutated.Undo = true
			return mutated
		}
		return msg
	}
}
