package datatable

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Predicate is a row condition, either fixed or computed per row.
// The zero value is unset and resolves to the caller's default.
type Predicate struct {
	set   bool
	value bool
	fn    func(Row) bool
}

// Always returns a predicate with a fixed result.
func Always(v bool) Predicate { return Predicate{set: true, value: v} }

// When returns a predicate computed from the row.
func When(fn func(Row) bool) Predicate { return Predicate{set: fn != nil, fn: fn} }

func resolvePredicate(p Predicate, row Row, def bool) bool {
	if !p.set {
		return def
	}
	if p.fn != nil {
		return p.fn(row)
	}
	return p.value
}

// Link is a navigation target, fixed or derived from the row.
type Link struct {
	target string
	fn     func(Row) string
}

func StaticLink(target string) Link     { return Link{target: target} }
func RowLink(fn func(Row) string) Link { return Link{fn: fn} }

// Resolve returns the target for row; empty means no navigation.
func (l Link) Resolve(row Row) string {
	if l.fn != nil {
		return l.fn(row)
	}
	return l.target
}

// Navigator turns a link target into a command, usually a routing message.
type Navigator func(target string) tea.Cmd

// RowAction is one entry of a row's action menu.
type RowAction struct {
	Name  string
	Label string
	Icon  string
	Color Tone

	Link Link
	// OnClick runs when the action is activated. A non-nil command runs
	// before navigation; failures are reported by the command's own message.
	OnClick func(Row) tea.Cmd

	Disabled Predicate
	Visible  Predicate
}

func (a RowAction) IsVisible(row Row) bool  { return resolvePredicate(a.Visible, row, true) }
func (a RowAction) IsDisabled(row Row) bool { return resolvePredicate(a.Disabled, row, false) }

// VisibleActions filters actions by their visibility for row.
func VisibleActions(actions []RowAction, row Row) []RowAction {
	var out []RowAction
	for _, a := range actions {
		if a.IsVisible(row) {
			out = append(out, a)
		}
	}
	return out
}

// Activate runs the handler and then navigates to the resolved link.
// Disabled actions do nothing.
func (a RowAction) Activate(row Row, nav Navigator) tea.Cmd {
	if a.IsDisabled(row) {
		return nil
	}
	var cmds []tea.Cmd
	if a.OnClick != nil {
		if cmd := a.OnClick(row); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if target := a.Link.Resolve(row); target != "" && nav != nil {
		if cmd := nav(target); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Sequence(cmds...)
	}
}

// actionMenu is the open action menu of one row.
type actionMenu struct {
	open   bool
	row    Row
	rowID  string
	items  []RowAction
	cursor int
}

func (m *actionMenu) openFor(row Row, rowID string, actions []RowAction) bool {
	items := VisibleActions(actions, row)
	if len(items) == 0 {
		return false
	}
	*m = actionMenu{open: true, row: row, rowID: rowID, items: items}
	return true
}

func (m *actionMenu) close() { *m = actionMenu{} }

func (m *actionMenu) move(delta int) {
	if len(m.items) == 0 {
		return
	}
	m.cursor = (m.cursor + delta + len(m.items)) % len(m.items)
}

// activate runs the highlighted item. The menu stays open on a disabled item.
func (m *actionMenu) activate(nav Navigator) (RowAction, tea.Cmd, bool) {
	if !m.open || len(m.items) == 0 {
		return RowAction{}, nil, false
	}
	item, row := m.items[m.cursor], m.row
	if item.IsDisabled(row) {
		return item, nil, false
	}
	m.close()
	return item, item.Activate(row, nav), true
}
