package datatable

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"testdeck/internal/util"
)

const gutterWidth = 3

// View renders the table into width x height cells.
func (m *Model) View(width, height int) string {
	widths := m.columnWidths(width)

	top := []string{m.renderToolbar(width)}
	if banner := m.renderErrorBanner(width); banner != "" {
		top = append(top, banner)
	}
	top = append(top, m.renderHeader(widths), m.renderDivider(widths))

	bottom := []string{m.renderFooter()}
	if m.menu.open {
		bottom = append([]string{m.renderMenu()}, bottom...)
	}

	bodyHeight := height - len(top) - lipgloss.Height(strings.Join(bottom, "\n")) - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	sections := append(top, m.renderBody(widths, bodyHeight), "")
	sections = append(sections, bottom...)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderToolbar(width int) string {
	left := m.styles.Toolbar.Render("/ filter")
	if m.filter.Focused() || m.filter.Value() != "" {
		left = m.styles.Toolbar.Render(m.filter.View())
	}
	meta := m.styles.Status.Render(m.Meta())
	gap := width - lipgloss.Width(left) - lipgloss.Width(meta)
	if gap < 1 {
		return left + " " + meta
	}
	return left + strings.Repeat(" ", gap) + meta
}

func (m *Model) renderErrorBanner(width int) string {
	st := m.observer.State()
	if !st.IsError || m.errDismissed {
		return ""
	}
	msg := "request failed"
	if st.Err != nil {
		msg = st.Err.Error()
	}
	line := fmt.Sprintf("✗ %s  (x to dismiss, r to retry)", msg)
	return m.styles.Error.Render(util.TruncateString(line, max(width-2, 1)))
}

// columnWidths sizes each column from its declared or default width, widening
// the last data column to fill the row.
func (m *Model) columnWidths(width int) []int {
	widths := make([]int, len(m.cols))
	total := gutterWidth
	lastData := -1
	for i, c := range m.cols {
		w := c.Width
		if w <= 0 {
			w = defaultWidth(c.Kind)
		}
		w = max(w, lipgloss.Width(m.headerLabel(c))+2)
		widths[i] = w
		total += w
		if c.Kind != KindActions {
			lastData = i
		}
	}
	if extra := width - total; extra > 0 && lastData >= 0 {
		widths[lastData] += extra
	}
	return widths
}

func (m *Model) headerLabel(c Column) string {
	label := strings.ToUpper(c.HeaderLabel())
	if s, ok := m.ctrl.Sort(); ok && s.ID == c.Key {
		if s.Desc {
			label += " ↓"
		} else {
			label += " ↑"
		}
	}
	return label
}

func (m *Model) renderHeader(widths []int) string {
	parts := []string{m.styles.Header.UnsetPadding().Width(gutterWidth).Render("")}
	for i, c := range m.cols {
		style := m.styles.Header
		if i == m.activeCol {
			style = m.styles.ActiveHeader
		}
		parts = append(parts, renderCell(m.headerLabel(c), widths[i], c.Align, style))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderDivider(widths []int) string {
	total := gutterWidth
	for _, w := range widths {
		total += w
	}
	return m.styles.Divider.Render(strings.Repeat("─", total))
}

func (m *Model) renderBody(widths []int, height int) string {
	switch m.Status() {
	case StatusLoading:
		return m.styles.Loading.Render(m.spinner.View() + " Loading…")
	case StatusEmpty:
		return m.styles.Empty.Render(m.emptyMessage)
	}
	if len(m.visible) == 0 {
		return ""
	}

	offset := 0
	if m.cursor >= height {
		offset = m.cursor - height + 1
	}
	lines := make([]string, 0, height)
	for i := offset; i < len(m.visible) && i < offset+height; i++ {
		lines = append(lines, m.renderRow(i, widths))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(i int, widths []int) string {
	row := m.visible[i]
	selected := m.ctrl.IsSelected(m.rowID(row))

	style := m.styles.Row
	switch {
	case i == m.cursor:
		style = m.styles.CursorRow
	case selected:
		style = m.styles.SelectedRow
	case i%2 == 1:
		style = m.styles.StripedRow
	}

	mark := " "
	if selected {
		mark = "●"
	}
	parts := []string{style.Width(gutterWidth).Render(mark)}
	for j, c := range m.cols {
		parts = append(parts, renderCell(m.cellText(c, row), widths[j], c.Align, style))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderCell fits text, which may already carry styling, into one cell.
func renderCell(text string, width int, align Align, style lipgloss.Style) string {
	text = ansi.Truncate(strings.ReplaceAll(text, "\n", " "), max(width-2, 1), "…")
	pos := lipgloss.Left
	switch align {
	case AlignCenter:
		pos = lipgloss.Center
	case AlignRight:
		pos = lipgloss.Right
	}
	return style.Width(width).Align(pos).Render(text)
}

func (m *Model) renderMenu() string {
	title := "Actions"
	if m.menu.rowID != "" {
		title = fmt.Sprintf("Actions · %s", m.menu.rowID)
	}
	lines := []string{m.styles.Status.UnsetPadding().Render(title)}
	for i, item := range m.menu.items {
		label := item.Label
		if label == "" {
			label = item.Name
		}
		if item.Icon != "" {
			label = item.Icon + " " + label
		}
		style := m.styles.MenuItem
		if item.Color != "" {
			style = style.Foreground(toneColor(item.Color))
		}
		switch {
		case item.IsDisabled(m.menu.row):
			style = m.styles.MenuDisabled
		case i == m.menu.cursor:
			style = m.styles.MenuCursor
		}
		prefix := "  "
		if i == m.menu.cursor {
			prefix = "› "
		}
		lines = append(lines, prefix+style.Render(label))
	}
	return m.styles.Menu.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	parts := []string{m.paginator.View()}
	noun := "rows"
	if m.matched == 1 {
		noun = "row"
	}
	parts = append(parts, fmt.Sprintf("%s %s", util.FormatCount(m.matched), noun))
	if m.source.Mode() == ModeClient && m.ctrl.state.GlobalFilter != "" {
		parts = append(parts, fmt.Sprintf("of %s", util.FormatCount(len(m.rows))))
	}
	if n := len(m.ctrl.state.Selection); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	parts = append(parts, fmt.Sprintf("%d per page", m.ctrl.state.Pagination.PageSize))
	st := m.observer.State()
	if st.IsFetching && st.HasData {
		parts = append(parts, m.spinner.View()+" refreshing")
	}
	return m.styles.Status.Render(strings.Join(parts, "  ·  "))
}
