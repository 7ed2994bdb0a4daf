package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"testdeck/internal/datatable"
	"testdeck/internal/model"
)

func newHelp() help.Model {
	h := help.New()
	h.ShortSeparator = "  "
	h.Styles.ShortKey = HelpKeyStyle
	h.Styles.ShortDesc = HelpDescStyle
	h.Styles.FullKey = HelpKeyStyle
	h.Styles.FullDesc = HelpDescStyle
	h.Styles.ShortSeparator = HelpDescStyle
	h.Styles.FullSeparator = HelpDescStyle
	return h
}

// RenderHelp renders the context-sensitive help footer.
func RenderHelp(h help.Model, screen model.Screen, keys KeyMap, tableKeys datatable.KeyMap, width int) string {
	h.Width = width - 2
	var bindings []key.Binding
	if screen == model.ScreenDetail {
		bindings = []key.Binding{keys.Back, keys.Copy, keys.Help, keys.Quit}
	} else {
		bindings = append(tableKeys.ShortHelp(), keys.ShortHelp()...)
	}
	return FooterStyle.Width(width).Render(h.ShortHelpView(bindings))
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(h help.Model, keys KeyMap, tableKeys datatable.KeyMap, width, height int) string {
	h.Width = width - 4
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(max(1, height-6)).
		Padding(1, 2)

	sections := []string{
		LabelStyle.Render("Tables"),
		h.FullHelpView(tableKeys.FullHelp()),
		LabelStyle.Render("App"),
		h.FullHelpView(keys.FullHelp()),
		LabelStyle.Render("Action menu"),
		HelpDescStyle.Render("  enter / . opens the menu of the row under the cursor; j/k move, enter runs, esc closes.\n" +
			"  Disabled actions are dimmed and cannot run."),
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		content.Render(strings.Join(sections, "\n\n")),
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}
