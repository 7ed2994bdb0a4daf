package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"testdeck/internal/datatable"
	"testdeck/internal/logger"
	"testdeck/internal/model"
	"testdeck/internal/query"
	"testdeck/internal/util"
)

// Options configures the root model.
type Options struct {
	// ConfigDir holds ui_prefs.json. Empty disables preference persistence.
	ConfigDir string
	PageSize  int
	// BackendLabel is shown in the header, e.g. "local" or the API host.
	BackendLabel string
	CacheTTL     time.Duration
	FetchTimeout time.Duration
}

// Model is the root Bubble Tea model.
type Model struct {
	backend Backend
	queries *query.Client
	label   string

	screen  model.Screen
	lastTab model.Screen
	tables  map[model.Screen]*datatable.Model
	detail  *DetailModel
	// selected is shared by the tables' selection callbacks.
	selected map[model.Screen]int

	width  int
	height int

	error       string
	info        string
	showingHelp bool

	keys      KeyMap
	tableKeys datatable.KeyMap
	help      help.Model
	prefs     UIPreferences
	prefsPath string
	undoStack []undoAction
}

// New creates the root model.
func New(backend Backend, opts Options) (Model, error) {
	m := Model{
		backend: backend,
		queries: query.NewClient(backend.Fetch, query.Options{
			CacheTTL: opts.CacheTTL,
			Timeout:  opts.FetchTimeout,
		}),
		label:     opts.BackendLabel,
		screen:    model.ScreenProjects,
		lastTab:   model.ScreenProjects,
		selected:  map[model.Screen]int{},
		keys:      DefaultKeyMap(),
		tableKeys: datatable.DefaultKeyMap(),
		help:      newHelp(),
		prefs:     defaultUIPreferences(),
	}
	if opts.ConfigDir != "" {
		m.prefsPath = prefsPath(opts.ConfigDir)
		m.prefs = loadUIPreferences(m.prefsPath)
	}

	selected := m.selected
	tables, err := buildTables(tableDeps{
		backend:  backend,
		queries:  m.queries,
		pageSize: opts.PageSize,
		prefs:    m.prefs,
		onSelect: func(s model.Screen, rows []datatable.Row) {
			selected[s] = len(rows)
			logger.Debug().Str("table", s.Resource()).Int("selected", len(rows)).Msg("selection changed")
		},
	})
	if err != nil {
		return Model{}, err
	}
	m.tables = tables
	return m, nil
}

// Init starts the first fetch of every tab.
func (m Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(model.Tabs))
	for _, s := range model.Tabs {
		cmds = append(cmds, m.tables[s].Init())
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.detail != nil {
			m.detail.SetSize(m.width, m.contentHeight())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case query.ResultMsg, spinner.TickMsg:
		// Each table ignores results and ticks that belong to another one.
		var cmds []tea.Cmd
		for _, s := range model.Tabs {
			cmds = append(cmds, m.tables[s].Update(msg))
		}
		return m, tea.Batch(cmds...)

	case model.NavigateMsg:
		route, err := model.ParseTarget(msg.Target)
		if err != nil {
			logger.Warn().Str("target", msg.Target).Err(err).Msg("bad navigation target")
			m.error = err.Error()
			return m, nil
		}
		logger.Info().Str("target", msg.Target).Msg("navigate")
		if route.IsDetail() {
			return m, loadDetailCmd(m.backend, route)
		}
		m.switchTab(route.Screen)
		return m, nil

	case model.DetailLoadedMsg:
		m.detail = NewDetailModel(msg.Screen, msg.ID, msg.Record)
		m.detail.SetSize(m.width, m.contentHeight())
		if m.screen != model.ScreenDetail {
			m.lastTab = m.screen
		}
		m.screen = model.ScreenDetail
		m.error = ""
		return m, nil

	case model.MutatedMsg:
		logger.Info().Str("resource", msg.Screen.Resource()).Int64("id", msg.ID).Str("verb", msg.Verb).Msg("mutated")
		m.info = fmt.Sprintf("%s #%d %s", strings.TrimSuffix(msg.Screen.Title(), "s"), msg.ID, msg.Verb)
		m.error = ""
		if !msg.Undo && msg.Previous != "" {
			m.info += " (u to undo)"
		}
		m.pushUndoAction(msg)
		if m.screen == model.ScreenDetail && m.detail != nil && m.detail.id == msg.ID && msg.Verb == "deleted" {
			m.closeDetail()
		}
		return m, m.refresh(msg.Screen)

	case model.ErrorMsg:
		logger.Error().Err(msg.Err).Msg("app error")
		m.error = msg.Err.Error()
		return m, nil

	case model.InfoMsg:
		m.info = msg.Text
		return m, nil
	}

	if m.screen == model.ScreenDetail && m.detail != nil {
		return m, m.detail.Update(msg)
	}
	if t := m.currentTable(); t != nil {
		return m, t.Update(msg)
	}
	return m, nil
}

// affected lists the tabs whose rows change when a screen's records do.
var affected = map[model.Screen][]model.Screen{
	model.ScreenProjects:  {model.ScreenProjects, model.ScreenTestCases, model.ScreenTestPlans},
	model.ScreenTestCases: {model.ScreenTestCases, model.ScreenProjects},
}

// refresh drops cached pages of the mutated resource and refetches its tables.
func (m *Model) refresh(screen model.Screen) tea.Cmd {
	screens, ok := affected[screen]
	if !ok {
		screens = []model.Screen{screen}
	}
	var cmds []tea.Cmd
	for _, s := range screens {
		m.queries.Invalidate(s.Resource())
		if t := m.tables[s]; t != nil {
			cmds = append(cmds, t.Refetch())
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showingHelp {
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" {
			m.showingHelp = false
		}
		return m, nil
	}

	if m.screen == model.ScreenDetail {
		switch {
		case key.Matches(msg, m.keys.Back):
			m.closeDetail()
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			return m, copyCmd(m.detail.CopyText())
		case key.Matches(msg, m.keys.Help):
			m.showingHelp = true
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		return m, m.detail.Update(msg)
	}

	t := m.currentTable()
	if t == nil {
		return m, nil
	}
	if t.Capturing() {
		cmd := t.Update(msg)
		m.persistPrefs(t)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showingHelp = true
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		m.switchTab(m.tabOffset(1))
		return m, nil
	case key.Matches(msg, m.keys.PrevTab):
		m.switchTab(m.tabOffset(-1))
		return m, nil
	case key.Matches(msg, m.keys.Undo):
		return m, m.undoCmd()
	case key.Matches(msg, m.keys.JumpTab):
		if n := int(msg.String()[0] - '1'); n >= 0 && n < len(model.Tabs) {
			m.switchTab(model.Tabs[n])
		}
		return m, nil
	case key.Matches(msg, m.tableKeys.Dismiss):
		m.error = ""
	}

	cmd := t.Update(msg)
	m.persistPrefs(t)
	return m, cmd
}

func (m *Model) tabOffset(delta int) model.Screen {
	for i, s := range model.Tabs {
		if s == m.screen {
			return model.Tabs[(i+delta+len(model.Tabs))%len(model.Tabs)]
		}
	}
	return model.Tabs[0]
}

func (m *Model) switchTab(s model.Screen) {
	if m.screen == s {
		return
	}
	m.screen = s
	m.lastTab = s
	m.detail = nil
	m.error = ""
	m.info = ""
}

func (m *Model) closeDetail() {
	m.detail = nil
	m.screen = m.lastTab
}

func (m *Model) currentTable() *datatable.Model {
	return m.tables[m.screen]
}

// persistPrefs saves sort and page size when a key changed them.
func (m *Model) persistPrefs(t *datatable.Model) {
	next := prefsFromState(t.State())
	if m.prefs.Tables[t.Name()] == next {
		return
	}
	m.prefs.Tables[t.Name()] = next
	if m.prefsPath == "" {
		return
	}
	if err := saveUIPreferences(m.prefsPath, m.prefs); err != nil {
		logger.Warn().Err(err).Msg("failed to save ui preferences")
	}
}

func (m Model) chromeTop() []string {
	parts := []string{"testdeck"}
	if m.screen == model.ScreenDetail && m.detail != nil {
		parts = append(parts, m.lastTab.Title(), m.detail.Title())
	} else {
		parts = append(parts, m.screen.Title())
	}
	top := []string{renderHeader(parts, m.label, m.width)}
	if m.screen != model.ScreenDetail {
		top = append(top, renderTabs(m.screen, m.width))
	}
	if m.error != "" {
		top = append(top, ErrorStyle.Width(m.width).Render("Error: "+m.error))
	}
	if status := m.statusLine(); status != "" {
		top = append(top, SuccessStyle.Width(m.width).Render(status))
	}
	return top
}

func (m Model) statusLine() string {
	var parts []string
	if m.info != "" {
		parts = append(parts, m.info)
	}
	if n := m.selected[m.screen]; n > 0 && m.screen != model.ScreenDetail {
		parts = append(parts, fmt.Sprintf("%s selected", util.FormatCount(n)))
	}
	return strings.Join(parts, "  ·  ")
}

func (m Model) footer() string {
	return RenderHelp(m.help, m.screen, m.keys, m.tableKeys, m.width)
}

func (m Model) contentHeight() int {
	used := lipgloss.Height(strings.Join(m.chromeTop(), "\n")) + lipgloss.Height(m.footer())
	return max(3, m.height-used)
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.help, m.keys, m.tableKeys, m.width, m.height)
	}

	contentHeight := m.contentHeight()
	var content string
	if m.screen == model.ScreenDetail && m.detail != nil {
		content = m.detail.View(m.width, contentHeight)
	} else if t := m.currentTable(); t != nil {
		content = t.View(m.width, contentHeight)
	}

	// Fill the available height so the footer stays at the bottom.
	content = lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	sections := append(m.chromeTop(), content, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderTabs(screen model.Screen, width int) string {
	tabs := make([]string, 0, len(model.Tabs))
	for i, s := range model.Tabs {
		label := fmt.Sprintf("%d %s", i+1, s.Title())
		if s == screen {
			tabs = append(tabs, ActiveTabStyle.Render(label))
			continue
		}
		tabs = append(tabs, TabStyle.Render(label))
	}
	return TabBarStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, tabs...))
}

func renderHeader(breadcrumbParts []string, backend string, width int) string {
	var left string
	for i, part := range breadcrumbParts {
		switch {
		case i == 0:
			left = "  " + HeaderStyle.Render(part)
		case i == len(breadcrumbParts)-1:
			left += BreadcrumbStyle.Render(" › ") + BreadcrumbActiveStyle.Render(part)
		default:
			left += BreadcrumbStyle.Render(" › ") + BreadcrumbStyle.Render(part)
		}
	}

	right := time.Now().Format("Mon 02 Jan")
	if backend != "" {
		right = backend + "  ·  " + right
	}
	right = BreadcrumbStyle.Render(right) + "  "

	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return TitleStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}
