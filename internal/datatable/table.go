// Package datatable turns a declarative column and query description into an
// interactive terminal table with sorting, filtering, pagination, selection
// and per-row action menus, backed either by a complete result set or by a
// paging backend.
package datatable

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"testdeck/internal/logger"
	"testdeck/internal/query"
	"testdeck/internal/util"
)

// QueryObserver is the query lifecycle a table renders. *query.Observer implements it.
type QueryObserver interface {
	SetQuery(d query.Descriptor) tea.Cmd
	Refetch() tea.Cmd
	Update(msg tea.Msg) bool
	State() query.State
}

// Status is what the table body currently shows.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusEmpty
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return "loading"
	}
}

var defaultPageSizes = []int{5, 10, 20, 50}

// Config describes one table.
type Config struct {
	// Name identifies the table in logs and preferences.
	Name     string
	Columns  []Column
	Source   Source
	Observer QueryObserver
	Resolver Resolver

	// DefaultActions populate actions columns that declare none. When set and
	// no actions column is declared, a trailing one is added.
	DefaultActions []RowAction
	Navigator      Navigator

	// RowID identifies rows for selection. Defaults to the "id" field.
	RowID        func(Row) string
	EmptyMessage string

	DefaultSort *SortDescriptor
	PageSize    int
	// PageSizes are the sizes cycled with the grow and shrink keys.
	PageSizes  []int
	SortToggle SortToggle

	OnSelectionChange func(rows []Row)

	KeyMap *KeyMap
	Styles *Styles
}

// Model is an interactive table.
type Model struct {
	name           string
	cols           []Column
	source         Source
	observer       QueryObserver
	resolver       Resolver
	defaultActions []RowAction
	nav            Navigator
	rowID          func(Row) string
	emptyMessage   string
	pageSizes      []int

	ctrl   *Controller
	keys   KeyMap
	styles Styles

	filter    textinput.Model
	spinner   spinner.Model
	paginator paginator.Model

	// rows are the resolved response rows: the full set in client mode, one page in server mode.
	rows       []Row
	visible    []Row
	matched    int
	pagination *PaginationInfo
	pages      int

	cursor       int
	activeCol    int
	menu         actionMenu
	errDismissed bool
}

// New validates cfg and creates a table. Call Init to start the first fetch.
func New(cfg Config) (*Model, error) {
	if cfg.Observer == nil {
		return nil, fmt.Errorf("table %q has no query observer", cfg.Name)
	}
	cols, err := normalizeColumns(cfg.Columns, cfg.DefaultActions)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", cfg.Name, err)
	}

	m := &Model{
		name:           cfg.Name,
		cols:           cols,
		source:         cfg.Source,
		observer:       cfg.Observer,
		resolver:       cfg.Resolver,
		defaultActions: cfg.DefaultActions,
		nav:            cfg.Navigator,
		rowID:          cfg.RowID,
		emptyMessage:   cfg.EmptyMessage,
		pageSizes:      cfg.PageSizes,
		keys:           DefaultKeyMap(),
		styles:         DefaultStyles(),
	}
	if m.rowID == nil {
		m.rowID = defaultRowID
	}
	if m.emptyMessage == "" {
		m.emptyMessage = "No results."
	}
	if len(m.pageSizes) == 0 {
		m.pageSizes = defaultPageSizes
	}
	if cfg.KeyMap != nil {
		m.keys = *cfg.KeyMap
	}
	if cfg.Styles != nil {
		m.styles = *cfg.Styles
	}

	m.ctrl = NewController(ControllerConfig{
		DefaultSort:       cfg.DefaultSort,
		PageSize:          cfg.PageSize,
		Toggle:            cfg.SortToggle,
		OnSelectionChange: cfg.OnSelectionChange,
		Rows:              func() []Row { return m.rows },
		RowID:             m.rowID,
	})

	m.filter = textinput.New()
	m.filter.Prompt = "/ "
	m.filter.Placeholder = "filter rows"
	m.filter.CharLimit = 120

	m.spinner = spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(m.styles.Trigger),
	)

	m.paginator = paginator.New()
	m.paginator.Type = paginator.Arabic
	m.paginator.ArabicFormat = "page %d/%d"

	return m, nil
}

func defaultRowID(r Row) string {
	return util.Stringify(r["id"])
}

// Init starts the first fetch.
func (m *Model) Init() tea.Cmd {
	return m.sync()
}

// Name returns the table name.
func (m *Model) Name() string { return m.name }

// Mode returns the table's query mode.
func (m *Model) Mode() Mode { return m.source.Mode() }

// Columns returns the normalized columns, including an appended actions column.
func (m *Model) Columns() []Column { return append([]Column(nil), m.cols...) }

// State returns a copy of the interactive state.
func (m *Model) State() State { return m.ctrl.State() }

// Rows returns the rows on the current page.
func (m *Model) Rows() []Row { return m.visible }

// PageCount returns the number of pages.
func (m *Model) PageCount() int { return m.pages }

// SelectedRows returns the selected rows among the loaded ones.
func (m *Model) SelectedRows() []Row { return m.ctrl.SelectedRows() }

// CursorRow returns the row under the cursor.
func (m *Model) CursorRow() (Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil, false
	}
	return m.visible[m.cursor], true
}

// Capturing reports whether the table consumes every key, so the host should
// not interpret them.
func (m *Model) Capturing() bool {
	return m.filter.Focused() || m.menu.open
}

// MenuOpen reports whether a row action menu is open.
func (m *Model) MenuOpen() bool { return m.menu.open }

// Status derives what the body shows from the query state.
func (m *Model) Status() Status {
	st := m.observer.State()
	switch {
	case st.IsError:
		return StatusError
	case st.IsLoading || !st.HasData:
		return StatusLoading
	case len(m.visible) == 0:
		return StatusEmpty
	default:
		return StatusReady
	}
}

// Refetch drops the cached result and fetches the current query again.
func (m *Model) Refetch() tea.Cmd {
	cmd := m.observer.Refetch()
	return m.withSpinner(tea.Batch(cmd, m.derive()))
}

// SetFilter replaces the global filter text.
func (m *Model) SetFilter(text string) tea.Cmd {
	if m.filter.Value() != text {
		m.filter.SetValue(text)
	}
	if !m.ctrl.SetGlobalFilter(text) {
		return nil
	}
	return m.sync()
}

// ToggleSort advances the sort of column key. Non-sortable columns are ignored.
func (m *Model) ToggleSort(key string) tea.Cmd {
	col, ok := m.column(key)
	if !ok || !col.Sortable {
		return nil
	}
	if !m.ctrl.ToggleSort(key) {
		return nil
	}
	return m.sync()
}

// SetPage moves to page index i.
func (m *Model) SetPage(i int) tea.Cmd {
	if i < 0 || i >= m.pages {
		return nil
	}
	if !m.ctrl.SetPageIndex(i) {
		return nil
	}
	return m.sync()
}

// SetPageSize changes the page size and returns to the first page.
func (m *Model) SetPageSize(size int) tea.Cmd {
	if !m.ctrl.SetPageSize(size) {
		return nil
	}
	return m.sync()
}

// ToggleSelected flips the selection of the cursor row.
func (m *Model) ToggleSelected() bool {
	row, ok := m.CursorRow()
	if !ok {
		return false
	}
	id := m.rowID(row)
	if id == "" {
		return false
	}
	return m.ctrl.ToggleRowSelected(id)
}

// ClearSelection deselects every row.
func (m *Model) ClearSelection() bool {
	return m.ctrl.SetRowSelection(nil)
}

// OpenActions opens the action menu of the cursor row.
func (m *Model) OpenActions() bool {
	row, ok := m.CursorRow()
	if !ok {
		return false
	}
	col, ok := m.actionsColumn()
	if !ok {
		return false
	}
	return m.menu.openFor(row, m.rowID(row), m.actionsFor(col))
}

// Update handles query results, spinner ticks and keys.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case query.ResultMsg:
		if !m.observer.Update(msg) {
			return nil
		}
		if m.observer.State().IsError {
			m.errDismissed = false
		}
		return m.withSpinner(m.derive())

	case spinner.TickMsg:
		if !m.observer.State().IsFetching {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.filter.Focused() {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.filter.Focused() {
		switch {
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Confirm):
			m.filter.Blur()
			return nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return tea.Batch(cmd, m.SetFilter(m.filter.Value()))
	}

	if m.menu.open {
		switch {
		case key.Matches(msg, m.keys.Up):
			m.menu.move(-1)
		case key.Matches(msg, m.keys.Down):
			m.menu.move(1)
		case key.Matches(msg, m.keys.Cancel):
			m.menu.close()
		case key.Matches(msg, m.keys.Actions):
			rowID := m.menu.rowID
			item, cmd, ok := m.menu.activate(m.nav)
			if ok {
				logger.Info().
					Str("table", m.name).
					Str("action", item.Name).
					Str("row", rowID).
					Msg("row action")
			}
			return cmd
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.NextColumn):
		if len(m.cols) > 0 {
			m.activeCol = (m.activeCol + 1) % len(m.cols)
		}
	case key.Matches(msg, m.keys.PrevColumn):
		if len(m.cols) > 0 {
			m.activeCol = (m.activeCol - 1 + len(m.cols)) % len(m.cols)
		}
	case key.Matches(msg, m.keys.Sort):
		if len(m.cols) > 0 {
			return m.ToggleSort(m.cols[m.activeCol].Key)
		}
	case key.Matches(msg, m.keys.Filter):
		return m.filter.Focus()
	case key.Matches(msg, m.keys.NextPage):
		return m.SetPage(m.ctrl.state.Pagination.PageIndex + 1)
	case key.Matches(msg, m.keys.PrevPage):
		return m.SetPage(m.ctrl.state.Pagination.PageIndex - 1)
	case key.Matches(msg, m.keys.Grow):
		return m.SetPageSize(m.nextPageSize(1))
	case key.Matches(msg, m.keys.Shrink):
		return m.SetPageSize(m.nextPageSize(-1))
	case key.Matches(msg, m.keys.Select):
		m.ToggleSelected()
	case key.Matches(msg, m.keys.Actions):
		m.OpenActions()
	case key.Matches(msg, m.keys.Dismiss):
		m.errDismissed = true
	case key.Matches(msg, m.keys.Refresh):
		return m.Refetch()
	case key.Matches(msg, m.keys.Cancel):
		if m.filter.Value() != "" {
			return m.SetFilter("")
		}
	}
	return nil
}

func (m *Model) nextPageSize(dir int) int {
	cur := m.ctrl.state.Pagination.PageSize
	if dir > 0 {
		for _, s := range m.pageSizes {
			if s > cur {
				return s
			}
		}
		return cur
	}
	for i := len(m.pageSizes) - 1; i >= 0; i-- {
		if m.pageSizes[i] < cur {
			return m.pageSizes[i]
		}
	}
	return cur
}

// sync sends the current state to the observer and rederives the visible rows.
func (m *Model) sync() tea.Cmd {
	var cmd tea.Cmd
	if d := m.source.Resolve(m.ctrl.Params(m.cols)); !d.IsZero() {
		cmd = m.observer.SetQuery(d)
	}
	return m.withSpinner(tea.Batch(cmd, m.derive()))
}

func (m *Model) withSpinner(cmd tea.Cmd) tea.Cmd {
	if cmd == nil || !m.observer.State().IsFetching {
		return cmd
	}
	return tea.Batch(cmd, m.spinner.Tick)
}

// derive recomputes visible rows and page count from the query state. In
// server mode a shrunken result can move the page back, which needs a fetch.
func (m *Model) derive() tea.Cmd {
	st := m.observer.State()
	if st.HasData {
		m.rows = m.resolver.ResolveRows(st.Data)
		m.pagination = m.resolver.ResolvePagination(st.Data)
	} else {
		m.rows, m.pagination = nil, nil
	}

	size := m.ctrl.state.Pagination.PageSize
	var cmd tea.Cmd
	if m.source.Mode() == ModeClient {
		rows := filterRows(m.rows, m.cols, m.ctrl.state.GlobalFilter)
		if s, ok := m.ctrl.Sort(); ok {
			if col, ok := m.column(s.ID); ok {
				rows = sortRows(rows, col, s.Desc)
			}
		}
		// A pagination object in a client-mode response describes the full
		// array, not the filtered rows, so it is not used here.
		m.matched = len(rows)
		m.pages = pageCount(len(rows), size)
		if st.HasData {
			m.ctrl.ClampPage(m.pages)
		}
		m.visible = pageRows(rows, m.ctrl.state.Pagination.PageIndex, size)
	} else {
		m.visible = m.rows
		m.matched = m.total(len(m.rows))
		m.pages = pageCount(m.matched, size)
		if st.HasData && m.ctrl.ClampPage(m.pages) {
			if d := m.source.Resolve(m.ctrl.Params(m.cols)); !d.IsZero() {
				cmd = m.observer.SetQuery(d)
			}
		}
	}

	m.paginator.PerPage = size
	m.paginator.TotalPages = m.pages
	m.paginator.Page = m.ctrl.state.Pagination.PageIndex
	m.clampCursor()
	return cmd
}

func (m *Model) total(n int) int {
	if m.pagination != nil {
		return m.pagination.Total
	}
	return n
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if len(m.cols) > 0 && m.activeCol >= len(m.cols) {
		m.activeCol = len(m.cols) - 1
	}
}

func (m *Model) column(key string) (Column, bool) {
	for _, c := range m.cols {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// actionsColumn returns the table's single actions column.
func (m *Model) actionsColumn() (Column, bool) {
	for _, c := range m.cols {
		if c.Kind == KindActions {
			return c, true
		}
	}
	return Column{}, false
}

func (m *Model) actionsFor(col Column) []RowAction {
	if col.Actions != nil {
		return col.Actions
	}
	return m.defaultActions
}

// Meta summarizes the active column, sort and filter for a status line.
func (m *Model) Meta() string {
	var parts []string
	if len(m.cols) > 0 {
		parts = append(parts, fmt.Sprintf("col %s", strings.ToUpper(m.cols[m.activeCol].HeaderLabel())))
	}
	if s, ok := m.ctrl.Sort(); ok {
		label := s.ID
		if col, ok := m.column(s.ID); ok {
			label = col.HeaderLabel()
		}
		order := SortAsc
		if s.Desc {
			order = SortDesc
		}
		parts = append(parts, fmt.Sprintf("sort %s %s", strings.ToUpper(label), order))
	}
	if f := m.ctrl.state.GlobalFilter; f != "" {
		parts = append(parts, fmt.Sprintf("filter %q", f))
	}
	parts = append(parts, m.source.Mode().String())
	return strings.Join(parts, "  ·  ")
}
