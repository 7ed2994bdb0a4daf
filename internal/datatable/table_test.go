package datatable

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testdeck/internal/query"
)

// fakeObserver answers every query synchronously.
type fakeObserver struct {
	respond func(d query.Descriptor) (any, error)
	queries []query.Descriptor
	key     string
	state   query.State
}

func (f *fakeObserver) SetQuery(d query.Descriptor) tea.Cmd {
	if len(f.queries) > 0 && f.key == d.Key() {
		return nil
	}
	f.key = d.Key()
	f.queries = append(f.queries, d)
	f.apply(d)
	return nil
}

func (f *fakeObserver) Refetch() tea.Cmd {
	if len(f.queries) > 0 {
		f.apply(f.queries[len(f.queries)-1])
	}
	return nil
}

func (f *fakeObserver) apply(d query.Descriptor) {
	if f.respond == nil {
		f.state = query.State{IsLoading: true, IsFetching: true}
		return
	}
	data, err := f.respond(d)
	if err != nil {
		f.state = query.State{IsError: true, Err: err}
		return
	}
	f.state = query.State{Data: data, HasData: true}
}

func (f *fakeObserver) Update(tea.Msg) bool { return false }
func (f *fakeObserver) State() query.State  { return f.state }

func (f *fakeObserver) last() query.Descriptor { return f.queries[len(f.queries)-1] }

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func caseRows(n int) []any {
	rows := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, map[string]any{
			"id":    float64(i),
			"code":  fmt.Sprintf("TC-%02d", i),
			"title": fmt.Sprintf("Case %d", i),
		})
	}
	return rows
}

func newClientTable(t *testing.T, cfg Config, resp any) (*Model, *fakeObserver) {
	t.Helper()
	obs := &fakeObserver{respond: func(query.Descriptor) (any, error) { return resp, nil }}
	cfg.Observer = obs
	cfg.Source = ClientQuery(query.Descriptor{Resource: "test_cases"})
	if cfg.Columns == nil {
		cfg.Columns = []Column{{Key: "code", Sortable: true}, {Key: "title", Sortable: true}}
	}
	m, err := New(cfg)
	require.NoError(t, err)
	m.Init()
	return m, obs
}

func codes(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["code"].(string))
	}
	return out
}

func TestNewRequiresObserver(t *testing.T) {
	_, err := New(Config{Name: "x"})
	assert.Error(t, err)
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	_, err := New(Config{Observer: &fakeObserver{}, Columns: []Column{{Key: "a"}, {Key: "a"}}})
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestClientModePaginatesSortsAndFilters(t *testing.T) {
	m, obs := newClientTable(t, Config{PageSize: 10}, map[string]any{"data": caseRows(25)})

	assert.Equal(t, StatusReady, m.Status())
	assert.Equal(t, 3, m.PageCount())
	assert.Len(t, m.Rows(), 10)

	m.SetPage(2)
	assert.Equal(t, []string{"TC-21", "TC-22", "TC-23", "TC-24", "TC-25"}, codes(m.Rows()))

	m.ToggleSort("code")
	m.ToggleSort("code")
	assert.Equal(t, 0, m.State().Pagination.PageIndex)
	assert.Equal(t, "TC-25", codes(m.Rows())[0])

	m.SetFilter("case 1")
	assert.Equal(t, 2, m.PageCount(), "Case 1 and Case 10-19 match")
	assert.Equal(t, "TC-19", codes(m.Rows())[0])

	require.Len(t, obs.queries, 1, "client mode fetches once")
}

func TestClientModeFilterIsCaseInsensitiveAndSkipsActions(t *testing.T) {
	m, _ := newClientTable(t, Config{
		DefaultActions: []RowAction{{Name: "view", Label: "View"}},
	}, caseRows(3))

	m.SetFilter("tc-02")
	assert.Equal(t, []string{"TC-02"}, codes(m.Rows()))

	m.SetFilter("view")
	assert.Empty(t, m.Rows())
	assert.Equal(t, StatusEmpty, m.Status())
}

func TestPageResetFiresOnlyOnChange(t *testing.T) {
	m, _ := newClientTable(t, Config{PageSize: 5}, caseRows(30))

	m.SetPage(3)
	m.SetFilter("tc")
	assert.Equal(t, 0, m.State().Pagination.PageIndex)

	m.SetPage(4)
	m.SetFilter("tc")
	assert.Equal(t, 4, m.State().Pagination.PageIndex)

	m.ToggleSort("title")
	assert.Equal(t, 0, m.State().Pagination.PageIndex)

	m.SetPage(2)
	m.SetPageSize(10)
	assert.Equal(t, 0, m.State().Pagination.PageIndex)
}

func TestPaginationFallsBackToRowCount(t *testing.T) {
	m, _ := newClientTable(t, Config{PageSize: 10}, caseRows(0))
	assert.Equal(t, 1, m.PageCount())
	assert.Equal(t, StatusEmpty, m.Status())

	m, _ = newClientTable(t, Config{PageSize: 4}, map[string]any{"items": caseRows(9)})
	assert.Equal(t, 3, m.PageCount())
}

func TestServerModeSerializesState(t *testing.T) {
	obs := &fakeObserver{respond: func(d query.Descriptor) (any, error) {
		return map[string]any{
			"data":       caseRows(10),
			"pagination": map[string]any{"total": float64(95), "page": float64(1), "pageSize": float64(10)},
		}, nil
	}}
	m, err := New(Config{
		Name:     "projects",
		Columns:  []Column{{Key: "code", Sortable: true, SortKey: "case_code"}, {Key: "title"}},
		Observer: obs,
		Source: ServerQuery(func(p Params) query.Descriptor {
			return query.Descriptor{Resource: "projects", Params: p.Values()}
		}),
	})
	require.NoError(t, err)
	m.Init()

	assert.Equal(t, ModeServer, m.Mode())
	assert.Equal(t, 10, m.PageCount())
	assert.Equal(t, "1", obs.last().Params.Get("page"))

	m.SetPage(3)
	assert.Equal(t, "4", obs.last().Params.Get("page"))

	m.ToggleSort("code")
	assert.Equal(t, "case_code", obs.last().Params.Get("sortBy"))
	assert.Equal(t, "asc", obs.last().Params.Get("sortOrder"))
	assert.Equal(t, "1", obs.last().Params.Get("page"))

	m.SetFilter("Case 3")
	assert.Equal(t, "Case 3", obs.last().Params.Get("search"))
	assert.Len(t, m.Rows(), 10, "server rows are trusted verbatim")

	m.ToggleSort("title")
	assert.Equal(t, "case_code", obs.last().Params.Get("sortBy"), "title is not sortable")
}

func TestServerModeClampsPageWhenTotalShrinks(t *testing.T) {
	total := 50.0
	obs := &fakeObserver{respond: func(d query.Descriptor) (any, error) {
		return map[string]any{
			"data":       caseRows(5),
			"pagination": map[string]any{"total": total},
		}, nil
	}}
	m, err := New(Config{
		Columns:  []Column{{Key: "code"}},
		Observer: obs,
		PageSize: 10,
		Source: ServerQuery(func(p Params) query.Descriptor {
			return query.Descriptor{Resource: "test_cases", Params: p.Values()}
		}),
	})
	require.NoError(t, err)
	m.Init()
	m.SetPage(3)
	require.Equal(t, 3, m.State().Pagination.PageIndex)

	total = 5
	m.Refetch()
	assert.Equal(t, 0, m.State().Pagination.PageIndex)
	assert.Equal(t, 1, m.PageCount())
	assert.Equal(t, "1", obs.last().Params.Get("page"))
}

func TestEnumCellShowsLabel(t *testing.T) {
	cols := []Column{
		{Key: "code", Sortable: true},
		{Key: "title"},
		{Key: "kind", Kind: KindEnum, Enum: &EnumOptions{Map: map[string]EnumOption{
			"general": {Label: "General"},
		}}},
	}
	m, _ := newClientTable(t, Config{Columns: cols}, []any{
		map[string]any{"code": "TC-1", "title": "Login", "kind": "general"},
	})

	row := m.Rows()[0]
	assert.Equal(t, "General", ansi.Strip(m.cellText(cols[2], row)))

	view := ansi.Strip(m.View(120, 20))
	assert.Contains(t, view, "General")
	assert.NotContains(t, view, "general")
}

func TestCellDispatch(t *testing.T) {
	m, _ := newClientTable(t, Config{}, caseRows(1))
	row := Row{"n": nil, "d": "2024-01-15", "bad": "someday", "k": "unmapped", "x": float64(12)}

	assert.Equal(t, "—", m.cellText(Column{Key: "n"}, row))
	assert.Equal(t, "12", m.cellText(Column{Key: "x", Kind: KindNumber}, row))
	assert.Equal(t, "Jan 15, 2024", m.cellText(Column{Key: "d", Kind: KindDate}, row))
	assert.Equal(t, "someday", m.cellText(Column{Key: "bad", Kind: KindDate}, row))
	assert.Equal(t, "—", m.cellText(Column{Key: "n", Kind: KindDate}, row))
	assert.Equal(t, "unmapped", m.cellText(Column{Key: "k", Kind: KindEnum, Enum: &EnumOptions{}}, row))
	assert.Equal(t, "custom:unmapped", m.cellText(Column{Key: "k", Kind: KindEnum, Enum: &EnumOptions{
		Render: func(v any, _ Row) string { return "custom:" + v.(string) },
	}}, row))
	assert.Equal(t, "<12>", m.cellText(Column{Key: "x", CellRenderer: func(v any, _ Row) string {
		return fmt.Sprintf("<%v>", v)
	}}, row))
}

func TestActionsHiddenForDeletedRow(t *testing.T) {
	view := RowAction{
		Name:    "view",
		Label:   "View",
		Visible: When(func(r Row) bool { return r["status"] != "deleted" }),
	}
	m, _ := newClientTable(t, Config{DefaultActions: []RowAction{view}}, []any{
		map[string]any{"id": "1", "code": "TC-1", "status": "deleted"},
		map[string]any{"id": "2", "code": "TC-2", "status": "active"},
	})

	cols := m.Columns()
	actionsCol := cols[len(cols)-1]
	require.Equal(t, KindActions, actionsCol.Kind)

	assert.Equal(t, "", m.cellText(actionsCol, m.Rows()[0]))
	assert.False(t, m.OpenActions())
	assert.False(t, m.MenuOpen())

	m.Update(keyMsg("down"))
	assert.Equal(t, actionsTrigger, ansi.Strip(m.cellText(actionsCol, m.Rows()[1])))
	m.Update(keyMsg("enter"))
	assert.True(t, m.MenuOpen())
	assert.Contains(t, ansi.Strip(m.View(100, 20)), "View")
}

func TestColumnActionsOverrideDefaults(t *testing.T) {
	override := []RowAction{{Name: "only", Label: "Only"}}
	m, _ := newClientTable(t, Config{
		Columns: []Column{
			{Key: "code"},
			{Key: "ops", Kind: KindActions, Actions: override},
		},
		DefaultActions: []RowAction{{Name: "default"}},
	}, caseRows(1))

	require.Len(t, m.Columns(), 2)
	require.True(t, m.OpenActions())
	assert.Equal(t, "only", m.menu.items[0].Name)
}

func TestMenuActivationNavigates(t *testing.T) {
	var targets []string
	nav := func(target string) tea.Cmd {
		targets = append(targets, target)
		return nil
	}
	m, _ := newClientTable(t, Config{
		Navigator: nav,
		DefaultActions: []RowAction{{
			Name: "view",
			Link: RowLink(func(r Row) string { return fmt.Sprintf("/test-cases/%v", r["id"]) }),
		}},
	}, caseRows(2))

	m.Update(keyMsg("."))
	require.True(t, m.MenuOpen())
	m.Update(keyMsg("enter"))
	assert.False(t, m.MenuOpen())
	assert.Equal(t, []string{"/test-cases/1"}, targets)
}

func TestMenuEscCloses(t *testing.T) {
	m, _ := newClientTable(t, Config{DefaultActions: []RowAction{{Name: "view"}}}, caseRows(1))
	m.Update(keyMsg("enter"))
	require.True(t, m.Capturing())
	m.Update(keyMsg("esc"))
	assert.False(t, m.Capturing())
}

func TestSelectionKeyReportsRows(t *testing.T) {
	var selected []Row
	m, _ := newClientTable(t, Config{OnSelectionChange: func(rows []Row) { selected = rows }}, caseRows(3))

	m.Update(keyMsg(" "))
	m.Update(keyMsg("down"))
	m.Update(keyMsg("down"))
	m.Update(keyMsg(" "))
	assert.Equal(t, []string{"TC-01", "TC-03"}, codes(selected))
	assert.Len(t, m.SelectedRows(), 2)
	assert.Contains(t, ansi.Strip(m.View(100, 20)), "2 selected")

	m.ClearSelection()
	assert.Empty(t, selected)
}

func TestFilterKeys(t *testing.T) {
	m, _ := newClientTable(t, Config{}, caseRows(12))

	m.Update(keyMsg("/"))
	require.True(t, m.Capturing())
	m.Update(keyMsg("TC-1"))
	assert.Equal(t, "TC-1", m.State().GlobalFilter)
	assert.Len(t, m.Rows(), 3, "TC-10, TC-11 and TC-12")

	m.Update(keyMsg("enter"))
	assert.False(t, m.Capturing())

	m.Update(keyMsg("esc"))
	assert.Equal(t, "", m.State().GlobalFilter)
	assert.Len(t, m.Rows(), 10)
}

func TestSortKeyUsesActiveColumn(t *testing.T) {
	m, _ := newClientTable(t, Config{}, caseRows(3))
	m.Update(keyMsg("tab"))
	m.Update(keyMsg("s"))
	assert.Equal(t, []SortDescriptor{{ID: "title"}}, m.State().Sorting)
	assert.Contains(t, m.Meta(), "sort TITLE asc")
}

func TestPageKeys(t *testing.T) {
	m, _ := newClientTable(t, Config{PageSize: 5}, caseRows(12))
	m.Update(keyMsg("]"))
	m.Update(keyMsg("]"))
	m.Update(keyMsg("]"))
	assert.Equal(t, 2, m.State().Pagination.PageIndex, "stops at the last page")
	m.Update(keyMsg("["))
	assert.Equal(t, 1, m.State().Pagination.PageIndex)

	m.Update(keyMsg("+"))
	assert.Equal(t, PaginationState{PageIndex: 0, PageSize: 10}, m.State().Pagination)
	m.Update(keyMsg("-"))
	m.Update(keyMsg("-"))
	assert.Equal(t, 5, m.State().Pagination.PageSize, "smallest size is kept")
}

func TestLoadingState(t *testing.T) {
	obs := &fakeObserver{}
	m, err := New(Config{
		Columns:  []Column{{Key: "code"}},
		Observer: obs,
		Source:   ClientQuery(query.Descriptor{Resource: "testers"}),
	})
	require.NoError(t, err)
	m.Init()
	assert.Equal(t, StatusLoading, m.Status())
	assert.Contains(t, ansi.Strip(m.View(80, 12)), "Loading")

	m.ToggleSort("code")
	m.SetFilter("still typing")
	assert.Equal(t, "still typing", m.State().GlobalFilter, "filter stays interactive while loading")
}

func TestErrorStateIsDismissible(t *testing.T) {
	obs := &fakeObserver{respond: func(query.Descriptor) (any, error) {
		return nil, errors.New("connection refused")
	}}
	m, err := New(Config{
		Columns:  []Column{{Key: "code"}},
		Observer: obs,
		Source:   ClientQuery(query.Descriptor{Resource: "users"}),
	})
	require.NoError(t, err)
	m.Init()

	assert.Equal(t, StatusError, m.Status())
	assert.Contains(t, ansi.Strip(m.View(100, 12)), "connection refused")

	m.Update(keyMsg("x"))
	assert.NotContains(t, ansi.Strip(m.View(100, 12)), "connection refused")
	assert.Equal(t, StatusError, m.Status())
}

func TestEmptyMessage(t *testing.T) {
	m, _ := newClientTable(t, Config{EmptyMessage: "No testers yet."}, []any{})
	assert.Contains(t, ansi.Strip(m.View(80, 12)), "No testers yet.")
}

func TestViewShowsHeadersAndSortIndicator(t *testing.T) {
	m, _ := newClientTable(t, Config{DefaultSort: &SortDescriptor{ID: "code", Desc: true}}, caseRows(2))
	view := ansi.Strip(m.View(100, 12))
	assert.Contains(t, view, "CODE ↓")
	assert.Contains(t, view, "TITLE")
	assert.True(t, strings.Index(view, "TC-02") < strings.Index(view, "TC-01"))
	assert.Contains(t, view, "2 rows")
}

func TestClientModeIgnoresResponsePagination(t *testing.T) {
	m, _ := newClientTable(t, Config{PageSize: 10}, map[string]any{
		"data":       caseRows(31),
		"pagination": map[string]any{"total": float64(31)},
	})
	assert.Equal(t, 4, m.PageCount())

	m.SetFilter("TC-31")
	assert.Equal(t, 1, m.PageCount())
	assert.Equal(t, []string{"TC-31"}, codes(m.Rows()))
	assert.Contains(t, ansi.Strip(m.View(100, 20)), "1 row")
}

func pagedCases(total int) func(query.Descriptor) (any, error) {
	return func(d query.Descriptor) (any, error) {
		p := ParamsFromValues(d.Params)
		all := caseRows(total)
		start := min((p.Page-1)*p.PageSize, len(all))
		end := min(start+p.PageSize, len(all))
		return map[string]any{
			"data":       all[start:end],
			"pagination": map[string]any{"total": float64(total)},
		}, nil
	}
}

func newServerTable(t *testing.T, cfg Config, obs QueryObserver) *Model {
	t.Helper()
	cfg.Observer = obs
	cfg.Source = ServerQuery(func(p Params) query.Descriptor {
		return query.Descriptor{Resource: "test_cases", Params: p.Values()}
	})
	if cfg.Columns == nil {
		cfg.Columns = []Column{{Key: "code", Sortable: true}}
	}
	m, err := New(cfg)
	require.NoError(t, err)
	m.Init()
	return m
}

func TestServerModeSelectionSpansPages(t *testing.T) {
	var selected []Row
	m := newServerTable(t, Config{
		PageSize:          2,
		OnSelectionChange: func(rows []Row) { selected = rows },
	}, &fakeObserver{respond: pagedCases(6)})

	require.True(t, m.ToggleSelected())
	m.SetPage(1)
	require.True(t, m.ToggleSelected())

	assert.Equal(t, []string{"TC-03", "TC-01"}, codes(selected), "rows from other pages stay materialized")
	assert.Len(t, m.State().Selection, 2)
	assert.Contains(t, ansi.Strip(m.View(100, 20)), "2 selected")

	m.SetPage(0)
	require.True(t, m.ToggleSelected())
	assert.Equal(t, []string{"TC-03"}, codes(selected))
}

// fetchingObserver answers synchronously but reports every new query as
// still in flight, the way the real observer does.
type fetchingObserver struct {
	*fakeObserver
}

func (f fetchingObserver) SetQuery(d query.Descriptor) tea.Cmd {
	if len(f.queries) > 0 && f.key == d.Key() {
		return nil
	}
	f.fakeObserver.SetQuery(d)
	f.state.IsFetching = true
	return func() tea.Msg { return nil }
}

func (f fetchingObserver) Update(tea.Msg) bool { return true }

func TestServerClampRefetchStartsSpinner(t *testing.T) {
	total := 50
	obs := fetchingObserver{&fakeObserver{}}
	obs.respond = func(d query.Descriptor) (any, error) { return pagedCases(total)(d) }
	m := newServerTable(t, Config{PageSize: 10}, obs)
	m.SetPage(3)
	require.Equal(t, 3, m.State().Pagination.PageIndex)

	total = 5
	obs.apply(obs.last())
	cmd := m.Update(query.ResultMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, 0, m.State().Pagination.PageIndex)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok, "clamp refetch is batched with a spinner tick")
	var ticked bool
	for _, c := range batch {
		if c == nil {
			continue
		}
		if _, ok := c().(spinner.TickMsg); ok {
			ticked = true
		}
	}
	assert.True(t, ticked)
}
