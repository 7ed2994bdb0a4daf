package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"testdeck/internal/datatable"
	"testdeck/internal/model"
	"testdeck/internal/query"
	"testdeck/internal/util"
)

// tableDeps are the collaborators every list screen shares.
type tableDeps struct {
	backend  Backend
	queries  *query.Client
	pageSize int
	prefs    UIPreferences
	onSelect func(model.Screen, []datatable.Row)
}

// serverQuery sends the table state to the backend as list parameters.
func serverQuery(resource string) datatable.Source {
	return datatable.ServerQuery(func(p datatable.Params) query.Descriptor {
		return query.Descriptor{Resource: resource, Params: p.Values()}
	})
}

func clientQuery(resource string) datatable.Source {
	return datatable.ClientQuery(query.Descriptor{Resource: resource})
}

func buildTables(deps tableDeps) (map[model.Screen]*datatable.Model, error) {
	configs := map[model.Screen]datatable.Config{
		model.ScreenProjects:  projectsTable(deps.backend),
		model.ScreenTestCases: testCasesTable(deps.backend),
		model.ScreenTestPlans: testPlansTable(),
		model.ScreenTesters:   testersTable(),
		model.ScreenUsers:     usersTable(),
	}

	tables := make(map[model.Screen]*datatable.Model, len(configs))
	for _, screen := range model.Tabs {
		cfg := configs[screen]
		cfg.Name = screen.Resource()
		cfg.Observer = deps.queries.Observe()
		cfg.Navigator = navigate
		if cfg.PageSize == 0 {
			cfg.PageSize = deps.pageSize
		}
		if deps.onSelect != nil {
			cfg.OnSelectionChange = func(rows []datatable.Row) { deps.onSelect(screen, rows) }
		}
		deps.prefs.Tables[cfg.Name].apply(&cfg)

		t, err := datatable.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s table: %w", screen.Title(), err)
		}
		tables[screen] = t
	}
	return tables, nil
}

func viewAction(screen model.Screen) datatable.RowAction {
	return datatable.RowAction{
		Name:  "view",
		Label: "View details",
		Icon:  "→",
		Link: datatable.RowLink(func(r datatable.Row) string {
			id, ok := recordID(r)
			if !ok {
				return ""
			}
			return model.DetailPath(screen, id)
		}),
	}
}

func copyAction(field, label string) datatable.RowAction {
	return datatable.RowAction{
		Name:  "copy",
		Label: label,
		Icon:  "⧉",
		OnClick: func(r datatable.Row) tea.Cmd {
			return copyCmd(util.Stringify(r[field]))
		},
		Disabled: datatable.When(func(r datatable.Row) bool { return r[field] == nil }),
	}
}

func statusAction(b Backend, screen model.Screen, name, label, status, verb string) datatable.RowAction {
	return datatable.RowAction{
		Name:  name,
		Label: label,
		Icon:  "◌",
		Color: datatable.ToneWarning,
		OnClick: func(r datatable.Row) tea.Cmd {
			id, ok := recordID(r)
			if !ok {
				return nil
			}
			return setStatusCmd(b, screen, id, status, util.Stringify(r["status"]), verb)
		},
		Disabled: datatable.When(func(r datatable.Row) bool { return r["status"] == status }),
	}
}

// softDeleted lists the screens whose deletes only change the status,
// so they can be undone.
var softDeleted = map[model.Screen]bool{model.ScreenTestCases: true}

func deleteAction(b Backend, screen model.Screen) datatable.RowAction {
	return datatable.RowAction{
		Name:  "delete",
		Label: "Delete",
		Icon:  "✕",
		Color: datatable.ToneDanger,
		OnClick: func(r datatable.Row) tea.Cmd {
			id, ok := recordID(r)
			if !ok {
				return nil
			}
			var previous string
			if softDeleted[screen] {
				previous = util.Stringify(r["status"])
			}
			return deleteCmd(b, screen, id, previous)
		},
	}
}

func projectsTable(b Backend) datatable.Config {
	return datatable.Config{
		Source: serverQuery("projects"),
		Columns: []datatable.Column{
			{Key: "key", Width: 7, Sortable: true},
			{Key: "name", Width: 24, Sortable: true},
			{Key: "owner", Width: 18, Sortable: true},
			{Key: "case_count", Header: "Cases", Kind: datatable.KindNumber, Align: datatable.AlignRight, Sortable: true},
			{Key: "status", Kind: datatable.KindEnum, Sortable: true, Enum: &datatable.EnumOptions{
				Map: map[string]datatable.EnumOption{
					"active":   {Label: "Active", Tone: datatable.ToneSuccess},
					"archived": {Label: "Archived", Tone: datatable.ToneNeutral},
				},
			}},
			{Key: "created_at", Header: "Created", Kind: datatable.KindDate, Sortable: true},
		},
		DefaultSort: &datatable.SortDescriptor{ID: "name"},
		DefaultActions: []datatable.RowAction{
			viewAction(model.ScreenProjects),
			statusAction(b, model.ScreenProjects, "archive", "Archive", "archived", "archived"),
			deleteAction(b, model.ScreenProjects),
		},
		EmptyMessage: "No projects match.",
	}
}

var (
	caseKinds = map[string]datatable.EnumOption{
		"general":    {Label: "General", Tone: datatable.ToneNeutral},
		"regression": {Label: "Regression", Tone: datatable.ToneInfo},
		"smoke":      {Label: "Smoke", Tone: datatable.ToneSuccess},
		"security":   {Label: "Security", Tone: datatable.ToneWarning},
	}
	casePriorities = map[string]datatable.EnumOption{
		"low":      {Label: "Low", Tone: datatable.ToneNeutral},
		"medium":   {Label: "Medium", Tone: datatable.ToneInfo},
		"high":     {Label: "High", Tone: datatable.ToneWarning},
		"critical": {Label: "Critical", Tone: datatable.ToneDanger, Variant: "solid"},
	}
	caseStatuses = map[string]datatable.EnumOption{
		"draft":      {Label: "Draft", Tone: datatable.ToneNeutral},
		"ready":      {Label: "Ready", Tone: datatable.ToneSuccess},
		"deprecated": {Label: "Deprecated", Tone: datatable.ToneWarning},
		"deleted":    {Label: "Deleted", Tone: datatable.ToneDanger},
	}
)

// unlessDeleted hides a on soft-deleted rows.
func unlessDeleted(a datatable.RowAction) datatable.RowAction {
	a.Visible = datatable.When(func(r datatable.Row) bool { return r["status"] != "deleted" })
	return a
}

func testCasesTable(b Backend) datatable.Config {
	ready := statusAction(b, model.ScreenTestCases, "ready", "Mark ready", "ready", "marked ready")
	ready.Icon, ready.Color = "✓", datatable.ToneSuccess

	actions := []datatable.RowAction{
		viewAction(model.ScreenTestCases),
		copyAction("code", "Copy code"),
		unlessDeleted(ready),
		unlessDeleted(statusAction(b, model.ScreenTestCases, "deprecate", "Deprecate", "deprecated", "deprecated")),
		unlessDeleted(deleteAction(b, model.ScreenTestCases)),
	}

	return datatable.Config{
		Source: serverQuery("test_cases"),
		Columns: []datatable.Column{
			{Key: "code", Width: 10, Sortable: true},
			{Key: "title", Width: 34, Sortable: true},
			{Key: "project", Width: 18, Sortable: true},
			{Key: "kind", Kind: datatable.KindEnum, Sortable: true, Enum: &datatable.EnumOptions{Map: caseKinds}},
			{Key: "priority", Kind: datatable.KindEnum, Sortable: true, Enum: &datatable.EnumOptions{Map: casePriorities}},
			{Key: "status", Kind: datatable.KindEnum, Sortable: true, Enum: &datatable.EnumOptions{Map: caseStatuses}},
			{
				Key:      "updated",
				Kind:     datatable.KindDate,
				Sortable: true,
				SortKey:  "updated_at",
				Accessor: func(r datatable.Row) any {
					if v := r["updated_at"]; v != nil {
						return v
					}
					return r["created_at"]
				},
				CellRenderer: func(v any, _ datatable.Row) string { return util.FormatDateHuman(v) },
			},
			{Key: "actions", Kind: datatable.KindActions, Align: datatable.AlignCenter, Width: 9, Actions: actions},
		},
		DefaultSort:  &datatable.SortDescriptor{ID: "code"},
		SortToggle:   datatable.TwoState,
		EmptyMessage: "No test cases match.",
	}
}

func testPlansTable() datatable.Config {
	return datatable.Config{
		Source: clientQuery("test_plans"),
		Columns: []datatable.Column{
			{Key: "name", Width: 28, Sortable: true},
			{Key: "project_key", Header: "Project", Width: 9, Sortable: true},
			{Key: "status", Kind: datatable.KindEnum, Sortable: true, Enum: &datatable.EnumOptions{
				Map: map[string]datatable.EnumOption{
					"planned": {Label: "Planned", Tone: datatable.ToneInfo},
					"running": {Label: "Running", Tone: datatable.ToneWarning, Variant: "solid"},
					"done":    {Label: "Done", Tone: datatable.ToneSuccess},
				},
			}},
			{Key: "starts_on", Header: "Starts", Kind: datatable.KindDate, Sortable: true},
			{Key: "ends_on", Header: "Ends", Kind: datatable.KindDate, Sortable: true},
		},
		DefaultActions: []datatable.RowAction{
			viewAction(model.ScreenTestPlans),
		},
		EmptyMessage: "No test plans yet.",
	}
}

func testersTable() datatable.Config {
	return datatable.Config{
		Source: clientQuery("testers"),
		Columns: []datatable.Column{
			{Key: "name", Width: 20, Sortable: true},
			{Key: "email", Width: 26, Sortable: true},
			{Key: "team", Width: 12, Sortable: true},
			{Key: "active", Header: "Status", Kind: datatable.KindEnum, Sortable: true, Enum: &datatable.EnumOptions{
				Render: func(v any, _ datatable.Row) string {
					if n, ok := util.ToInt(v); ok && n != 0 {
						return "Active"
					}
					if b, ok := v.(bool); ok && b {
						return "Active"
					}
					return "Inactive"
				},
			}},
			{Key: "joined_on", Header: "Joined", Kind: datatable.KindDate, Sortable: true},
		},
		DefaultSort: &datatable.SortDescriptor{ID: "name"},
		DefaultActions: []datatable.RowAction{
			viewAction(model.ScreenTesters),
			copyAction("email", "Copy email"),
		},
		EmptyMessage: "No testers registered.",
	}
}

func usersTable() datatable.Config {
	return datatable.Config{
		Source:   clientQuery("users"),
		Resolver: datatable.Resolver{CollectionFields: []string{"users"}},
		Columns: []datatable.Column{
			{Key: "username", Width: 16, Sortable: true},
			{Key: "email", Width: 26, Sortable: true},
			{Key: "role", Kind: datatable.KindEnum, Sortable: true, Enum: &datatable.EnumOptions{
				Map: map[string]datatable.EnumOption{
					"admin":   {Label: "Admin", Tone: datatable.ToneDanger, Variant: "solid"},
					"manager": {Label: "Manager", Tone: datatable.ToneWarning},
					"tester":  {Label: "Tester", Tone: datatable.ToneInfo},
					"viewer":  {Label: "Viewer", Tone: datatable.ToneNeutral},
				},
			}},
			{
				Key:          "last_login_at",
				Header:       "Last Login",
				Kind:         datatable.KindDate,
				Sortable:     true,
				CellRenderer: func(v any, _ datatable.Row) string { return util.FormatDateHuman(v) },
			},
			{Key: "created_at", Header: "Created", Kind: datatable.KindDate, Sortable: true},
		},
		DefaultActions: []datatable.RowAction{
			viewAction(model.ScreenUsers),
			copyAction("email", "Copy email"),
		},
		EmptyMessage: "No users.",
	}
}
