package datatable

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultPageSize is used when neither the caller nor the request gives one.
const DefaultPageSize = 10

// Params is the table state as sent to a server-mode backend.
type Params struct {
	Page      int // 1-based
	PageSize  int
	SortBy    string
	SortOrder SortOrder
	Search    string
}

// Values serializes p as query parameters. Empty sort and search are omitted.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("pageSize", strconv.Itoa(p.PageSize))
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
		order := p.SortOrder
		if order == "" {
			order = SortAsc
		}
		v.Set("sortOrder", string(order))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}

// ParamsFromValues parses query parameters, replacing invalid values with defaults.
func ParamsFromValues(v url.Values) Params {
	p := Params{Page: 1, PageSize: DefaultPageSize, SortOrder: SortAsc}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n >= 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(v.Get("pageSize")); err == nil && n > 0 {
		p.PageSize = n
	}
	p.SortBy = strings.TrimSpace(v.Get("sortBy"))
	if strings.EqualFold(v.Get("sortOrder"), string(SortDesc)) {
		p.SortOrder = SortDesc
	}
	p.Search = strings.TrimSpace(v.Get("search"))
	return p
}

// SortDescriptor names the sorted column.
type SortDescriptor struct {
	ID   string
	Desc bool
}

// PaginationState is the zero-based page position.
type PaginationState struct {
	PageIndex int
	PageSize  int
}

// SortToggle selects how repeated sort toggles cycle.
type SortToggle int

const (
	// ThreeState cycles asc, desc, unsorted.
	ThreeState SortToggle = iota
	// TwoState cycles asc, desc.
	TwoState
)

// State is the interactive state of one table.
type State struct {
	Sorting      []SortDescriptor
	GlobalFilter string
	Pagination   PaginationState
	Selection    map[string]bool
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	DefaultSort *SortDescriptor
	PageSize    int
	Toggle      SortToggle

	// OnSelectionChange receives the selected rows after every selection change.
	OnSelectionChange func(rows []Row)
	// Rows returns the rows currently known to the table, used to materialize selections.
	Rows  func() []Row
	RowID func(Row) string
}

// Controller owns the table state and enforces its reset rules.
type Controller struct {
	state  State
	toggle SortToggle

	onSelection func([]Row)
	rows        func() []Row
	rowID       func(Row) string

	// picked holds the last seen copy of every selected row, so rows from
	// pages that are no longer loaded stay materialized. order is the
	// selection order of its ids.
	picked map[string]Row
	order  []string
}

// NewController creates a controller with its initial state.
func NewController(cfg ControllerConfig) *Controller {
	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	c := &Controller{
		state: State{
			Pagination: PaginationState{PageSize: size},
			Selection:  map[string]bool{},
		},
		toggle:      cfg.Toggle,
		onSelection: cfg.OnSelectionChange,
		rows:        cfg.Rows,
		rowID:       cfg.RowID,
		picked:      map[string]Row{},
	}
	if cfg.DefaultSort != nil && cfg.DefaultSort.ID != "" {
		c.state.Sorting = []SortDescriptor{*cfg.DefaultSort}
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	st := c.state
	st.Sorting = append([]SortDescriptor(nil), c.state.Sorting...)
	st.Selection = make(map[string]bool, len(c.state.Selection))
	for k, v := range c.state.Selection {
		st.Selection[k] = v
	}
	return st
}

// Sort returns the active sort, if any.
func (c *Controller) Sort() (SortDescriptor, bool) {
	if len(c.state.Sorting) == 0 {
		return SortDescriptor{}, false
	}
	return c.state.Sorting[0], true
}

// SetSorting replaces the sort. Only the first descriptor is kept. The page
// returns to the first one when the sort actually changes.
func (c *Controller) SetSorting(next []SortDescriptor) bool {
	if len(next) > 1 {
		next = next[:1]
	}
	if sameSorting(c.state.Sorting, next) {
		return false
	}
	c.state.Sorting = append([]SortDescriptor(nil), next...)
	c.state.Pagination.PageIndex = 0
	return true
}

// ToggleSort advances the sort of column id through its cycle.
func (c *Controller) ToggleSort(id string) bool {
	cur, ok := c.Sort()
	switch {
	case !ok || cur.ID != id:
		return c.SetSorting([]SortDescriptor{{ID: id}})
	case !cur.Desc:
		return c.SetSorting([]SortDescriptor{{ID: id, Desc: true}})
	case c.toggle == ThreeState:
		return c.SetSorting(nil)
	default:
		return c.SetSorting([]SortDescriptor{{ID: id}})
	}
}

// SetGlobalFilter replaces the search text, resetting the page when it changes.
func (c *Controller) SetGlobalFilter(text string) bool {
	if text == c.state.GlobalFilter {
		return false
	}
	c.state.GlobalFilter = text
	c.state.Pagination.PageIndex = 0
	return true
}

// SetPagination replaces the page position. A new page size returns to the first page.
func (c *Controller) SetPagination(next PaginationState) bool {
	if next.PageSize <= 0 {
		next.PageSize = c.state.Pagination.PageSize
	}
	if next.PageIndex < 0 {
		next.PageIndex = 0
	}
	if next.PageSize != c.state.Pagination.PageSize {
		next.PageIndex = 0
	}
	if next == c.state.Pagination {
		return false
	}
	c.state.Pagination = next
	return true
}

// SetPageIndex moves to page index i.
func (c *Controller) SetPageIndex(i int) bool {
	return c.SetPagination(PaginationState{PageIndex: i, PageSize: c.state.Pagination.PageSize})
}

// SetPageSize changes the page size.
func (c *Controller) SetPageSize(size int) bool {
	return c.SetPagination(PaginationState{PageIndex: c.state.Pagination.PageIndex, PageSize: size})
}

// ClampPage pulls the page index back inside [0, pageCount).
func (c *Controller) ClampPage(pageCount int) bool {
	last := pageCount - 1
	if last < 0 {
		last = 0
	}
	if c.state.Pagination.PageIndex <= last {
		return false
	}
	c.state.Pagination.PageIndex = last
	return true
}

// SetRowSelection replaces the selection and notifies the observer when it changed.
func (c *Controller) SetRowSelection(next map[string]bool) bool {
	clean := make(map[string]bool, len(next))
	for id, on := range next {
		if on {
			clean[id] = true
		}
	}
	if sameSelection(c.state.Selection, clean) {
		return false
	}
	c.state.Selection = clean
	c.snapshotSelection()
	if c.onSelection != nil {
		c.onSelection(c.SelectedRows())
	}
	return true
}

// ToggleRowSelected flips the selection of one row.
func (c *Controller) ToggleRowSelected(id string) bool {
	next := make(map[string]bool, len(c.state.Selection)+1)
	for k, v := range c.state.Selection {
		next[k] = v
	}
	next[id] = !next[id]
	return c.SetRowSelection(next)
}

// IsSelected reports whether row id is selected.
func (c *Controller) IsSelected(id string) bool { return c.state.Selection[id] }

// snapshotSelection refreshes the copies of selected rows that are loaded and
// forgets rows that are no longer selected.
func (c *Controller) snapshotSelection() {
	kept := c.order[:0]
	for _, id := range c.order {
		if c.state.Selection[id] {
			kept = append(kept, id)
		} else {
			delete(c.picked, id)
		}
	}
	c.order = kept
	if c.rows == nil || c.rowID == nil {
		return
	}

	var added []string
	for _, r := range c.rows() {
		id := c.rowID(r)
		if !c.state.Selection[id] {
			continue
		}
		if _, ok := c.picked[id]; !ok {
			added = append(added, id)
		}
		c.picked[id] = r
	}
	sort.Strings(added)
	c.order = append(c.order, added...)
}

// SelectedRows returns the selected rows: loaded ones in row order, then rows
// picked on other pages in selection order. Ids never seen in a loaded
// result cannot be materialized and are left out.
func (c *Controller) SelectedRows() []Row {
	if c.rowID == nil || len(c.state.Selection) == 0 {
		return nil
	}
	var out []Row
	loaded := map[string]bool{}
	if c.rows != nil {
		for _, r := range c.rows() {
			id := c.rowID(r)
			if c.state.Selection[id] && !loaded[id] {
				loaded[id] = true
				out = append(out, r)
			}
		}
	}
	for _, id := range c.order {
		if !loaded[id] {
			out = append(out, c.picked[id])
		}
	}
	return out
}

// Params serializes the state for a server-mode backend.
func (c *Controller) Params(cols []Column) Params {
	p := Params{
		Page:     c.state.Pagination.PageIndex + 1,
		PageSize: c.state.Pagination.PageSize,
		Search:   c.state.GlobalFilter,
	}
	if s, ok := c.Sort(); ok {
		p.SortBy = s.ID
		for _, col := range cols {
			if col.Key == s.ID {
				p.SortBy = col.SortParam()
				break
			}
		}
		p.SortOrder = SortAsc
		if s.Desc {
			p.SortOrder = SortDesc
		}
	}
	return p
}

func sameSorting(a, b []SortDescriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameSelection(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
