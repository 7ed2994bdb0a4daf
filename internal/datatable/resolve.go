package datatable

import "testdeck/internal/util"

// PaginationInfo is the page metadata of a server-mode response.
type PaginationInfo struct {
	Total    int
	Page     int
	PageSize int
}

// conventionalFields are probed, in order, for the row collection of an object response.
var conventionalFields = []string{"data", "items", "results"}

// Resolver extracts rows and pagination from a response of unknown shape.
type Resolver struct {
	Rows       func(resp any) []Row
	Pagination func(resp any) *PaginationInfo
	// CollectionFields are extra object fields to probe after the conventional ones.
	CollectionFields []string
}

// ResolveRows returns the rows of resp, or an empty slice when none can be found.
func (r Resolver) ResolveRows(resp any) []Row {
	if r.Rows != nil {
		if rows := r.Rows(resp); rows != nil {
			return rows
		}
		return []Row{}
	}
	if rows, ok := asRows(resp); ok {
		return rows
	}
	obj, ok := asObject(resp)
	if !ok {
		return []Row{}
	}
	for _, field := range conventionalFields {
		if rows, ok := asRows(obj[field]); ok {
			return rows
		}
	}
	for _, field := range r.CollectionFields {
		if rows, ok := asRows(obj[field]); ok {
			return rows
		}
	}
	return []Row{}
}

// ResolvePagination returns page metadata, or nil when resp carries none.
func (r Resolver) ResolvePagination(resp any) *PaginationInfo {
	if r.Pagination != nil {
		return r.Pagination(resp)
	}
	obj, ok := asObject(resp)
	if !ok {
		return nil
	}
	raw, ok := asObject(obj["pagination"])
	if !ok {
		return nil
	}
	total, ok := util.ToInt(raw["total"])
	if !ok {
		return nil
	}
	info := &PaginationInfo{Total: total}
	info.Page, _ = util.ToInt(raw["page"])
	info.PageSize, _ = util.ToInt(raw["pageSize"])
	return info
}

// asRows converts an array value into rows, skipping elements that are not objects.
func asRows(v any) ([]Row, bool) {
	switch arr := v.(type) {
	case []Row:
		return arr, true
	case []map[string]any:
		rows := make([]Row, 0, len(arr))
		for _, m := range arr {
			rows = append(rows, Row(m))
		}
		return rows, true
	case []any:
		rows := make([]Row, 0, len(arr))
		for _, el := range arr {
			if m, ok := asObject(el); ok {
				rows = append(rows, m)
			}
		}
		return rows, true
	}
	return nil, false
}

func asObject(v any) (Row, bool) {
	switch m := v.(type) {
	case Row:
		return m, m != nil
	case map[string]any:
		return Row(m), m != nil
	}
	return nil, false
}
