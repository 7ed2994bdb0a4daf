package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"testdeck/internal/datatable"
	"testdeck/internal/logger"
	"testdeck/internal/query"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidStatus   = errors.New("invalid status")
)

// Resource names served by the store.
const (
	Projects  = "projects"
	TestCases = "test_cases"
	TestPlans = "test_plans"
	Testers   = "testers"
	Users     = "users"
)

// resource describes how one table is listed. The list endpoints are not
// uniformly shaped; envelope wraps rows the way each one responds.
type resource struct {
	table      string
	columns    []string
	sortable   map[string]string
	searchable []string
	order      string
	paged      bool
	statuses   []string
	softDelete bool
	envelope   func(rows []any, page map[string]any) any
}

var resources = map[string]resource{
	Projects: {
		table: "projects",
		columns: []string{
			"id", "key", "name", "owner", "status", "created_at",
			"(SELECT COUNT(*) FROM test_cases tc WHERE tc.project_id = projects.id AND tc.status != 'deleted') AS case_count",
		},
		sortable: map[string]string{
			"id": "id", "key": "key", "name": "name", "owner": "owner",
			"status": "status", "created_at": "created_at", "case_count": "case_count",
		},
		searchable: []string{"key", "name", "owner"},
		order:      "name",
		paged:      true,
		statuses:   []string{"active", "archived"},
		envelope: func(rows []any, page map[string]any) any {
			return map[string]any{"data": rows, "pagination": page}
		},
	},
	TestCases: {
		table: "test_cases",
		columns: []string{
			"id", "project_id", "code", "title", "kind", "priority", "status", "created_at", "updated_at",
			"(SELECT p.name FROM projects p WHERE p.id = test_cases.project_id) AS project",
		},
		sortable: map[string]string{
			"id":         "id",
			"code":       "code",
			"title":      "title",
			"kind":       "kind",
			"priority":   "CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END",
			"status":     "status",
			"created_at": "created_at",
			"updated_at": "COALESCE(updated_at, created_at)",
			"project":    "project",
		},
		searchable: []string{"code", "title", "kind"},
		order:      "code",
		paged:      true,
		statuses:   []string{"draft", "ready", "deprecated", "deleted"},
		softDelete: true,
		envelope: func(rows []any, page map[string]any) any {
			return map[string]any{"items": rows, "pagination": page}
		},
	},
	TestPlans: {
		table: "test_plans",
		columns: []string{
			"id", "project_id", "name", "status", "starts_on", "ends_on",
			"(SELECT p.key FROM projects p WHERE p.id = test_plans.project_id) AS project_key",
		},
		order:    "starts_on DESC",
		statuses: []string{"planned", "running", "done"},
		envelope: func(rows []any, _ map[string]any) any {
			return map[string]any{"results": rows}
		},
	},
	Testers: {
		table:   "testers",
		columns: []string{"id", "name", "email", "team", "active", "joined_on"},
		order:   "name",
		envelope: func(rows []any, _ map[string]any) any {
			return rows
		},
	},
	Users: {
		table:   "users",
		columns: []string{"id", "username", "email", "role", "last_login_at", "created_at"},
		order:   "username",
		envelope: func(rows []any, _ map[string]any) any {
			return map[string]any{"users": rows}
		},
	},
}

// Store serves list, detail and mutation requests from the local database.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Fetch implements query.Fetcher.
func (s *Store) Fetch(ctx context.Context, d query.Descriptor) (any, error) {
	return s.List(ctx, d.Resource, d.Params)
}

func lookup(name string) (resource, error) {
	res, ok := resources[name]
	if !ok {
		return resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, name)
	}
	return res, nil
}

// List returns the rows of a resource in that resource's response shape.
// Paged resources honor page, pageSize, sortBy, sortOrder and search.
func (s *Store) List(ctx context.Context, name string, values url.Values) (any, error) {
	res, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if !res.paged {
		q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(res.columns, ", "), res.table, res.order)
		rows, err := s.queryMaps(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", name, err)
		}
		return res.envelope(rows, nil), nil
	}

	p := datatable.ParamsFromValues(values)
	where, args := searchClause(res.searchable, p.Search)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", res.table, where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", name, err)
	}

	q := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT ? OFFSET ?",
		strings.Join(res.columns, ", "), res.table, where, orderClause(res, p))
	rows, err := s.queryMaps(ctx, q, append(args, p.PageSize, (p.Page-1)*p.PageSize)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}

	logger.Debug().
		Str("resource", name).
		Int("page", p.Page).
		Int("total", total).
		Msg("listed page")

	return res.envelope(rows, map[string]any{
		"total":    total,
		"page":     p.Page,
		"pageSize": p.PageSize,
	}), nil
}

func searchClause(columns []string, search string) (string, []any) {
	if search == "" || len(columns) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, c := range columns {
		conds = append(conds, c+" LIKE '%' || ? || '%'")
		args = append(args, search)
	}
	return " WHERE " + strings.Join(conds, " OR "), args
}

// orderClause maps the requested sort onto a whitelisted expression.
// Unknown sort keys fall back to the resource default.
func orderClause(res resource, p datatable.Params) string {
	expr, ok := res.sortable[p.SortBy]
	if !ok {
		return res.order + ", id"
	}
	dir := "ASC"
	if p.SortOrder == datatable.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", expr, dir, dir)
}

func (s *Store) queryMaps(ctx context.Context, q string, args ...any) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Get returns one record of a resource.
func (s *Store) Get(ctx context.Context, name string, id int64) (map[string]any, error) {
	res, err := lookup(name)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", res.table)
	rows, err := s.queryMaps(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", name, id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("failed to get %s %d: %w", name, id, ErrNotFound)
	}
	return rows[0].(map[string]any), nil
}

// Delete removes a record. Test cases are only marked deleted.
func (s *Store) Delete(ctx context.Context, name string, id int64) error {
	res, err := lookup(name)
	if err != nil {
		return err
	}
	if res.softDelete {
		return s.SetStatus(ctx, name, id, "deleted")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if name == Projects {
		for _, child := range []string{"test_cases", "test_plans"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE project_id = ?", child), id); err != nil {
				return fmt.Errorf("failed to delete %s of project %d: %w", child, id, err)
			}
		}
	}
	result, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", res.table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", name, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to delete %s %d: %w", name, id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	logger.Info().Str("resource", name).Int64("id", id).Msg("deleted")
	return nil
}

// SetStatus changes the status of a record that has one.
func (s *Store) SetStatus(ctx context.Context, name string, id int64, status string) error {
	res, err := lookup(name)
	if err != nil {
		return err
	}
	valid := false
	for _, st := range res.statuses {
		if st == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %q for %s", ErrInvalidStatus, status, name)
	}

	q := fmt.Sprintf("UPDATE %s SET status = ? WHERE id = ?", res.table)
	args := []any{status, id}
	if name == TestCases {
		q = "UPDATE test_cases SET status = ?, updated_at = ? WHERE id = ?"
		args = []any{status, time.Now().UTC().Format(time.RFC3339), id}
	}
	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", name, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update %s %d: %w", name, id, ErrNotFound)
	}
	logger.Info().Str("resource", name).Int64("id", id).Str("status", status).Msg("status changed")
	return nil
}
