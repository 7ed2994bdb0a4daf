package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testdeck/internal/datatable"
	"testdeck/internal/query"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, Options{Token: "secret", RequestsPerSecond: 1000})
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient("ftp://example.com", Options{})
	assert.Error(t, err)
	_, err = NewClient("://nope", Options{})
	assert.Error(t, err)
	_, err = NewClient("https://example.com/", Options{})
	assert.NoError(t, err)
}

func TestListSendsParamsAndDecodesAnyShape(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items":[{"id":1,"code":"TC-1"}],"pagination":{"total":31,"page":2,"pageSize":10}}`)
	})

	params := datatable.Params{Page: 2, PageSize: 10, SortBy: "code", SortOrder: datatable.SortDesc}
	resp, err := c.Fetch(context.Background(), query.Descriptor{Resource: "test_cases", Params: params.Values()})
	require.NoError(t, err)

	assert.Equal(t, "/api/test_cases", gotPath)
	values, err := url.ParseQuery(gotQuery)
	require.NoError(t, err)
	assert.Equal(t, params, datatable.ParamsFromValues(values))
	assert.Equal(t, "Bearer secret", gotAuth)

	var r datatable.Resolver
	rows := r.ResolveRows(resp)
	require.Len(t, rows, 1)
	assert.Equal(t, json.Number("1"), rows[0]["id"])
	assert.Equal(t, 31, r.ResolvePagination(resp).Total)
}

func TestListBareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1},{"id":2}]`)
	})
	resp, err := c.List(context.Background(), "testers", nil)
	require.NoError(t, err)
	assert.Len(t, datatable.Resolver{}.ResolveRows(resp), 2)
}

func TestStatusErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"message":"maintenance window"}`)
	})
	_, err := c.List(context.Background(), "projects", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "maintenance window")
	assert.Contains(t, err.Error(), "list projects")
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": [`)
	})
	_, err := c.List(context.Background(), "projects", nil)
	assert.ErrorContains(t, err, "JSON decode error")
}

func TestGetDeleteAndSetStatus(t *testing.T) {
	var calls []string
	var patched map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `{"id":7,"name":"Checkout"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPatch:
			json.NewDecoder(r.Body).Decode(&patched)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	rec, err := c.Get(ctx, "projects", 7)
	require.NoError(t, err)
	assert.Equal(t, "Checkout", rec["name"])

	require.NoError(t, c.Delete(ctx, "test_cases", 3))
	require.NoError(t, c.SetStatus(ctx, "projects", 7, "archived"))

	assert.Equal(t, []string{"GET /api/projects/7", "DELETE /api/test_cases/3", "PATCH /api/projects/7"}, calls)
	assert.Equal(t, map[string]string{"status": "archived"}, patched)
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.List(ctx, "users", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
