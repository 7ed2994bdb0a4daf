package datatable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderLabel(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"code", "Code"},
		{"createdAt", "Created At"},
		{"test_case_id", "Test Case Id"},
		{"plan-name", "Plan Name"},
		{"last login", "Last Login"},
		{"HTTPStatus", "Http Status"},
		{"step2Result", "Step2 Result"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Column{Key: tt.key}.HeaderLabel())
		})
	}
	assert.Equal(t, "ID", Column{Key: "id", Header: "ID"}.HeaderLabel())
}

func TestColumnValueAndSortParam(t *testing.T) {
	row := Row{"name": "Alpha", "owner": map[string]any{"name": "Dana"}}
	plain := Column{Key: "name"}
	assert.Equal(t, "Alpha", plain.Value(row))
	assert.Equal(t, "name", plain.SortParam())

	owner := Column{
		Key:      "owner",
		SortKey:  "owner_name",
		Accessor: func(r Row) any { return r["owner"].(map[string]any)["name"] },
	}
	assert.Equal(t, "Dana", owner.Value(row))
	assert.Equal(t, "owner_name", owner.SortParam())
}

func TestNormalizeColumnsRejectsDuplicates(t *testing.T) {
	_, err := normalizeColumns([]Column{{Key: "code"}, {Key: "code"}}, nil)
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = normalizeColumns([]Column{{Header: "nameless"}}, nil)
	assert.Error(t, err)
}

func TestNormalizeColumnsActionsColumn(t *testing.T) {
	view := RowAction{Name: "view"}

	t.Run("appended when default actions exist", func(t *testing.T) {
		cols, err := normalizeColumns([]Column{{Key: "code"}}, []RowAction{view})
		require.NoError(t, err)
		require.Len(t, cols, 2)
		assert.Equal(t, KindActions, cols[1].Kind)
		assert.Equal(t, actionsColumnKey, cols[1].Key)
	})

	t.Run("suppressed by explicit actions column", func(t *testing.T) {
		cols, err := normalizeColumns([]Column{
			{Key: "code"},
			{Key: "ops", Kind: KindActions, Actions: []RowAction{view}, Sortable: true},
		}, []RowAction{view})
		require.NoError(t, err)
		require.Len(t, cols, 2)
		assert.Equal(t, "ops", cols[1].Key)
		assert.False(t, cols[1].Sortable)
	})

	t.Run("only one actions column", func(t *testing.T) {
		_, err := normalizeColumns([]Column{
			{Key: "ops", Kind: KindActions},
			{Key: "more", Kind: KindActions},
		}, nil)
		assert.ErrorIs(t, err, ErrMultipleActionColumns)
	})

	t.Run("absent without default actions", func(t *testing.T) {
		cols, err := normalizeColumns([]Column{{Key: "code"}}, nil)
		require.NoError(t, err)
		assert.Len(t, cols, 1)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "enum", KindEnum.String())
	assert.Equal(t, "actions", KindActions.String())
}
