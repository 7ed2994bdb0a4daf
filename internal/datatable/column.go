package datatable

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Row is one record as decoded from a backend response.
type Row map[string]any

// ColumnKind selects how a column's cells are rendered.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumber
	KindDate
	KindEnum
	KindActions
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindEnum:
		return "enum"
	case KindActions:
		return "actions"
	default:
		return "text"
	}
}

// Align is the horizontal alignment of a column's cells.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Tone is the semantic color of a badge or an action.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
)

// EnumOption is the presentation of one enum value.
type EnumOption struct {
	Label string
	Tone  Tone
	// Variant is "solid" for a filled badge; anything else renders as text in the tone's color.
	Variant string
}

// EnumOptions maps raw enum values to their presentation. Render, when set,
// replaces the map lookup entirely.
type EnumOptions struct {
	Map    map[string]EnumOption
	Render func(value any, row Row) string
}

// Column describes one column of a table.
type Column struct {
	Key    string
	Header string
	Kind   ColumnKind
	Align  Align
	Width  int

	Sortable bool
	// SortKey is the sort parameter sent to the backend. Defaults to Key.
	SortKey string

	Accessor     func(Row) any
	CellRenderer func(value any, row Row) string

	Enum *EnumOptions
	// Actions overrides the table's default actions for a KindActions column.
	Actions []RowAction
}

// ErrDuplicateColumn is returned when two columns share a key.
var ErrDuplicateColumn = errors.New("duplicate column key")

// ErrMultipleActionColumns is returned when more than one column has KindActions.
var ErrMultipleActionColumns = errors.New("more than one actions column")

// actionsColumnKey is the key of the automatically appended actions column.
const actionsColumnKey = "_actions"

// SortParam returns the sort identifier for this column.
func (c Column) SortParam() string {
	if c.SortKey != "" {
		return c.SortKey
	}
	return c.Key
}

// HeaderLabel returns the explicit header or one derived from the key.
func (c Column) HeaderLabel() string {
	if c.Header != "" {
		return c.Header
	}
	return headerFromKey(c.Key)
}

// Value returns the raw cell value for row.
func (c Column) Value(row Row) any {
	if c.Accessor != nil {
		return c.Accessor(row)
	}
	return row[c.Key]
}

// headerFromKey turns "createdAt", "test_case_id" or "plan-name" into title-cased words.
func headerFromKey(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r) && i > 0 && boundaryBefore(runes, i):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	if len(words) == 0 {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(strings.Join(words, " ")))
}

// boundaryBefore reports a word boundary before the upper-case rune at i:
// "fooBar" splits before B, "HTTPServer" splits before S.
func boundaryBefore(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

// normalizeColumns validates columns and appends a trailing actions column
// when default actions exist and none was declared.
func normalizeColumns(cols []Column, defaultActions []RowAction) ([]Column, error) {
	seen := make(map[string]bool, len(cols))
	hasActions := false
	out := make([]Column, 0, len(cols)+1)
	for _, c := range cols {
		if c.Key == "" {
			return nil, fmt.Errorf("column with header %q has no key", c.Header)
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Key)
		}
		seen[c.Key] = true
		if c.Kind == KindActions {
			if hasActions {
				return nil, fmt.Errorf("%w: %s", ErrMultipleActionColumns, c.Key)
			}
			hasActions = true
			c.Sortable = false
		}
		out = append(out, c)
	}
	if !hasActions && len(defaultActions) > 0 {
		if seen[actionsColumnKey] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, actionsColumnKey)
		}
		out = append(out, Column{
			Key:    actionsColumnKey,
			Header: "Actions",
			Kind:   KindActions,
			Align:  AlignCenter,
			Width:  9,
		})
	}
	return out, nil
}
