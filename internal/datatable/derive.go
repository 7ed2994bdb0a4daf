package datatable

import (
	"sort"
	"strings"

	"testdeck/internal/util"
)

// filterRows keeps rows where any searchable column contains text, ignoring case.
func filterRows(rows []Row, cols []Column, text string) []Row {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		for _, c := range cols {
			if c.Kind == KindActions {
				continue
			}
			if strings.Contains(strings.ToLower(util.Stringify(c.Value(r))), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// sortRows returns a stably sorted copy of rows.
func sortRows(rows []Row, col Column, desc bool) []Row {
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		cmp := compareValues(col.Value(out[i]), col.Value(out[j]))
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}

type valueClass int

const (
	classNil valueClass = iota
	classNumber
	classDate
	classText
)

// classify buckets a cell value so mixed-type columns still sort in a
// total order.
func classify(v any) valueClass {
	if v == nil {
		return classNil
	}
	if _, ok := util.ToFloat(v); ok {
		return classNumber
	}
	if _, ok := util.ParseDate(v); ok {
		return classDate
	}
	return classText
}

// compareValues orders missing values first, then numbers numerically, then
// dates chronologically, then everything else as case-folded text.
func compareValues(a, b any) int {
	ca, cb := classify(a), classify(b)
	if ca != cb {
		return compareOrdered(float64(ca), float64(cb))
	}
	switch ca {
	case classNumber:
		fa, _ := util.ToFloat(a)
		fb, _ := util.ToFloat(b)
		return compareOrdered(fa, fb)
	case classDate:
		ta, _ := util.ParseDate(a)
		tb, _ := util.ParseDate(b)
		return ta.Compare(tb)
	case classText:
		return strings.Compare(strings.ToLower(util.Stringify(a)), strings.ToLower(util.Stringify(b)))
	}
	return 0
}

func compareOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// pageRows returns the slice of rows on page index i.
func pageRows(rows []Row, i, size int) []Row {
	if size <= 0 {
		return rows
	}
	start := i * size
	if start >= len(rows) || start < 0 {
		return []Row{}
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// pageCount is ceil(total/size), never less than one.
func pageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}
