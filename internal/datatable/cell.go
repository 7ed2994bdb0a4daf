package datatable

import "testdeck/internal/util"

// actionsTrigger marks a row that has actions.
const actionsTrigger = "⋯"

// cellText renders one cell by column kind.
func (m *Model) cellText(col Column, row Row) string {
	if col.Kind == KindActions {
		return m.renderTrigger(col, row)
	}
	value := col.Value(row)
	if col.CellRenderer != nil {
		return col.CellRenderer(value, row)
	}
	switch col.Kind {
	case KindDate:
		return util.FormatDate(value)
	case KindEnum:
		return renderEnum(col.Enum, value, row)
	}
	if value == nil {
		return util.Placeholder
	}
	return util.Stringify(value)
}

// renderEnum shows the mapped badge, or the raw value when unmapped.
func renderEnum(opts *EnumOptions, value any, row Row) string {
	if opts != nil && opts.Render != nil {
		return opts.Render(value, row)
	}
	if value == nil {
		return util.Placeholder
	}
	raw := util.Stringify(value)
	if opts == nil {
		return raw
	}
	opt, ok := opts.Map[raw]
	if !ok {
		return raw
	}
	label := opt.Label
	if label == "" {
		label = raw
	}
	return toneStyle(opt.Tone, opt.Variant).Render(label)
}

func (m *Model) renderTrigger(col Column, row Row) string {
	if len(VisibleActions(m.actionsFor(col), row)) == 0 {
		return ""
	}
	return m.styles.Trigger.Render(actionsTrigger)
}

func defaultWidth(kind ColumnKind) int {
	switch kind {
	case KindNumber:
		return 8
	case KindDate:
		return 14
	case KindEnum:
		return 12
	case KindActions:
		return 9
	default:
		return 16
	}
}
