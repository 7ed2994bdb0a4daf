package datatable

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorBase    = lipgloss.Color("#1D221E")
	colorSurface = lipgloss.Color("#2A332C")
	colorStripe  = lipgloss.Color("#232B24")
	colorMuted   = lipgloss.Color("#7E8C80")
	colorText    = lipgloss.Color("#D6E0D3")
	colorAccent  = lipgloss.Color("#8FA082")
	colorBlue    = lipgloss.Color("#89b4fa")
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorRed     = lipgloss.Color("#f38ba8")
	colorYellow  = lipgloss.Color("#f9e2af")
)

// Styles holds every style the table renders with.
type Styles struct {
	Header       lipgloss.Style
	ActiveHeader lipgloss.Style
	Row          lipgloss.Style
	StripedRow   lipgloss.Style
	CursorRow    lipgloss.Style
	SelectedRow  lipgloss.Style
	Divider      lipgloss.Style
	Empty        lipgloss.Style
	Loading      lipgloss.Style
	Error        lipgloss.Style
	Status       lipgloss.Style
	Toolbar      lipgloss.Style
	Menu         lipgloss.Style
	MenuItem     lipgloss.Style
	MenuCursor   lipgloss.Style
	MenuDisabled lipgloss.Style
	Trigger      lipgloss.Style
}

// DefaultStyles returns the default table styles.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Padding(0, 1).
			Background(colorSurface),
		ActiveHeader: lipgloss.NewStyle().
			Foreground(colorBase).
			Bold(true).
			Padding(0, 1).
			Background(colorAccent),
		Row: lipgloss.NewStyle().
			Foreground(colorText).
			Padding(0, 1),
		StripedRow: lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorStripe).
			Padding(0, 1),
		CursorRow: lipgloss.NewStyle().
			Foreground(colorBase).
			Background(colorAccent).
			Padding(0, 1),
		SelectedRow: lipgloss.NewStyle().
			Foreground(colorYellow).
			Padding(0, 1),
		Divider: lipgloss.NewStyle().
			Foreground(colorMuted),
		Empty: lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true).
			Padding(1, 4),
		Loading: lipgloss.NewStyle().
			Foreground(colorAccent).
			Padding(1, 4),
		Error: lipgloss.NewStyle().
			Foreground(colorRed).
			Padding(0, 1),
		Status: lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1),
		Toolbar: lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1),
		Menu: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1),
		MenuItem: lipgloss.NewStyle().
			Foreground(colorText),
		MenuCursor: lipgloss.NewStyle().
			Foreground(colorBase).
			Background(colorAccent),
		MenuDisabled: lipgloss.NewStyle().
			Foreground(colorMuted).
			Strikethrough(true),
		Trigger: lipgloss.NewStyle().
			Foreground(colorAccent),
	}
}

func toneColor(t Tone) lipgloss.Color {
	switch t {
	case ToneInfo:
		return colorBlue
	case ToneSuccess:
		return colorGreen
	case ToneWarning:
		return colorYellow
	case ToneDanger:
		return colorRed
	default:
		return colorMuted
	}
}

func toneStyle(t Tone, variant string) lipgloss.Style {
	if variant == "solid" {
		return lipgloss.NewStyle().
			Foreground(colorBase).
			Background(toneColor(t)).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().Foreground(toneColor(t))
}
