package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Backend choices offered during onboarding.
const (
	BackendLocal = "local"
	BackendAPI   = "api"
)

type OnboardingSettings struct {
	Completed bool   `json:"completed"`
	Backend   string `json:"backend"`
	APIURL    string `json:"api_url,omitempty"`
}

func onboardingPath(configDir string) string {
	return filepath.Join(configDir, "onboarding.json")
}

func loadOnboardingSettings(configDir string) (OnboardingSettings, error) {
	data, err := os.ReadFile(onboardingPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return OnboardingSettings{}, nil
		}
		return OnboardingSettings{}, err
	}

	var settings OnboardingSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return OnboardingSettings{}, err
	}
	return settings, nil
}

func saveOnboardingSettings(configDir string, settings OnboardingSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(onboardingPath(configDir), data, 0644)
}

// applyOnboarding points a config without an explicit backend at the one
// picked during onboarding.
func applyOnboarding(config *Config, settings OnboardingSettings) {
	if config.Remote() || settings.Backend != BackendAPI {
		return
	}
	if validateAPIURL(settings.APIURL) != nil {
		return
	}
	config.APIURL = strings.TrimRight(settings.APIURL, "/")
}

func shouldRunOnboarding(settings OnboardingSettings) bool {
	if settings.Completed {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

type onboardingStep int

const (
	stepBackend onboardingStep = iota
	stepURL
	stepDone
)

type onboardingModel struct {
	step     onboardingStep
	remote   bool
	urlInput textinput.Model
	settings OnboardingSettings
	status   string
	invalid  string
	width    int
	height   int
}

var (
	obColorMuted  = lipgloss.Color("#7E8C80")
	obColorText   = lipgloss.Color("#D6E0D3")
	obColorAccent = lipgloss.Color("#8FA082")
	obColorDanger = lipgloss.Color("#f38ba8")

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabInactive = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 2)

	obTabActive = lipgloss.NewStyle().
			Foreground(obColorText).
			Bold(true).
			Underline(true).
			Padding(0, 2)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorAccent).
			Padding(0, 1)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle  = lipgloss.NewStyle().Foreground(obColorMuted)
	obOptionStyle = lipgloss.NewStyle().Foreground(obColorText)
	obWarnStyle   = lipgloss.NewStyle().Foreground(obColorDanger)

	obOptionSelected = lipgloss.NewStyle().
				Foreground(obColorAccent).
				Bold(true)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

func newOnboardingModel() onboardingModel {
	in := textinput.New()
	in.Placeholder = "https://qa.example.com"
	in.CharLimit = 300
	in.Prompt = "url> "
	in.TextStyle = lipgloss.NewStyle().Foreground(obColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(obColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(obColorText).Background(obColorAccent)
	in.Focus()

	return onboardingModel{
		step:     stepBackend,
		urlInput: in,
		settings: OnboardingSettings{Completed: true, Backend: BackendLocal},
	}
}

func (m onboardingModel) Init() tea.Cmd { return nil }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch m.step {
		case stepBackend:
			switch msg.String() {
			case "up", "k", "left", "h":
				m.remote = false
			case "down", "j", "right", "l":
				m.remote = true
			case "enter":
				return m.nextStep()
			case "ctrl+c", "q":
				return m.finish(BackendLocal, "", "Setup canceled. Using the local database.")
			}
			return m, nil
		case stepURL:
			switch msg.String() {
			case "enter":
				raw := strings.TrimSpace(m.urlInput.Value())
				if err := validateAPIURL(raw); err != nil {
					m.invalid = "Enter an http:// or https:// URL."
					return m, nil
				}
				return m.finish(BackendAPI, strings.TrimRight(raw, "/"), "API backend saved.")
			case "esc":
				m.step = stepBackend
				m.invalid = ""
				return m, nil
			case "ctrl+c":
				return m.finish(BackendLocal, "", "Setup canceled. Using the local database.")
			}
			m.invalid = ""
			var cmd tea.Cmd
			m.urlInput, cmd = m.urlInput.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m onboardingModel) nextStep() (tea.Model, tea.Cmd) {
	if !m.remote {
		return m.finish(BackendLocal, "", "Using the local database with demo data.")
	}
	m.step = stepURL
	return m, textinput.Blink
}

func (m onboardingModel) finish(backend, apiURL, status string) (tea.Model, tea.Cmd) {
	m.settings = OnboardingSettings{Completed: true, Backend: backend, APIURL: apiURL}
	m.status = status
	m.step = stepDone
	return m, tea.Quit
}

func (m onboardingModel) View() string {
	width, height := m.width, m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	contentHeight := max(8, height-6)
	ui := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(width),
		m.renderTabs(width),
		m.renderContent(width, contentHeight),
		m.renderFooter(width),
	)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(ui)
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("testdeck") + " " + obMutedStyle.Render("› Setup")
	right := obMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return obHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m onboardingModel) renderTabs(width int) string {
	tab := func(label string, active bool) string {
		if active {
			return obTabActive.Render(label)
		}
		return obTabInactive.Render(label)
	}
	return obTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left,
		"  ",
		tab("Backend", m.step == stepBackend),
		tab("API URL", m.step == stepURL),
	))
}

func (m onboardingModel) renderFooter(width int) string {
	switch m.step {
	case stepBackend:
		return obFooterStyle.Width(width).Render("↑↓/jk to choose  enter to confirm  q cancel")
	case stepURL:
		return obFooterStyle.Width(width).Render("enter save  esc back  ctrl+c cancel")
	default:
		return obFooterStyle.Width(width).Render("Setup complete")
	}
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepBackend:
		option := func(label string, selected bool) string {
			if selected {
				return "  " + obOptionSelected.Render("→ "+label)
			}
			return "    " + obOptionStyle.Render(label)
		}
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			obLabelStyle.Render("Where should testdeck read test data from?"),
			"",
			option("Local database (seeded with demo projects)", !m.remote),
			option("Remote testdeck API", m.remote),
			"",
			obMutedStyle.Render("You can change this later in ~/.testdeck/onboarding.json"),
			obMutedStyle.Render("or with -api / TESTDECK_API_URL."),
		)
	case stepURL:
		lines := []string{
			obLabelStyle.Render("API base URL"),
			"",
			obMutedStyle.Render("List endpoints are read from <url>/api/<resource>."),
			"",
			obInputStyle.Width(max(30, cardWidth-14)).Render(m.urlInput.View()),
		}
		if m.invalid != "" {
			lines = append(lines, "", obWarnStyle.Render(m.invalid))
		}
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			obLabelStyle.Render("Onboarding Complete"), "", obMutedStyle.Render(m.status))
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

func runOnboarding(configDir string) (OnboardingSettings, error) {
	prog := tea.NewProgram(newOnboardingModel(), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return OnboardingSettings{}, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return OnboardingSettings{}, fmt.Errorf("unexpected onboarding model type")
	}
	if err := saveOnboardingSettings(configDir, m.settings); err != nil {
		return OnboardingSettings{}, err
	}
	return m.settings, nil
}
