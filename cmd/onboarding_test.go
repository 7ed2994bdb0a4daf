package cmd

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, m onboardingModel, keys ...tea.KeyMsg) (onboardingModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		var ok bool
		m, ok = next.(onboardingModel)
		require.True(t, ok)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestOnboardingLocal(t *testing.T) {
	m, cmd := press(t, newOnboardingModel(), enter)
	assert.Equal(t, stepDone, m.step)
	assert.Equal(t, OnboardingSettings{Completed: true, Backend: BackendLocal}, m.settings)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestOnboardingAPI(t *testing.T) {
	m, _ := press(t, newOnboardingModel(), runes("j"), enter)
	require.Equal(t, stepURL, m.step)

	m, _ = press(t, m, runes("not a url"), enter)
	assert.Equal(t, stepURL, m.step)
	assert.NotEmpty(t, m.invalid)
	assert.Contains(t, m.View(), "http://")

	m.urlInput.SetValue("")
	m, _ = press(t, m, runes("https://qa.example.com/"), enter)
	assert.Equal(t, stepDone, m.step)
	assert.Equal(t, OnboardingSettings{Completed: true, Backend: BackendAPI, APIURL: "https://qa.example.com"}, m.settings)
}

func TestOnboardingBackFromURL(t *testing.T) {
	m, _ := press(t, newOnboardingModel(), runes("j"), enter, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stepBackend, m.step)
	assert.True(t, m.remote)
}

func TestOnboardingSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	settings, err := loadOnboardingSettings(dir)
	require.NoError(t, err)
	assert.False(t, settings.Completed)

	want := OnboardingSettings{Completed: true, Backend: BackendAPI, APIURL: "http://localhost:8080"}
	require.NoError(t, saveOnboardingSettings(dir, want))
	got, err := loadOnboardingSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, shouldRunOnboarding(got))
}

func TestApplyOnboarding(t *testing.T) {
	api := OnboardingSettings{Completed: true, Backend: BackendAPI, APIURL: "http://localhost:8080/"}

	config := &Config{}
	applyOnboarding(config, api)
	assert.Equal(t, "http://localhost:8080", config.APIURL)

	config = &Config{APIURL: "https://flag.example.com"}
	applyOnboarding(config, api)
	assert.Equal(t, "https://flag.example.com", config.APIURL)

	config = &Config{}
	applyOnboarding(config, OnboardingSettings{Completed: true, Backend: BackendLocal})
	assert.False(t, config.Remote())

	config = &Config{}
	applyOnboarding(config, OnboardingSettings{Backend: BackendAPI, APIURL: "garbage"})
	assert.False(t, config.Remote())
}
