package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"testdeck/internal/datatable"
)

// TablePrefs stores per-table UI preferences.
type TablePrefs struct {
	SortKey  string `json:"sort_key,omitempty"`
	SortDesc bool   `json:"sort_desc,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// UIPreferences stores persisted app preferences keyed by table name.
type UIPreferences struct {
	Tables map[string]TablePrefs `json:"tables"`
}

func defaultUIPreferences() UIPreferences {
	return UIPreferences{Tables: map[string]TablePrefs{}}
}

func prefsPath(configDir string) string {
	return filepath.Join(configDir, "ui_prefs.json")
}

func loadUIPreferences(path string) UIPreferences {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultUIPreferences()
	}

	var prefs UIPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return defaultUIPreferences()
	}
	if prefs.Tables == nil {
		prefs.Tables = map[string]TablePrefs{}
	}
	return prefs
}

func saveUIPreferences(path string, prefs UIPreferences) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return nil
}

// prefsFromState captures what survives a restart: sort and page size.
func prefsFromState(st datatable.State) TablePrefs {
	p := TablePrefs{PageSize: st.Pagination.PageSize}
	if len(st.Sorting) > 0 {
		p.SortKey = st.Sorting[0].ID
		p.SortDesc = st.Sorting[0].Desc
	}
	return p
}

// apply overrides cfg defaults with saved preferences. A saved sort on a
// column that no longer exists or is no longer sortable is ignored.
func (p TablePrefs) apply(cfg *datatable.Config) {
	if p.PageSize > 0 {
		cfg.PageSize = p.PageSize
	}
	if p.SortKey == "" {
		return
	}
	for _, c := range cfg.Columns {
		if c.Key == p.SortKey && c.Sortable {
			cfg.DefaultSort = &datatable.SortDescriptor{ID: p.SortKey, Desc: p.SortDesc}
			return
		}
	}
}
