package main

import (
	"context"
	"fmt"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"testdeck/cmd"
	"testdeck/internal/api"
	"testdeck/internal/db"
	"testdeck/internal/logger"
	"testdeck/internal/ui"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	// Parse CLI flags
	config, err := cmd.ParseFlags(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(logger.Config{
		LogLevel: config.LogLevel,
		LogFile:  config.LogFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	logger.Info().Str("version", version).Bool("remote", config.Remote()).Msg("starting")

	var (
		backend ui.Backend
		label   string
	)
	if config.Remote() {
		client, err := api.NewClient(config.APIURL, api.Options{Token: config.APIToken})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		backend = client
		label = config.APIURL
		if u, err := url.Parse(config.APIURL); err == nil {
			label = u.Host
		}
	} else {
		database, err := db.Open(config.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer database.Close()

		if config.Seed {
			if err := db.Seed(context.Background(), database); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to seed database: %v\n", err)
				os.Exit(1)
			}
		}
		backend = db.NewStore(database)
		label = "local"
	}

	app, err := ui.New(backend, ui.Options{
		ConfigDir:    config.ConfigDir,
		PageSize:     config.PageSize,
		BackendLabel: label,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create and run Bubble Tea app
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error().Err(err).Msg("app exited with error")
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
		os.Exit(1)
	}
}
