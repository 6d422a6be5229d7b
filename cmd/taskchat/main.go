// Command taskchat runs the terminal client: sign in through the auth
// bridge, then chat with the task assistant.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"taskchat/internal/session"
	"taskchat/internal/ui"
)

// Set by goreleaser ldflags.
var version = "dev"

// CLI holds the flags for the terminal client. Everything defaults to the
// local development layout.
type CLI struct {
	AuthURL string           `name:"auth-url" env:"TASKCHAT_AUTH_URL" default:"http://localhost:3001" help:"Base URL of the auth bridge."`
	APIURL  string           `name:"api-url" env:"TASKCHAT_API_URL" default:"http://localhost:8000" help:"Base URL of the task assistant backend."`
	LogFile string           `name:"log-file" env:"TASKCHAT_LOG_FILE" default:"taskchat-tui.log" help:"File to write client logs to."`
	Version kong.VersionFlag `help:"Print version and exit."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("taskchat"),
		kong.Description("Terminal client for the taskchat to-do assistant."),
		kong.Vars{"version": version},
	)

	if err := run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	// Logs go to a file so they never bleed into the TUI rendering.
	logger, closeLog, err := newFileLogger(cli.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("starting client", "version", version, "auth_url", cli.AuthURL, "api_url", cli.APIURL)

	sessionClient, err := session.NewClient(cli.AuthURL)
	if err != nil {
		return fmt.Errorf("create session client: %w", err)
	}

	model := ui.NewModel(context.Background(), sessionClient, cli.APIURL, logger)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// newFileLogger creates a [log.Logger] writing to path, creating the file
// when missing. The returned func closes it.
func newFileLogger(path string) (*log.Logger, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	logger := log.NewWithOptions(f, log.Options{ReportTimestamp: true})
	return logger, func() { _ = f.Close() }, nil
}
