package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/tierd/internal/conventions"
	"github.com/slok/tierd/internal/httpapi"
	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/printer"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DataDir    string
	APIURL     string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Directory of the database, logs and aptly root.").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("api-url", "Admin API URL of the tierd server.").Default("http://127.0.0.1:8080").StringVar(&c.APIURL)

	return c
}

// APIClient returns a client of the tierd server admin API.
func (r RootCommand) APIClient() (*httpapi.Client, error) {
	cli, err := httpapi.NewClient(httpapi.ClientConfig{URL: r.APIURL, Logger: r.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create api client: %w", err)
	}
	return cli, nil
}

// Printer returns the printer of the output format.
func (r RootCommand) Printer(format string) printer.Printer {
	if format == formatJSON {
		return printer.NewJSONPrinter(r.Stdout)
	}
	return printer.NewTablePrinter(r.Stdout)
}

func formatFlag(cmd *kingpin.CmdClause, format *string) {
	cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(format, formatTable, formatJSON)
}
