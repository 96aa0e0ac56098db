package commands

import (
	"context"
	"fmt"
	"os/user"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tierd/internal/httpapi"
)

// NewOSReleaseCommand returns the parent command of the OS release subcommands.
func NewOSReleaseCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("os-release", "Manage OS releases.")
}

type OSReleaseCreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	version    string
	releaseIDs []string
	createdBy  string
	storeLogs  bool
	format     string
}

// NewOSReleaseCreateCommand returns the os-release create command.
func NewOSReleaseCreateCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *OSReleaseCreateCommand {
	c := &OSReleaseCreateCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("create", "Move releases to stable, snapshot and publish it as an OS release.")
	c.Cmd.Arg("version", "OS release version (YYYY.MM.N).").Required().StringVar(&c.version)
	c.Cmd.Flag("release", "Package release ID to include, by default the ones approved since the latest OS release (repeatable).").StringsVar(&c.releaseIDs)
	c.Cmd.Flag("created-by", "Creator of the task.").Default(currentUser()).StringVar(&c.createdBy)
	c.Cmd.Flag("store-logs", "Store the task logs.").Default("true").BoolVar(&c.storeLogs)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c OSReleaseCreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c OSReleaseCreateCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	resp, err := cli.CreateOSRelease(ctx, httpapi.CreateOSReleaseRequest{
		Version:    c.version,
		ReleaseIDs: c.releaseIDs,
		CreatedBy:  c.createdBy,
		StoreLogs:  c.storeLogs,
	})
	if err != nil {
		return err
	}

	return c.rootCmd.Printer(c.format).PrintMessage(fmt.Sprintf("OS release %s enqueued as task %s with %d releases", c.version, resp.TaskID, len(resp.ReleaseIDs)))
}

type OSReleaseListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewOSReleaseListCommand returns the os-release list command.
func NewOSReleaseListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *OSReleaseListCommand {
	c := &OSReleaseListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List OS releases.")
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c OSReleaseListCommand) Name() string { return c.Cmd.FullCommand() }

func (c OSReleaseListCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	releases, err := cli.ListOSReleases(ctx)
	if err != nil {
		return err
	}

	return c.rootCmd.Printer(c.format).PrintOSReleases(releases)
}

type TestingUpdateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	createdBy  string
	autoDelete bool
	storeLogs  bool
}

// NewTestingUpdateCommand returns the testing-update command.
func NewTestingUpdateCommand(rootCmd *RootCommand, app *kingpin.Application) *TestingUpdateCommand {
	c := &TestingUpdateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("testing-update", "Refresh the published testing distribution.")
	c.Cmd.Flag("created-by", "Creator of the task.").Default(currentUser()).StringVar(&c.createdBy)
	c.Cmd.Flag("auto-delete", "Delete the task once completed.").Default("true").BoolVar(&c.autoDelete)
	c.Cmd.Flag("store-logs", "Store the task logs.").BoolVar(&c.storeLogs)

	return c
}

func (c TestingUpdateCommand) Name() string { return c.Cmd.FullCommand() }

func (c TestingUpdateCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	id, err := cli.UpdateTesting(ctx, httpapi.UpdateTestingRequest{
		CreatedBy:  c.createdBy,
		AutoDelete: c.autoDelete,
		StoreLogs:  c.storeLogs,
	})
	if err != nil {
		return err
	}

	return c.rootCmd.Printer(formatTable).PrintMessage(fmt.Sprintf("Testing update enqueued as task %s", id))
}

func currentUser() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "tierd"
	}
	return u.Username
}
