package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// NewTaskCommand returns the parent command of the task subcommands.
func NewTaskCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("task", "Inspect and control background tasks.")
}

type TaskListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	status   string
	taskType string
	format   string
}

// NewTaskListCommand returns the task list command.
func NewTaskListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskListCommand {
	c := &TaskListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List tasks.")
	c.Cmd.Flag("status", "Filter by status (pending, running, paused, completed, failed).").StringVar(&c.status)
	c.Cmd.Flag("type", "Filter by task type.").StringVar(&c.taskType)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c TaskListCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskListCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	tasks, err := cli.ListTasks(ctx, c.status, c.taskType)
	if err != nil {
		return err
	}

	return c.rootCmd.Printer(c.format).PrintTasks(tasks)
}

type TaskGetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	moves  bool
	format string
}

// NewTaskGetCommand returns the task get command.
func NewTaskGetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskGetCommand {
	c := &TaskGetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("get", "Show a task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("moves", "Show the repository mutations done by the task instead.").BoolVar(&c.moves)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c TaskGetCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskGetCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	p := c.rootCmd.Printer(c.format)
	if c.moves {
		moves, err := cli.TaskMoves(ctx, c.id)
		if err != nil {
			return err
		}
		return p.PrintMoves(moves)
	}

	t, err := cli.GetTask(ctx, c.id)
	if err != nil {
		return err
	}

	return p.PrintTask(*t)
}

type TaskLogsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id string
}

// NewTaskLogsCommand returns the task logs command.
func NewTaskLogsCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskLogsCommand {
	c := &TaskLogsCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("logs", "Print the stored logs of a task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)

	return c
}

func (c TaskLogsCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskLogsCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	logs, err := cli.TaskLogs(ctx, c.id)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(c.rootCmd.Stdout, logs)
	return err
}

type TaskPauseCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	resume bool
}

// NewTaskPauseCommand returns the task pause command.
func NewTaskPauseCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskPauseCommand {
	c := &TaskPauseCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("pause", "Request the pause of a running task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)

	return c
}

// NewTaskResumeCommand returns the task resume command.
func NewTaskResumeCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskPauseCommand {
	c := &TaskPauseCommand{rootCmd: rootCmd, resume: true}

	c.Cmd = parent.Command("resume", "Resume a paused task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)

	return c
}

func (c TaskPauseCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskPauseCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	if c.resume {
		if err := cli.ResumeTask(ctx, c.id); err != nil {
			return err
		}
		return c.rootCmd.Printer(formatTable).PrintMessage(fmt.Sprintf("Task %s scheduled", c.id))
	}

	if err := cli.PauseTask(ctx, c.id); err != nil {
		return err
	}
	return c.rootCmd.Printer(formatTable).PrintMessage(fmt.Sprintf("Pause of task %s requested", c.id))
}
