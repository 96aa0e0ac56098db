package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/tierd/cmd/tierd/commands"
	"github.com/slok/tierd/internal/log"
	loglogrus "github.com/slok/tierd/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("tierd", "Tiered package repository administration.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	serveCmd := commands.NewServeCommand(rootCmd, app)
	testingUpdateCmd := commands.NewTestingUpdateCommand(rootCmd, app)

	taskCmd := commands.NewTaskCommand(app)
	taskListCmd := commands.NewTaskListCommand(rootCmd, taskCmd)
	taskGetCmd := commands.NewTaskGetCommand(rootCmd, taskCmd)
	taskLogsCmd := commands.NewTaskLogsCommand(rootCmd, taskCmd)
	taskPauseCmd := commands.NewTaskPauseCommand(rootCmd, taskCmd)
	taskResumeCmd := commands.NewTaskResumeCommand(rootCmd, taskCmd)

	osReleaseCmd := commands.NewOSReleaseCommand(app)
	osReleaseCreateCmd := commands.NewOSReleaseCreateCommand(rootCmd, osReleaseCmd)
	osReleaseListCmd := commands.NewOSReleaseListCommand(rootCmd, osReleaseCmd)

	promotionCmd := commands.NewPromotionCommand(app)
	promotionListCmd := commands.NewPromotionListCommand(rootCmd, promotionCmd)
	promotionGetCmd := commands.NewPromotionGetCommand(rootCmd, promotionCmd)
	promotionCreateCmd := commands.NewPromotionCreateCommand(rootCmd, promotionCmd)
	promotionApproveCmd := commands.NewPromotionApproveCommand(rootCmd, promotionCmd)
	promotionDenyCmd := commands.NewPromotionDenyCommand(rootCmd, promotionCmd)

	cmds := map[string]commands.Command{
		serveCmd.Name():            serveCmd,
		testingUpdateCmd.Name():    testingUpdateCmd,
		taskListCmd.Name():         taskListCmd,
		taskGetCmd.Name():          taskGetCmd,
		taskLogsCmd.Name():         taskLogsCmd,
		taskPauseCmd.Name():        taskPauseCmd,
		taskResumeCmd.Name():       taskResumeCmd,
		osReleaseCreateCmd.Name():  osReleaseCreateCmd,
		osReleaseListCmd.Name():    osReleaseListCmd,
		promotionListCmd.Name():    promotionListCmd,
		promotionGetCmd.Name():     promotionGetCmd,
		promotionCreateCmd.Name():  promotionCreateCmd,
		promotionApproveCmd.Name(): promotionApproveCmd,
		promotionDenyCmd.Name():    promotionDenyCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Only the server logs by default, the client commands print to stdout.
	if cmdName != serveCmd.Name() && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(*rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
