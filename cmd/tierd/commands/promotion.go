package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tierd/internal/httpapi"
	"github.com/slok/tierd/internal/model"
)

// NewPromotionCommand returns the parent command of the stable promotion subcommands.
func NewPromotionCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("promotion", "Manage stable promotion requests.")
}

type PromotionListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	status    string
	packageID string
	format    string
}

// NewPromotionListCommand returns the promotion list command.
func NewPromotionListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *PromotionListCommand {
	c := &PromotionListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List promotion requests.")
	c.Cmd.Flag("status", "Filter by status (pending, approved, denied).").EnumVar(&c.status,
		string(model.PromotionStatusPending), string(model.PromotionStatusApproved), string(model.PromotionStatusDenied))
	c.Cmd.Flag("package", "Filter by package ID.").StringVar(&c.packageID)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c PromotionListCommand) Name() string { return c.Cmd.FullCommand() }

func (c PromotionListCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	reqs, err := cli.ListPromotions(ctx, c.status, c.packageID)
	if err != nil {
		return err
	}

	return c.rootCmd.Printer(c.format).PrintPromotions(reqs)
}

type PromotionGetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	format string
}

// NewPromotionGetCommand returns the promotion get command.
func NewPromotionGetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *PromotionGetCommand {
	c := &PromotionGetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("get", "Show a promotion request.")
	c.Cmd.Arg("id", "Promotion request ID.").Required().StringVar(&c.id)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c PromotionGetCommand) Name() string { return c.Cmd.FullCommand() }

func (c PromotionGetCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	pr, err := cli.GetPromotion(ctx, c.id)
	if err != nil {
		return err
	}

	return c.rootCmd.Printer(c.format).PrintPromotion(*pr)
}

type PromotionCreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	packageID   string
	releaseID   string
	arch        string
	requestedBy string
	format      string
}

// NewPromotionCreateCommand returns the promotion create command.
func NewPromotionCreateCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *PromotionCreateCommand {
	c := &PromotionCreateCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("create", "Request the promotion of a release architecture to stable.")
	c.Cmd.Arg("package", "Package ID.").Required().StringVar(&c.packageID)
	c.Cmd.Arg("release", "Release ID.").Required().StringVar(&c.releaseID)
	c.Cmd.Flag("arch", "Architecture.").Default(string(model.ArchAMD64)).EnumVar(&c.arch, string(model.ArchAMD64), string(model.ArchARM64))
	c.Cmd.Flag("requested-by", "Requester.").Default(currentUser()).StringVar(&c.requestedBy)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c PromotionCreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c PromotionCreateCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	pr, err := cli.CreatePromotion(ctx, httpapi.CreatePromotionRequest{
		PackageID:   c.packageID,
		ReleaseID:   c.releaseID,
		Arch:        c.arch,
		RequestedBy: c.requestedBy,
	})
	if err != nil {
		return err
	}

	return c.rootCmd.Printer(c.format).PrintPromotion(*pr)
}

type PromotionResolveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	approve  bool
	id       string
	reviewer string
	reason   string
	format   string
}

// NewPromotionApproveCommand returns the promotion approve command.
func NewPromotionApproveCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *PromotionResolveCommand {
	return newPromotionResolveCommand(rootCmd, parent.Command("approve", "Approve a pending request, copying the release into stable."), true)
}

// NewPromotionDenyCommand returns the promotion deny command.
func NewPromotionDenyCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *PromotionResolveCommand {
	return newPromotionResolveCommand(rootCmd, parent.Command("deny", "Deny a pending request."), false)
}

func newPromotionResolveCommand(rootCmd *RootCommand, cmd *kingpin.CmdClause, approve bool) *PromotionResolveCommand {
	c := &PromotionResolveCommand{Cmd: cmd, rootCmd: rootCmd, approve: approve}

	c.Cmd.Arg("id", "Promotion request ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("reviewer", "Reviewer.").Default(currentUser()).StringVar(&c.reviewer)
	c.Cmd.Flag("reason", "Decision reason.").StringVar(&c.reason)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c PromotionResolveCommand) Name() string { return c.Cmd.FullCommand() }

func (c PromotionResolveCommand) Run(ctx context.Context) error {
	cli, err := c.rootCmd.APIClient()
	if err != nil {
		return err
	}

	req := httpapi.ResolvePromotionRequest{Reviewer: c.reviewer, Reason: c.reason}
	resolve := cli.DenyPromotion
	if c.approve {
		resolve = cli.ApprovePromotion
	}

	pr, err := resolve(ctx, c.id, req)
	if err != nil {
		return err
	}

	return c.rootCmd.Printer(c.format).PrintPromotion(*pr)
}
