package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/tierd/internal/httpapi"
)

// TablePrinter prints the resources in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTasks prints tasks in a table format.
func (t *TablePrinter) PrintTasks(tasks []httpapi.TaskResponse) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tCREATED BY\tCREATED")
	for _, tk := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tk.ID, tk.Type, tk.Status, orDash(tk.CreatedBy), TimeAgo(tk.CreatedAt))
	}

	return nil
}

// PrintTask prints the task details.
func (t *TablePrinter) PrintTask(tk httpapi.TaskResponse) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", tk.ID)
	fmt.Fprintf(t.writer, "Type:       %s\n", tk.Type)
	fmt.Fprintf(t.writer, "Status:     %s\n", tk.Status)
	fmt.Fprintf(t.writer, "Created by: %s\n", orDash(tk.CreatedBy))
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(tk.CreatedAt))

	if tk.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:   %s\n", FormatTimestamp(*tk.FinishedAt))
		fmt.Fprintf(t.writer, "Duration:   %s\n", FormatDuration(tk.FinishedAt.Sub(tk.CreatedAt)))
	}

	if tk.Message != "" {
		fmt.Fprintf(t.writer, "Message:    %s\n", tk.Message)
	}

	if len(tk.Args) > 0 {
		fmt.Fprintf(t.writer, "Args:       %s\n", tk.Args)
	}

	if len(tk.Result) > 0 {
		fmt.Fprintf(t.writer, "Result:     %s\n", tk.Result)
	}

	return nil
}

// PrintMoves prints the repository mutations of a task.
func (t *TablePrinter) PrintMoves(moves []httpapi.MoveResponse) error {
	if len(moves) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ACTION\tTIER\tPACKAGE\tVERSION\tARCH\tRELEASE\tAT")
	for _, m := range moves {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", m.Action, m.Tier, m.PackageName, orDash(m.FullVersion), m.Arch, m.ReleaseID, FormatTimestamp(m.CreatedAt))
	}

	return nil
}

// PrintOSReleases prints the OS releases in a table format.
func (t *TablePrinter) PrintOSReleases(releases []httpapi.OSReleaseResponse) error {
	if len(releases) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "VERSION\tTASK\tCREATED")
	for _, r := range releases {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Version, r.TaskID, TimeAgo(r.CreatedAt))
	}

	return nil
}

// PrintPromotions prints the promotion requests in a table format.
func (t *TablePrinter) PrintPromotions(reqs []httpapi.PromotionResponse) error {
	if len(reqs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tPACKAGE\tRELEASE\tARCH\tSTATUS\tREQUESTED BY\tCREATED")
	for _, r := range reqs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.PackageID, r.ReleaseID, r.Arch, r.Status, r.RequestedBy, TimeAgo(r.CreatedAt))
	}

	return nil
}

// PrintPromotion prints the promotion request details.
func (t *TablePrinter) PrintPromotion(r httpapi.PromotionResponse) error {
	fmt.Fprintf(t.writer, "ID:           %s\n", r.ID)
	fmt.Fprintf(t.writer, "Package:      %s\n", r.PackageID)
	fmt.Fprintf(t.writer, "Release:      %s\n", r.ReleaseID)
	fmt.Fprintf(t.writer, "Arch:         %s\n", r.Arch)
	fmt.Fprintf(t.writer, "Status:       %s\n", r.Status)
	fmt.Fprintf(t.writer, "Requested by: %s\n", r.RequestedBy)
	fmt.Fprintf(t.writer, "Created:      %s\n", FormatTimestamp(r.CreatedAt))

	if r.ResolvedAt != nil {
		fmt.Fprintf(t.writer, "Reviewed by:  %s\n", r.ReviewedBy)
		fmt.Fprintf(t.writer, "Resolved:     %s\n", FormatTimestamp(*r.ResolvedAt))
		if r.DecisionReason != "" {
			fmt.Fprintf(t.writer, "Reason:       %s\n", r.DecisionReason)
		}
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
