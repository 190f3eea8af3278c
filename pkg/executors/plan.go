package executors

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/yurifrl/loanbook/pkg/plan"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
)

// Plan dry-runs p against a copy of the book and prints a preview. The
// book itself is never modified.
func (e *Executor) Plan(ctx context.Context, w io.Writer, p *plan.Plan) error {
	e.logger.Debug("planning", "operations", len(p.Operations))

	results, err := run(ctx, e.service.Clone(), p.Operations)
	for _, r := range results {
		fmt.Fprintln(w, okStyle.Render("+ "+r.Op.String()+" -> "+r.Detail))
	}

	if err != nil {
		var failed int
		var opErr *OpError
		if errors.As(err, &opErr) {
			failed = opErr.Index
			fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("! %s -> %v", opErr.Op, opErr.Err)))
		}
		for _, op := range p.Operations[failed:] {
			fmt.Fprintln(w, skipStyle.Render("  "+op.String()+" (skipped)"))
		}
		fmt.Fprintf(w, "\nPlan: would stop at operation %d of %d\n", failed, len(p.Operations))
		return err
	}

	fmt.Fprintf(w, "\nPlan: %d operation(s) would be applied\n", len(results))
	return nil
}
