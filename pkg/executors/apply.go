package executors

import (
	"context"
	"fmt"
	"io"

	"github.com/yurifrl/loanbook/pkg/plan"
)

// Apply runs p against the live book and saves once at the end. The plan is
// tried on a copy first, so a failing operation leaves the book untouched and
// the error names it.
func (e *Executor) Apply(ctx context.Context, w io.Writer, p *plan.Plan) error {
	e.logger.Debug("applying plan", "operations", len(p.Operations))

	if _, err := run(ctx, e.service.Clone(), p.Operations); err != nil {
		e.logger.Error("plan rejected", "err", err)
		return err
	}

	e.service.SetAutoSave(false)
	defer e.service.SetAutoSave(true)

	results, err := run(ctx, e.service, p.Operations)
	for _, r := range results {
		fmt.Fprintln(w, okStyle.Render("= "+r.Op.String()+" -> "+r.Detail))
	}
	if err != nil {
		e.logger.Error("plan stopped", "err", err, "applied", len(results))
		return err
	}

	if err := e.service.Save(ctx); err != nil {
		return err
	}
	e.logger.Info("plan applied", "operations", len(results))
	fmt.Fprintf(w, "\nApplied %d operation(s)\n", len(results))
	return nil
}
