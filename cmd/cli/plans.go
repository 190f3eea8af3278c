package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yurifrl/loanbook/pkg/executors"
	"github.com/yurifrl/loanbook/pkg/plan"
	"github.com/yurifrl/loanbook/pkg/reconcile"
)

var planCmd = &cobra.Command{
	Use:   "plan <plan_file>",
	Short: "Preview a YAML plan of loan operations (dry-run)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Plan preview for %s\n", args[0])
		return executors.New(a.logger, a.svc).Plan(cmd.Context(), cmd.OutOrStdout(), p)
	}),
}

var applyCmd = &cobra.Command{
	Use:   "apply <plan_file>",
	Short: "Apply a YAML plan of loan operations",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		return executors.New(a.logger, a.svc).Apply(cmd.Context(), cmd.OutOrStdout(), p)
	}),
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check stored loan records against their recomputed values",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
		results, err := a.svc.Verify(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		dirty := 0
		for _, v := range results {
			r := v.Report
			fmt.Fprintf(w, "%s: %d in sync, %d stale, %d dropped\n",
				v.Contact, r.Count(reconcile.InSync), r.Count(reconcile.Stale), r.Count(reconcile.Dropped))
			for i, e := range r.Items {
				switch e.Status {
				case reconcile.Stale:
					fmt.Fprintf(w, "  ~ %d: %s -> %s\n", i+1, e.Record, e.Reencoded)
				case reconcile.Dropped:
					fmt.Fprintf(w, "  - %d: %s\n", i+1, e.Record)
				}
				if e.Loan != nil && !e.RoundTrips {
					fmt.Fprintf(w, "  ! %d: does not survive a save and reload\n", i+1)
				}
			}
			if !r.Clean() {
				dirty++
			}
		}
		if dirty > 0 {
			return fmt.Errorf("%d contact(s) have records that the next save will rewrite", dirty)
		}
		return nil
	}),
}
