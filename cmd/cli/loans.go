package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/loanbook/pkg/report"
)

var (
	listFilters   filters
	exportFilters filters
)

var loanCmd = &cobra.Command{
	Use:   "loan",
	Short: "Manage a contact's loans",
}

func position(arg string) (int, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil || pos < 1 {
		return 0, fmt.Errorf("loan index must be a positive number, got %q", arg)
	}
	return pos, nil
}

var loanAddCmd = &cobra.Command{
	Use:   "add <contact>",
	Short: "Lend money to a contact",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		kind, _ := cmd.Flags().GetString("type")
		principal, _ := cmd.Flags().GetString("principal")
		rate, _ := cmd.Flags().GetString("rate")
		due, _ := cmd.Flags().GetString("due")

		pos, loan, err := a.svc.AddLoan(cmd.Context(), args[0], kind, principal, rate, due)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Card(pos, loan))
		return nil
	}),
}

var loanDeleteCmd = &cobra.Command{
	Use:   "delete <contact> <index>",
	Short: "Delete a loan",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		pos, err := position(args[1])
		if err != nil {
			return err
		}
		if err := a.svc.DeleteLoan(cmd.Context(), args[0], pos); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted loan %d of %s\n", pos, args[0])
		return nil
	}),
}

var loanPayCmd = &cobra.Command{
	Use:   "pay <contact> <index>",
	Short: "Record a payment, as an amount or a number of monthly instalments",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		pos, err := position(args[1])
		if err != nil {
			return err
		}
		amount, _ := cmd.Flags().GetString("amount")
		months, _ := cmd.Flags().GetInt("months")
		if (amount == "") == (months == 0) {
			return fmt.Errorf("pass exactly one of --amount or --months")
		}

		if months != 0 {
			paid, loan, err := a.svc.PayMonths(cmd.Context(), args[0], pos, months)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paid $%s\n", paid.StringFixed(2))
			fmt.Fprintln(cmd.OutOrStdout(), report.Card(pos, loan))
			return nil
		}
		loan, err := a.svc.Pay(cmd.Context(), args[0], pos, amount)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Card(pos, loan))
		return nil
	}),
}

var loanListCmd = &cobra.Command{
	Use:   "list <contact>",
	Short: "Show a contact's loans, optionally filtered",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		entries, err := a.svc.Loans(args[0], listFilters.conditions()...)
		if err != nil {
			return err
		}
		return report.Loans(cmd.OutOrStdout(), entries)
	}),
}

var loanShowCmd = &cobra.Command{
	Use:   "show <contact> <index>",
	Short: "Show one loan",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		pos, err := position(args[1])
		if err != nil {
			return err
		}
		loan, err := a.svc.Loan(args[0], pos)
		if err != nil {
			return err
		}
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			_, err := pp.Fprintln(cmd.OutOrStdout(), loan.Snapshot())
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Card(pos, loan))
		return nil
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export <contact>",
	Short: "Export a contact's loans as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		data, err := a.svc.Export(args[0], exportFilters.conditions()...)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		a.logger.Info("exported loans", "contact", args[0], "file", out)
		return nil
	}),
}

func init() {
	loanAddCmd.Flags().StringP("type", "t", "s", "Loan type: s (simple) or c (compound)")
	loanAddCmd.Flags().StringP("principal", "p", "", "Amount lent")
	loanAddCmd.Flags().StringP("rate", "r", "0", "Annual interest rate in percent")
	loanAddCmd.Flags().StringP("due", "d", "", "Due date (yyyy-mm-dd)")
	_ = loanAddCmd.MarkFlagRequired("principal")
	_ = loanAddCmd.MarkFlagRequired("due")

	loanPayCmd.Flags().StringP("amount", "a", "", "Amount paid")
	loanPayCmd.Flags().IntP("months", "m", 0, "Number of monthly instalments paid")

	loanShowCmd.Flags().Bool("raw", false, "Dump every stored and derived field")

	listFilters.register(loanListCmd.Flags())
	exportFilters.register(exportCmd.Flags())
	exportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")

	loanCmd.AddCommand(loanAddCmd, loanDeleteCmd, loanPayCmd, loanListCmd, loanShowCmd)
}
