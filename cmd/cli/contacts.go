package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yurifrl/loanbook/pkg/report"
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage contacts",
}

var contactAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a contact",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		c, err := a.svc.AddContact(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added contact %s\n", c.Name)
		return nil
	}),
}

var contactRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a contact and all of their loans",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.svc.RemoveContact(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed contact %s\n", args[0])
		return nil
	}),
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts with their outstanding balance",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
		return report.Contacts(cmd.OutOrStdout(), a.svc.Contacts())
	}),
}

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Reorder contacts by overdue months, remaining amount or name",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
		by, _ := cmd.Flags().GetString("by")
		order, _ := cmd.Flags().GetString("order")
		contacts, err := a.svc.Sort(cmd.Context(), by, order)
		if err != nil {
			return err
		}
		return report.Contacts(cmd.OutOrStdout(), contacts)
	}),
}

func init() {
	sortCmd.Flags().String("by", "amount", "Sort key: overdue, amount or name")
	sortCmd.Flags().String("order", "desc", "Sort order: asc or desc")

	contactCmd.AddCommand(contactAddCmd, contactRemoveCmd, contactListCmd)
}
