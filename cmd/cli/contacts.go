package main

import (
	"fmt"

	"contactdb/pkg/common"

	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	var sortBy, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Long: `List contacts in one of the index orders.

Sort orders: name_asc (default), name_desc, dateAdded_desc, lastActivity_desc.
--search keeps contacts whose name, email or phone contains the term.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, err := a.cli.List(sortBy, search)
			if err != nil {
				return err
			}
			printContacts(cmd.OutOrStdout(), contacts)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sortBy, "sort", "s", "name_asc", "sort order")
	cmd.Flags().StringVarP(&search, "search", "q", "", "case-insensitive filter")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <name>",
		Short: "Look up a contact by exact name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.cli.Search(args[0])
			if err != nil {
				return err
			}
			printContact(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a contact by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.cli.Get(args[0])
			if err != nil {
				return err
			}
			printContact(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	var in common.ContactInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.cli.Add(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "contact name (required)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&in.Address, "address", "", "postal address")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var in common.ContactInput
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a contact's fields",
		Long: `Replace a contact's fields. Every field is rewritten, so pass the ones
you keep as well. A new --name renames the contact.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.cli.Update(args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "contact name (required)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&in.Address, "address", "", "postal address")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"del", "delete"},
		Short:   "Delete a contact by ID",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.cli.Delete(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
}
