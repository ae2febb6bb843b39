package main

import (
	"contactdb/pkg/common"
	"contactdb/pkg/sql"

	"github.com/spf13/cobra"
)

// query runs a SELECT over the contacts table. A name lookup goes to the
// index directly; anything else is a list call truncated to LIMIT.
func (a *app) query(text string) ([]common.ContactJSON, error) {
	stmt, err := sql.Parse(text)
	if err != nil {
		return nil, err
	}
	if stmt.Exact() {
		c, err := a.cli.Search(stmt.Where.Value)
		if err != nil {
			return nil, err
		}
		return sql.Apply(stmt, []common.ContactJSON{c}), nil
	}
	contacts, err := a.cli.List(stmt.SortBy, stmt.Term())
	if err != nil {
		return nil, err
	}
	return sql.Apply(stmt, contacts), nil
}

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SELECT over the contacts table",
		Long: `Run a SELECT over the contacts table.

  SELECT * FROM contacts
  SELECT * FROM contacts WHERE name = 'Alice Smith'
  SELECT * FROM contacts WHERE MATCHES 'corp' ORDER BY dateAdded DESC LIMIT 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, err := a.query(args[0])
			if err != nil {
				return err
			}
			printContacts(cmd.OutOrStdout(), contacts)
			return nil
		},
	}
}
