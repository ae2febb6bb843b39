package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"contactdb/pkg/client"
	"contactdb/pkg/common"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type app struct {
	addr string
	cli  *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "contactdb-cli",
		Short: "Command-line client for the contactdb binary protocol",
		Long: `contactdb-cli talks to a running contactdb server over its TCP port.

Examples:
  contactdb-cli list --sort dateAdded_desc
  contactdb-cli search "Alice Smith"
  contactdb-cli query "SELECT * FROM contacts ORDER BY lastActivity DESC LIMIT 5"
  contactdb-cli add --name "Alice Smith" --phone 555-0100 --email alice@example.com`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip connecting for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			c, err := client.Dial(a.addr)
			if err != nil {
				return fmt.Errorf("connection to %s failed: %w (is the server running?)", a.addr, err)
			}
			a.cli = c
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.cli != nil {
				return a.cli.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.addr, "addr", "localhost:9090", "contactdb TCP server address")

	root.AddCommand(
		a.listCmd(),
		a.searchCmd(),
		a.getCmd(),
		a.addCmd(),
		a.updateCmd(),
		a.rmCmd(),
		a.queryCmd(),
		a.shellCmd(),
	)
	return root
}

func ago(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}

func printContacts(w io.Writer, contacts []common.ContactJSON) {
	if len(contacts) == 0 {
		fmt.Fprintln(w, "No contacts.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPHONE\tEMAIL\tADDED\tLAST ACTIVITY\tID")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name, c.Phone, c.Email, ago(c.AddedDate), ago(c.LastActivity), c.ID)
	}
	tw.Flush()
	fmt.Fprintf(w, "%s contact(s)\n", humanize.Comma(int64(len(contacts))))
}

func printContact(w io.Writer, c common.ContactJSON) {
	fmt.Fprintf(w, "ID:            %s\n", c.ID)
	fmt.Fprintf(w, "Name:          %s\n", c.Name)
	fmt.Fprintf(w, "Phone:         %s\n", c.Phone)
	fmt.Fprintf(w, "Email:         %s\n", c.Email)
	if strings.TrimSpace(c.Address) != "" {
		fmt.Fprintf(w, "Address:       %s\n", c.Address)
	}
	fmt.Fprintf(w, "Added:         %s\n", ago(c.AddedDate))
	fmt.Fprintf(w, "Last activity: %s\n", ago(c.LastActivity))
}
