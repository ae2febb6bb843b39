package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"contactdb/pkg/common"

	"github.com/spf13/cobra"
)

const Prompt = "contacts> "

func (a *app) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session over one connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.repl(cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
}

func (a *app) repl(in io.Reader, out io.Writer) {
	fmt.Fprintf(out, "Connected to %s. Type 'help' for commands.\n", a.addr)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch strings.ToLower(cmd) {
		case "list", "ls":
			a.handleList(out, rest)
		case "search", "find":
			a.handleSearch(out, rest)
		case "get":
			a.handleGet(out, rest)
		case "add":
			a.handleAdd(out, rest)
		case "update":
			a.handleUpdate(out, rest)
		case "del", "rm":
			a.handleDel(out, rest)
		case "select":
			a.handleQuery(out, line)
		case "help":
			printHelp(out)
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		default:
			fmt.Fprintf(out, "Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

// handleList takes an optional sort order followed by an optional search term.
func (a *app) handleList(out io.Writer, rest string) {
	sortBy, term, _ := strings.Cut(rest, " ")
	start := time.Now()
	contacts, err := a.cli.List(sortBy, strings.TrimSpace(term))
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	printContacts(out, contacts)
	fmt.Fprintf(out, "(%v)\n", duration)
}

func (a *app) handleSearch(out io.Writer, name string) {
	if name == "" {
		fmt.Fprintln(out, "Usage: search <name>")
		return
	}
	c, err := a.cli.Search(name)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	printContact(out, c)
}

func (a *app) handleGet(out io.Writer, id string) {
	if id == "" {
		fmt.Fprintln(out, "Usage: get <id>")
		return
	}
	c, err := a.cli.Get(id)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	printContact(out, c)
}

// parseInput reads "name; phone; email[; address]".
func parseInput(rest string) (common.ContactInput, bool) {
	parts := strings.Split(rest, ";")
	if len(parts) < 3 {
		return common.ContactInput{}, false
	}
	in := common.ContactInput{
		Name:  strings.TrimSpace(parts[0]),
		Phone: strings.TrimSpace(parts[1]),
		Email: strings.TrimSpace(parts[2]),
	}
	if len(parts) > 3 {
		in.Address = strings.TrimSpace(strings.Join(parts[3:], ";"))
	}
	return in, true
}

func (a *app) handleAdd(out io.Writer, rest string) {
	in, ok := parseInput(rest)
	if !ok {
		fmt.Fprintln(out, "Usage: add <name>; <phone>; <email>[; <address>]")
		return
	}

	start := time.Now()
	c, err := a.cli.Add(in)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	} else {
		fmt.Fprintf(out, "Added %s (%s) (%v)\n", c.Name, c.ID, duration)
	}
}

// handleUpdate reads "id; name; phone; email[; address]".
func (a *app) handleUpdate(out io.Writer, rest string) {
	id, fields, _ := strings.Cut(rest, ";")
	id = strings.TrimSpace(id)
	in, ok := parseInput(fields)
	if id == "" || !ok {
		fmt.Fprintln(out, "Usage: update <id>; <name>; <phone>; <email>[; <address>]")
		return
	}

	start := time.Now()
	c, err := a.cli.Update(id, in)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	} else {
		fmt.Fprintf(out, "Updated %s (%s) (%v)\n", c.Name, c.ID, duration)
	}
}

func (a *app) handleDel(out io.Writer, id string) {
	if id == "" {
		fmt.Fprintln(out, "Usage: del <id>")
		return
	}

	start := time.Now()
	c, err := a.cli.Delete(id)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	} else {
		fmt.Fprintf(out, "Deleted %s (%v)\n", c.Name, duration)
	}
}

func (a *app) handleQuery(out io.Writer, line string) {
	start := time.Now()
	contacts, err := a.query(line)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	printContacts(out, contacts)
	fmt.Fprintf(out, "(%v)\n", duration)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `Commands:
  list [sort] [term]                 List contacts (name_asc, name_desc, dateAdded_desc, lastActivity_desc)
  search <name>                      Look up by exact name
  get <id>                           Fetch by ID
  add <name>; <phone>; <email>[; <address>]
  update <id>; <name>; <phone>; <email>[; <address>]
  del <id>                           Delete by ID
  SELECT * FROM contacts [WHERE name = '<name>' | WHERE MATCHES '<term>'] [ORDER BY <field> [ASC|DESC]] [LIMIT <n>]
  exit                               Quit`)
}
