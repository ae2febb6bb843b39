package sql

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// SelectStmt is a parsed contact query.
type SelectStmt struct {
	Table string
	Where *WhereClause
	// SortBy is one of the index orders: name_asc, name_desc,
	// dateAdded_desc or lastActivity_desc.
	SortBy string
	Limit  int
}

// WhereClause is either an exact name lookup (Field "name", Op "=") or a
// substring match over name, email and phone (Op "MATCHES").
type WhereClause struct {
	Field string
	Op    string
	Value string
}

// Exact reports whether the statement is a single-name lookup.
func (stmt *SelectStmt) Exact() bool {
	return stmt.Where != nil && stmt.Where.Op == "="
}

// Term is the substring filter, empty when there is none.
func (stmt *SelectStmt) Term() string {
	if stmt.Where == nil || stmt.Where.Op != "MATCHES" {
		return ""
	}
	return stmt.Where.Value
}

var selectRe = regexp.MustCompile(`(?i)^SELECT\s+\*\s+FROM\s+([a-zA-Z_][a-zA-Z0-9_]*)` +
	`(?:\s+WHERE\s+(?:(name)\s*=\s*'((?:[^']|'')*)'|(MATCHES)\s+'((?:[^']|'')*)'))?` +
	`(?:\s+ORDER\s+BY\s+([a-zA-Z_]+)(?:\s+(ASC|DESC))?)?` +
	`(?:\s+LIMIT\s+(\d+))?\s*$`)

// Parse parses simple SQL over the contacts table:
// "SELECT * FROM contacts"
// "SELECT * FROM contacts WHERE name = 'Alice'"
// "SELECT * FROM contacts WHERE MATCHES 'corp' ORDER BY dateAdded DESC LIMIT 10"
// Quotes inside a literal are doubled.
func Parse(s string) (*SelectStmt, error) {
	orig := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	if orig == "" {
		return nil, errors.New("empty query")
	}

	matches := selectRe.FindStringSubmatch(orig)
	if matches == nil {
		return nil, errors.New("syntax: expected SELECT * FROM contacts [WHERE name = '<name>' | WHERE MATCHES '<term>'] [ORDER BY <field> [ASC|DESC]] [LIMIT <n>]")
	}
	table := strings.ToLower(matches[1])
	if table != "contacts" {
		return nil, errors.New("unknown table " + matches[1])
	}

	stmt := &SelectStmt{
		Table:  table,
		SortBy: "name_asc",
		Limit:  -1,
	}

	switch {
	case matches[2] != "":
		stmt.Where = &WhereClause{Field: "name", Op: "=", Value: unquote(matches[3])}
	case matches[4] != "":
		stmt.Where = &WhereClause{Field: "*", Op: "MATCHES", Value: unquote(matches[5])}
	}

	if matches[6] != "" {
		sortBy, err := sortOrder(matches[6], matches[7])
		if err != nil {
			return nil, err
		}
		stmt.SortBy = sortBy
	}

	if matches[8] != "" {
		limitVal, err := strconv.Atoi(matches[8])
		if err != nil || limitVal < 0 {
			return nil, errors.New("invalid LIMIT value")
		}
		stmt.Limit = limitVal
	}

	return stmt, nil
}

func unquote(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}

// sortOrder maps ORDER BY onto the orders the index serves. Names sort
// either way; the date fields only newest first.
func sortOrder(field, dir string) (string, error) {
	dir = strings.ToUpper(dir)
	switch strings.ToLower(field) {
	case "name":
		if dir == "DESC" {
			return "name_desc", nil
		}
		return "name_asc", nil
	case "dateadded", "addeddate":
		if dir == "ASC" {
			return "", errors.New("dateAdded sorts DESC only")
		}
		return "dateAdded_desc", nil
	case "lastactivity":
		if dir == "ASC" {
			return "", errors.New("lastActivity sorts DESC only")
		}
		return "lastActivity_desc", nil
	default:
		return "", errors.New("cannot ORDER BY " + field)
	}
}

// Apply truncates rows to the statement's LIMIT.
func Apply[T any](stmt *SelectStmt, rows []T) []T {
	if stmt.Limit >= 0 && len(rows) > stmt.Limit {
		return rows[:stmt.Limit]
	}
	return rows
}
