// Package dialect describes how SQL text differs between database engines:
// identifier quoting and the named-parameter prefix.
package dialect

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect is a SQL flavour the emitter can target.
type Dialect struct {
	// Name identifies the dialect for configuration and flags.
	Name string

	// Prefix is prepended to parameter keys in SQL text.
	Prefix string

	// Quote encloses identifiers. Zero leaves identifiers bare.
	Quote byte
}

var (
	// Plain emits bare identifiers and @-prefixed parameters.
	Plain = Dialect{Name: "plain", Prefix: "@"}

	// SQLite quotes identifiers with double quotes. database/sql named
	// arguments bind to @name.
	SQLite = Dialect{Name: "sqlite", Prefix: "@", Quote: '"'}

	// Postgres quotes identifiers with double quotes. pgx rewrites @name
	// placeholders when the arguments are pgx.NamedArgs.
	Postgres = Dialect{Name: "postgres", Prefix: "@", Quote: '"'}

	// DuckDB quotes identifiers with double quotes and binds $name.
	DuckDB = Dialect{Name: "duckdb", Prefix: "$", Quote: '"'}
)

var byName = map[string]Dialect{
	Plain.Name:    Plain,
	SQLite.Name:   SQLite,
	Postgres.Name: Postgres,
	DuckDB.Name:   DuckDB,
	"sqlite3":     SQLite,
	"postgresql":  Postgres,
	"pgx":         Postgres,
}

// Lookup returns the dialect registered under name, case-insensitively.
// An empty name selects Plain.
func Lookup(name string) (Dialect, error) {
	if name == "" {
		return Plain, nil
	}
	d, ok := byName[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("unknown dialect %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names returns the canonical dialect names, sorted.
func Names() []string {
	names := []string{Plain.Name, SQLite.Name, Postgres.Name, DuckDB.Name}
	sort.Strings(names)
	return names
}

// QuoteIdent quotes an identifier. Quote characters inside the identifier
// are doubled.
func (d Dialect) QuoteIdent(ident string) string {
	if d.Quote == 0 {
		return ident
	}
	q := string(d.Quote)
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// Placeholder returns the SQL text that binds the parameter named key.
func (d Dialect) Placeholder(key string) string {
	return d.Prefix + key
}

func (d Dialect) String() string {
	return d.Name
}
