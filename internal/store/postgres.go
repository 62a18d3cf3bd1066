package store

import (
	"github.com/jackc/pgx/v5"

	"github.com/roach88/predsql/internal/dialect"
	"github.com/roach88/predsql/internal/ir"
	"github.com/roach88/predsql/internal/querysql"
)

// PostgresArgs prepares a statement compiled with dialect.Postgres for pgx.
// Arrays are expanded and the parameters returned as pgx.NamedArgs, which
// pgx binds by rewriting each @name placeholder to a positional one:
//
//	sql, args := store.PostgresArgs(stmt)
//	rows, err := conn.Query(ctx, "SELECT * FROM users WHERE "+sql, args)
func PostgresArgs(stmt querysql.Statement) (string, pgx.NamedArgs) {
	expanded := ExpandArrays(stmt, dialect.Postgres)
	args := make(pgx.NamedArgs, len(expanded.Params))
	for _, p := range expanded.Params {
		args[p.Name] = ir.ToParam(p.Value)
	}
	return expanded.SQL, args
}
