// Package store executes compiled predicates.
//
// A querysql.Statement binds set membership as one array-valued parameter.
// Drivers bind scalars only, so ExpandArrays rewrites every array
// parameter into one placeholder per element before execution:
//
//	Account IN @Account_p0            {Account_p0: ["a", "b"]}
//	Account IN (@Account_p0_0, @Account_p0_1)
//
// An empty collection becomes a subquery with no rows, so IN matches
// nothing and NOT IN matches every non-null value.
//
// # Database Configuration
//
// Open configures SQLite with:
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Select builds the surrounding SELECT with squirrel. PostgresArgs adapts a
// statement for pgx, which rewrites @name placeholders itself.
package store
