// Package harness provides conformance testing for compiled predicates.
//
// The harness loads YAML scenarios, compiles each predicate against its
// field metadata, and checks the emitted SQL, its parameters, the error
// kind of rejected predicates, and optionally the rows the statement
// selects from an in-memory SQLite table.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	predicate: 'x.Account == "System" || slices.Contains(ids, x.Id)'
//	captures:
//	  ids: [1, 2, 3]
//	schema: ../schemas/users.yaml   # or: fields: [Id, Account]
//	entity: User
//	dialect: sqlite
//	data:
//	  table: users
//	  key: id
//	  rows:
//	    - {id: 1, account: System}
//	assertions:
//	  - type: sql_equals
//	    sql: '"account" = @Account_p0 OR "id" IN @Id_p1'
//	  - type: param_equals
//	    param: Account_p0
//	    value: System
//	  - type: rows_match
//	    keys: [1]
//
// # Assertion Types
//
//   - sql_equals: the emitted SQL text equals sql exactly
//   - param_equals: the named parameter is bound to value
//   - param_count: exactly count parameters are bound
//   - error_kind: compilation fails with the given error code
//   - rows_match: executing the statement over data selects exactly the
//     rows whose key column holds keys, in key order
//
// # Golden Files
//
// RunWithGolden serializes the outcome (SQL, parameters, error code and
// matched keys) as canonical JSON and compares it with
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
