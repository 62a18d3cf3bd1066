// Command predsql compiles Go predicates to parameterized SQL.
package main

import (
	"os"

	"github.com/roach88/predsql/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
