// Command recur expands recurrence rules and serves the schedule API.
package main

import (
	"os"

	"github.com/cyp0633/librecur/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
