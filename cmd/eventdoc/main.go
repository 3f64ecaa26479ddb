// Command eventdoc appends to and reads from document-backed event streams.
package main

import (
	"os"

	"github.com/roach88/eventdoc/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
