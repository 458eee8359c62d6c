// Command livestore queries, mutates and watches a SQLite store through
// URL-like routes.
package main

import (
	"os"

	"github.com/roach88/livestore/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
