// ClauseLens command-line interface.
package main

import (
	"os"

	"github.com/clauselens/clauselens/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
