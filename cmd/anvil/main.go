// Command anvil canonicalizes graph IRs from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/graphrw/anvil/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
