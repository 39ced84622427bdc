// Command jobtrail tracks job applications offline and exposes the pending
// mutation queue to sync clients.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/jobtrail/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
