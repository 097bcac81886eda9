// main is the entry point of the qualgate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/qualgate/cmd"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/internal/iocache"
)

func main() {
	err := cmd.Execute()
	iocache.CloseHistory()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}
	if err != nil {
		if msg := err.Error(); msg != "" {
			_, _ = fmt.Fprintf(os.Stderr, "❌ %s\n", msg)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
