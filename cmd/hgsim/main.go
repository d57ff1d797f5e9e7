package main

import (
	"fmt"
	"os"

	"github.com/roach88/hgsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hgsim:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
