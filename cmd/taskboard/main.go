package main

import (
	"fmt"
	"os"

	"github.com/eleven-am/taskboard/internal/cli"
	"github.com/eleven-am/taskboard/pkg/taskboard"
)

// Set by -ldflags at build time.
var (
	gitCommit string
	buildDate string
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func Execute() error {
	taskboard.SetBuildInfo(gitCommit, buildDate)
	return cli.NewRootCommand().Execute()
}
