// cmd/cratespec/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeeLiangmin/crate-spec/cmd/cratespec/cli"
	"github.com/LeeLiangmin/crate-spec/cmd/cratespec/commands"
)

// Version information (set via ldflags during build)
var (
	version = "0.0.0-dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date
	cli.BuiltBy = builtBy

	cli.SetupVersion()

	cli.AddCommand(commands.NewVersionCommand(cli.Console))
	cli.AddCommand(commands.NewEncodeCommand(cli.Console))
	cli.AddCommand(commands.NewDecodeCommand(cli.Console))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		os.Exit(130) // 128 + SIGINT
	}()

	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
