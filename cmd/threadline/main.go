package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmdr := newCommander(flag.CommandLine, os.Stdout, os.Stderr)

	// no subcommand starts the TUI
	if len(args) == 0 {
		args = []string{"tui"}
	}
	if err := flag.CommandLine.Parse(args); err != nil {
		return int(subcommands.ExitUsageError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return int(cmdr.Execute(ctx))
}
