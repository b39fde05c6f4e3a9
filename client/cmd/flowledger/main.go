package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run executes one command line. The app is closed whether or not the
// command failed, since cobra skips post-run hooks after an error.
func run(ctx context.Context, args []string) error {
	deps = nil
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)

	if deps != nil {
		deps.Close()
		_ = deps.logger.Sync()
	}
	return err
}
