// Command add-reputation awards or deducts reputation points through the API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/reputation/internal/cli"
	"github.com/okian/reputation/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Diagnostics go to stderr so stdout stays the command's output.
	if err := logger.InitWithOptions(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return cli.ExitFailure
	}
	_ = logger.SetLevelString(os.Getenv("LOG_LEVEL"))

	env, err := cli.LoadEnv()
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Stderr.WriteString("Please set " + cli.EnvAdminAPIKey + " in your environment or .env file\n")
		return cli.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.RunAddReputation(ctx, env, os.Args[1:], os.Stdout, os.Stderr,
		cli.WithLogger(logger.Named("add-reputation")))
}
