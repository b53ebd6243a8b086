package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)

	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code. Responses
// go to stdout, logs to stderr.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := log.NewWithOptions(
		stderr, log.Options{
			ReportTimestamp: true,
		},
	)

	opts := &options{}
	cmd := newRootCmd(stdout, logger, opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)

	switch {
	case err == nil:
		return 0
	case recovered(err):
		if opts.strict {
			return 1
		}
		return 0
	default:
		logger.Error(err)
		return 1
	}
}
