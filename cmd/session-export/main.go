// Command session-export copies a session into another project, rewriting
// DICOM headers to match the edited metadata, and writes a CSV log of
// every change.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"session-export/internal/cli"
)

func main() {
	inv, err := cli.ParseInvocation(os.Args[1:])
	if err != nil {
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			os.Exit(invErr.ExitCode)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	result, execErr := cli.Execute(ctx, inv, cli.Env{})
	if execErr != nil {
		fmt.Fprintln(os.Stderr, execErr)
	}

	stop()
	os.Exit(result.ExitCode)
}
