// Command gosession drives a goSession client from the command line against
// the Redis-backed local identity provider or a Cognito user pool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "gosession:", describe(err))
		stop()
		os.Exit(1)
	}
}
