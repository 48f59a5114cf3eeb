// scorecard-report prints which services were hit by public incidents and how
// they score on their Cortex scorecards.
//
// Usage:
//
//	scorecard-report [--days=N] [--config=path] [--log-level=level] [--log-format=text|json]
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
		fmt.Fprintln(os.Stderr, errorMessage(err))
		stop()
		os.Exit(1)
	}
}
