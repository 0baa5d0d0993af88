// greys-anatomy - an interactive line-oriented diagnosis server for Go
// processes, in the spirit of the JVM tool it is named after.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zogwei/greys-anatomy/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "greys: %v\n", err)
		os.Exit(1)
	}
}
