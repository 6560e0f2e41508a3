// Package main provides the segmenter command line.
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
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if code != exitOK {
		fmt.Fprintf(os.Stderr, "segmenter: exit status %d\n", code)
	}
	os.Exit(code)
}
