package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/duckmesh/duckframe/internal/cli/duckframectl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := duckframectl.Run(ctx, os.Args[1:], duckframectl.Options{
		Lookup: os.LookupEnv,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	stop()
	os.Exit(code)
}
