package main

import (
	"context"
	"fmt"
	"os"

	"go.loomcache.dev/loom/cmd/loom"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := loom.App.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
