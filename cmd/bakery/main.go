package main

import (
	"context"
	"fmt"
	"os"

	"bakery/pkg/graceful"
)

func main() {
	ctx, cancel := graceful.Context(context.Background(), nil)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		cancel()
		os.Exit(1)
	}
}
