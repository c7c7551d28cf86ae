package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Interrupts already print nothing useful; exit quietly.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "podknow:", err)
		}
		os.Exit(1)
	}
}
