// Package cmd defines and implements the CLI commands for the crawler binary.
package cmd

import (
	"fmt"
	"os"
)

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
