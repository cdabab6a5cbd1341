// ABOUTME: Entry point for the leash CLI
// ABOUTME: Delegates to the root Cobra command

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
