// Package main provides the entry point for the comfybuild CLI.
package main

import (
	"fmt"
	"os"

	"github.com/effekt/comfybuild/cmd/comfybuild/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
