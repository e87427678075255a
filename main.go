// Package main is the entry point for the dbboot CLI.
package main

import (
	"fmt"
	"os"

	"dbboot/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
